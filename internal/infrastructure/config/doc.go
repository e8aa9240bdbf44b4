// Package config loads the device settings service configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// DEVSETTINGS_* environment variables. Validate reports every problem at
// once so a bad file can be fixed in one pass.
//
// The facets section enables each facet independently and carries its
// tunables (decoder poll interval, HDMI port count and reassert policy, FPD
// indicators). The platform section drives the simulated hardware.
//
// Keep the broker password and InfluxDB token out of the file; set
// DEVSETTINGS_MQTT_PASSWORD and DEVSETTINGS_INFLUXDB_TOKEN instead.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	policy := cfg.Facets.HDMIIn.ReassertPolicy
package config
