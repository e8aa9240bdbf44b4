// Package influxdb provides InfluxDB connectivity for the device settings
// service.
//
// It wraps the official influxdb-client-go v2 library. Facet events are
// written to the device_events measurement and attribute values to
// device_attributes, giving a history of hotplugs, signal changes and
// setting changes per device.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEvent("hdmiin", "hotplug",
//	    map[string]string{"port": "HDMI0"},
//	    map[string]any{"connected": true})
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval); batch
// errors are reported through the SetOnError callback. Connection and
// health check errors are returned directly.
package influxdb
