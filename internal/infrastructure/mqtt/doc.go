// Package mqtt provides MQTT connectivity for the device settings service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing facet events and retained attribute state
//   - Subscriptions for remote set commands, restored after reconnect
//   - Last Will and Testament (LWT) so the service shows offline on a crash
//
// # Topics
//
//	devicesettings/event/{facet}/{kind}               facet events (not retained)
//	devicesettings/state/{facet}/{target}/{attribute} latest value (retained)
//	devicesettings/command/{facet}/{target}/{attribute} set commands
//	devicesettings/system/status                      online/offline (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Event("hdmiin", "hotplug")
//	err = client.PublishJSON(topic, event, false)
package mqtt
