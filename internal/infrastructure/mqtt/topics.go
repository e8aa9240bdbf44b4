package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the device settings service.
//
// Events are transient and never retained. State topics carry the latest
// value of an attribute and are retained so new subscribers see it at once.
// Commands flow the other way: remote controllers publish to them and the
// service applies the value.
const (
	// TopicPrefix is the root of every topic the service uses.
	TopicPrefix = "devicesettings"

	// TopicPrefixEvent is the base for facet events.
	// Scheme: devicesettings/event/{facet}/{kind}
	TopicPrefixEvent = TopicPrefix + "/event"

	// TopicPrefixState is the base for retained attribute state.
	// Scheme: devicesettings/state/{facet}/{target}/{attribute}
	TopicPrefixState = TopicPrefix + "/state"

	// TopicPrefixCommand is the base for remote set commands.
	// Scheme: devicesettings/command/{facet}/{target}/{attribute}
	TopicPrefixCommand = TopicPrefix + "/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for device settings MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Event("hdmiin", "hotplug")
//	// Returns: "devicesettings/event/hdmiin/hotplug"
type Topics struct{}

// Event returns the topic for one kind of facet event.
//
// Example: devicesettings/event/diagnostics/av_decoder_status_changed
func (Topics) Event(facet, kind string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixEvent, facet, kind)
}

// State returns the retained state topic of an attribute.
//
// Example: devicesettings/state/hdmiin/HDMI0/signal_status
func (Topics) State(facet, target, attribute string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixState, facet, target, attribute)
}

// Command returns the topic on which a set command for an attribute arrives.
//
// Example: devicesettings/command/fpd/power/brightness
func (Topics) Command(facet, target, attribute string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixCommand, facet, target, attribute)
}

// SystemStatus returns the service status topic (online/offline, retained).
//
// Example: devicesettings/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllEvents returns a pattern matching every facet event.
//
// Pattern: devicesettings/event/+/+
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/+/+"
}

// FacetEvents returns a pattern matching every event of one facet.
//
// Pattern: devicesettings/event/{facet}/+
func (Topics) FacetEvents(facet string) string {
	return fmt.Sprintf("%s/%s/+", TopicPrefixEvent, facet)
}

// AllCommands returns a pattern matching every set command.
//
// Pattern: devicesettings/command/+/+/+
func (Topics) AllCommands() string {
	return TopicPrefixCommand + "/+/+/+"
}

// AllTopics returns a pattern matching every device settings topic.
//
// Pattern: devicesettings/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseCommand splits a command topic into its facet, target and attribute.
// It reports false for anything that is not a well-formed command topic.
func (Topics) ParseCommand(topic string) (facet, target, attribute string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixCommand+"/")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}
	return parts[0], parts[1], parts[2], true
}
