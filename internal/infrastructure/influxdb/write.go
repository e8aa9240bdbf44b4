package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the service.
const (
	// MeasurementEvents holds one point per facet event.
	MeasurementEvents = "device_events"

	// MeasurementAttributes holds attribute values as they change.
	MeasurementAttributes = "device_attributes"
)

// EventPoint builds the point for a facet event.
//
// Tags are facet, kind and any extra low-cardinality tags such as port or
// indicator; fields carry the event payload.
func EventPoint(facet, kind string, tags map[string]string, fields map[string]any, ts time.Time) *write.Point {
	allTags := make(map[string]string, len(tags)+2)
	for k, v := range tags {
		allTags[k] = v
	}
	allTags["facet"] = facet
	allTags["kind"] = kind

	if len(fields) == 0 {
		// A point needs at least one field
		fields = map[string]any{"count": 1}
	}
	return write.NewPoint(MeasurementEvents, allTags, fields, ts)
}

// AttributePoint builds the point recording one attribute value.
func AttributePoint(facet, target, attribute string, value any, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementAttributes,
		map[string]string{
			"facet":     facet,
			"target":    target,
			"attribute": attribute,
		},
		map[string]any{"value": value},
		ts,
	)
}

// WriteEvent records a facet event. The write is non-blocking; points are
// batched and sent asynchronously.
//
// Example:
//
//	client.WriteEvent("hdmiin", "hotplug",
//	    map[string]string{"port": "HDMI0"},
//	    map[string]any{"connected": true})
func (c *Client) WriteEvent(facet, kind string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(EventPoint(facet, kind, tags, fields, time.Now()))
}

// WriteAttribute records the current value of an attribute, for example the
// brightness of the power LED.
func (c *Client) WriteAttribute(facet, target, attribute string, value any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(AttributePoint(facet, target, attribute, value, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
