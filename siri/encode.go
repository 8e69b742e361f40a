package siri

import (
	"fmt"
	"strings"
	"time"

	"github.com/midlandbus/siri-vm-feed/vehicle"
)

const (
	siriNamespace  = "http://www.siri.org.uk/siri"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation = "http://www.siri.org.uk/siri http://www.siri.org.uk/schema/2.0/xsd/siri.xsd"
	siriVersion    = "2.0"

	// deliveryValidity is how long a published VehicleMonitoringDelivery
	// remains usable by consumers.
	deliveryValidity = 30 * time.Second
)

// EncodingError reports a vehicle state that cannot be serialized because a
// required field is missing. The encoder never emits a partial document.
type EncodingError struct {
	Field      string
	VehicleRef string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("siri: missing required field %s for vehicle %q", e.Field, e.VehicleRef)
}

// EncodeVehicleMonitoring serializes vehicle states into a SIRI-VM 2.0
// ServiceDelivery document. Both response timestamps and the delivery
// validity are derived from the single now value so the envelope is
// consistent with the freshness decisions made by the caller.
func EncodeVehicleMonitoring(states []vehicle.State, producerRef string, now time.Time) ([]byte, error) {
	for _, s := range states {
		if err := checkRequired(s); err != nil {
			return nil, err
		}
	}

	w := newXMLWriter()
	w.openAttrs("Siri",
		attr{"version", siriVersion},
		attr{"xmlns", siriNamespace},
		attr{"xmlns:xsi", xsiNamespace},
		attr{"xsi:schemaLocation", schemaLocation},
	)
	w.open("ServiceDelivery")
	w.elem("ResponseTimestamp", FormatTime(now))
	w.elem("ProducerRef", producerRef)
	w.open("VehicleMonitoringDelivery")
	w.elem("ResponseTimestamp", FormatTime(now))
	w.elem("ProducerRef", producerRef)
	w.elem("ValidUntilTime", FormatTime(now.Add(deliveryValidity)))
	for i, s := range states {
		writeVehicleActivity(w, s, itemIdentifier(producerRef, i, now))
	}
	w.close("VehicleMonitoringDelivery")
	w.close("ServiceDelivery")
	w.close("Siri")
	return w.bytes(), nil
}

// itemIdentifier synthesizes a document-unique activity identifier from the
// activity index and the generation timestamp.
func itemIdentifier(producerRef string, index int, now time.Time) string {
	return fmt.Sprintf("%s_%d_%d", producerRef, index+1, now.Unix())
}

func writeVehicleActivity(w *xmlWriter, s vehicle.State, itemID string) {
	w.open("VehicleActivity")
	w.elem("RecordedAtTime", FormatTime(s.RecordedAt))
	w.elem("ValidUntilTime", FormatTime(s.ValidUntil))
	if itemID != "" {
		w.elem("ItemIdentifier", itemID)
	}

	w.open("MonitoredVehicleJourney")
	w.elem("LineRef", s.LineRef)
	w.elem("DirectionRef", string(s.DirectionRef))
	w.elem("PublishedLineName", s.PublishedLineName)
	w.elem("OperatorRef", s.OperatorRef)
	w.elem("OriginRef", s.OriginRef)
	w.elem("OriginName", s.OriginName)
	w.elem("DestinationRef", s.DestinationRef)
	if s.DestinationName != nil {
		w.elem("DestinationName", *s.DestinationName)
	}
	if s.OriginAimedDeparture != nil {
		w.elem("OriginAimedDepartureTime", FormatTime(*s.OriginAimedDeparture))
	}
	if s.DestinationAimedArrival != nil {
		w.elem("DestinationAimedArrivalTime", FormatTime(*s.DestinationAimedArrival))
	}
	w.open("VehicleLocation")
	w.elem("Longitude", formatDecimal(s.Location.Longitude))
	w.elem("Latitude", formatDecimal(s.Location.Latitude))
	w.close("VehicleLocation")
	if s.Bearing != nil {
		w.elem("Bearing", formatDecimal(*s.Bearing))
	}
	if s.Velocity != nil {
		w.elem("Velocity", formatDecimal(*s.Velocity))
	}
	if s.Occupancy != vehicle.OccupancyUnset {
		w.elem("Occupancy", string(s.Occupancy))
	}
	w.elem("BlockRef", s.BlockRef)
	w.elem("VehicleJourneyRef", s.VehicleJourneyRef)
	w.elem("VehicleRef", s.VehicleRef)
	w.close("MonitoredVehicleJourney")

	w.close("VehicleActivity")
}

// checkRequired rejects states that would produce empty required elements.
// Bearing, velocity, occupancy and the aimed times are optional; everything
// else in the journey must be present.
func checkRequired(s vehicle.State) error {
	required := []struct {
		field string
		value string
	}{
		{"VehicleRef", s.VehicleRef},
		{"LineRef", s.LineRef},
		{"DirectionRef", string(s.DirectionRef)},
		{"PublishedLineName", s.PublishedLineName},
		{"OperatorRef", s.OperatorRef},
		{"OriginRef", s.OriginRef},
		{"OriginName", s.OriginName},
		{"DestinationRef", s.DestinationRef},
		{"BlockRef", s.BlockRef},
		{"VehicleJourneyRef", s.VehicleJourneyRef},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &EncodingError{Field: r.field, VehicleRef: s.VehicleRef}
		}
	}
	if s.RecordedAt.IsZero() {
		return &EncodingError{Field: "RecordedAtTime", VehicleRef: s.VehicleRef}
	}
	if s.ValidUntil.IsZero() {
		return &EncodingError{Field: "ValidUntilTime", VehicleRef: s.VehicleRef}
	}
	if s.Location == (vehicle.Location{}) {
		return &EncodingError{Field: "VehicleLocation", VehicleRef: s.VehicleRef}
	}
	return nil
}

type attr struct {
	name  string
	value string
}

// xmlWriter builds indented XML. The indentation is two spaces per level and
// is stable so feed output can be diffed in tests.
type xmlWriter struct {
	b     strings.Builder
	depth int
}

func newXMLWriter() *xmlWriter {
	w := &xmlWriter{}
	w.b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	return w
}

func (w *xmlWriter) indent() {
	for i := 0; i < w.depth; i++ {
		w.b.WriteString("  ")
	}
}

func (w *xmlWriter) open(tag string) {
	w.openAttrs(tag)
}

func (w *xmlWriter) openAttrs(tag string, attrs ...attr) {
	w.indent()
	w.b.WriteByte('<')
	w.b.WriteString(tag)
	for _, a := range attrs {
		w.b.WriteByte(' ')
		w.b.WriteString(a.name)
		w.b.WriteString("=\"")
		w.b.WriteString(xmlEscape(a.value))
		w.b.WriteString("\"")
	}
	w.b.WriteString(">\n")
	w.depth++
}

func (w *xmlWriter) close(tag string) {
	w.depth--
	w.indent()
	w.b.WriteString("</")
	w.b.WriteString(tag)
	w.b.WriteString(">\n")
}

func (w *xmlWriter) elem(tag, text string) {
	w.indent()
	w.b.WriteByte('<')
	w.b.WriteString(tag)
	w.b.WriteByte('>')
	w.b.WriteString(xmlEscape(text))
	w.b.WriteString("</")
	w.b.WriteString(tag)
	w.b.WriteString(">\n")
}

func (w *xmlWriter) bytes() []byte {
	return []byte(w.b.String())
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
