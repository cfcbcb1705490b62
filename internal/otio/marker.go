package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// MarkerColor is the display colour of a marker.
type MarkerColor string

const (
	MarkerColorPink    MarkerColor = "PINK"
	MarkerColorRed     MarkerColor = "RED"
	MarkerColorOrange  MarkerColor = "ORANGE"
	MarkerColorYellow  MarkerColor = "YELLOW"
	MarkerColorGreen   MarkerColor = "GREEN"
	MarkerColorCyan    MarkerColor = "CYAN"
	MarkerColorBlue    MarkerColor = "BLUE"
	MarkerColorPurple  MarkerColor = "PURPLE"
	MarkerColorMagenta MarkerColor = "MAGENTA"
	MarkerColorBlack   MarkerColor = "BLACK"
	MarkerColorWhite   MarkerColor = "WHITE"

	DefaultMarkerColor = MarkerColorGreen
)

// Marker annotates a range of its item's time.
type Marker struct {
	SerializableObjectWithMetadata
	color       MarkerColor
	comment     string
	markedRange opentime.TimeRange
}

func NewMarker(name string, markedRange opentime.TimeRange, color MarkerColor) *Marker {
	m := &Marker{color: color}
	m.name = name
	m.SetMarkedRange(markedRange)
	return m
}

func (m *Marker) SchemaName() string { return "Marker" }
func (m *Marker) SchemaVersion() int { return 2 }

func (m *Marker) Color() MarkerColor         { return m.color }
func (m *Marker) SetColor(color MarkerColor) { m.color = color }
func (m *Marker) Comment() string            { return m.comment }
func (m *Marker) SetComment(comment string)  { m.comment = comment }

func (m *Marker) MarkedRange() opentime.TimeRange { return m.markedRange }

// SetMarkedRange stores r. A zero TimeRange becomes an empty range at
// rate 1.
func (m *Marker) SetMarkedRange(r opentime.TimeRange) {
	if r.StartTime().IsInvalidTime() || r.Duration().IsInvalidTime() {
		r = opentime.NewTimeRangeFromValues(0, 0, 1)
	}
	m.markedRange = r
}

func (m *Marker) writeTo(w *writer) {
	m.SerializableObjectWithMetadata.writeTo(w)
	w.put("color", string(m.color))
	w.put("comment", m.comment)
	w.put("marked_range", m.markedRange)
}

func (m *Marker) readFrom(r *reader) error {
	if err := m.SerializableObjectWithMetadata.readFrom(r); err != nil {
		return err
	}
	color, err := r.readString("color")
	if err != nil {
		return err
	}
	if color == "" {
		color = string(DefaultMarkerColor)
	}
	m.color = MarkerColor(color)
	if m.comment, err = r.readString("comment"); err != nil {
		return err
	}
	rng, err := r.readRange("marked_range")
	if err != nil {
		return err
	}
	if rng != nil {
		m.SetMarkedRange(*rng)
	}
	return nil
}

// upgradeMarkerV1 renames the range field of Marker.1.
func upgradeMarkerV1(fields map[string]any) {
	if rng, ok := fields["range"]; ok {
		fields["marked_range"] = rng
		delete(fields, "range")
	}
}
