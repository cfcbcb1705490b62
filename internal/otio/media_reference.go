package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// AnyMediaReference is implemented by MediaReference and the types that
// embed it.
type AnyMediaReference interface {
	SerializableObject
	Name() string
	SetName(name string)
	Metadata() *AnyDictionary
	AvailableRange() *opentime.TimeRange
	SetAvailableRange(r *opentime.TimeRange)
	AvailableImageBounds() *Box2d
	SetAvailableImageBounds(b *Box2d)
	IsMissingReference() bool
	mediaReference() *MediaReference
}

// MediaReference describes the media a clip plays: how much of it exists
// and, for images, its bounds.
type MediaReference struct {
	SerializableObjectWithMetadata
	availableRange       *opentime.TimeRange
	availableImageBounds *Box2d
}

func NewMediaReference(name string, availableRange *opentime.TimeRange) *MediaReference {
	m := &MediaReference{}
	m.name = name
	m.SetAvailableRange(availableRange)
	return m
}

func (m *MediaReference) SchemaName() string { return "MediaReference" }
func (m *MediaReference) SchemaVersion() int { return 1 }

func (m *MediaReference) mediaReference() *MediaReference { return m }

func (m *MediaReference) IsMissingReference() bool { return false }

func (m *MediaReference) AvailableRange() *opentime.TimeRange {
	if m.availableRange == nil {
		return nil
	}
	r := *m.availableRange
	return &r
}

func (m *MediaReference) SetAvailableRange(r *opentime.TimeRange) {
	if r == nil {
		m.availableRange = nil
		return
	}
	cp := *r
	m.availableRange = &cp
}

func (m *MediaReference) AvailableImageBounds() *Box2d {
	if m.availableImageBounds == nil {
		return nil
	}
	b := *m.availableImageBounds
	return &b
}

func (m *MediaReference) SetAvailableImageBounds(b *Box2d) {
	if b == nil {
		m.availableImageBounds = nil
		return
	}
	cp := *b
	m.availableImageBounds = &cp
}

func (m *MediaReference) writeTo(w *writer) {
	m.SerializableObjectWithMetadata.writeTo(w)
	w.put("available_range", m.availableRange)
	w.put("available_image_bounds", m.availableImageBounds)
}

func (m *MediaReference) readFrom(r *reader) error {
	if err := m.SerializableObjectWithMetadata.readFrom(r); err != nil {
		return err
	}
	var err error
	if m.availableRange, err = r.readRange("available_range"); err != nil {
		return err
	}
	m.availableImageBounds, err = r.readBox("available_image_bounds")
	return err
}

// ExternalReference points at media by URL.
type ExternalReference struct {
	MediaReference
	targetURL string
}

func NewExternalReference(targetURL string, availableRange *opentime.TimeRange) *ExternalReference {
	e := &ExternalReference{targetURL: targetURL}
	e.SetAvailableRange(availableRange)
	return e
}

func (e *ExternalReference) SchemaName() string { return "ExternalReference" }
func (e *ExternalReference) SchemaVersion() int { return 1 }

func (e *ExternalReference) TargetURL() string       { return e.targetURL }
func (e *ExternalReference) SetTargetURL(url string) { e.targetURL = url }

// IsMissingReference reports whether the URL is empty.
func (e *ExternalReference) IsMissingReference() bool { return e.targetURL == "" }

func (e *ExternalReference) writeTo(w *writer) {
	e.MediaReference.writeTo(w)
	w.put("target_url", e.targetURL)
}

func (e *ExternalReference) readFrom(r *reader) error {
	if err := e.MediaReference.readFrom(r); err != nil {
		return err
	}
	var err error
	e.targetURL, err = r.readString("target_url")
	return err
}

// MissingReference stands in for media that could not be found.
type MissingReference struct {
	MediaReference
}

func NewMissingReference() *MissingReference { return &MissingReference{} }

func (m *MissingReference) SchemaName() string { return "MissingReference" }
func (m *MissingReference) SchemaVersion() int { return 1 }

func (m *MissingReference) IsMissingReference() bool { return true }
