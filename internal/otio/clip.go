package otio

import (
	"fmt"
	"maps"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// DefaultMediaKey is the active media reference key of a new Clip.
const DefaultMediaKey = "DEFAULT_MEDIA"

// Clip is a segment of media. It keeps any number of named media
// references and uses the one under the active key.
type Clip struct {
	Item
	mediaReferences map[string]AnyMediaReference
	activeKey       string
}

// NewClip returns a clip using ref under DefaultMediaKey. A nil ref is
// stored as a MissingReference.
func NewClip(name string, ref AnyMediaReference, sourceRange *opentime.TimeRange) *Clip {
	c := &Clip{
		mediaReferences: make(map[string]AnyMediaReference),
		activeKey:       DefaultMediaKey,
	}
	c.init(name, sourceRange, c)
	c.SetMediaReference(ref)
	return c
}

func (c *Clip) SchemaName() string { return "Clip" }
func (c *Clip) SchemaVersion() int { return 2 }

// MediaReference returns the active reference.
func (c *Clip) MediaReference() AnyMediaReference {
	return c.mediaReferences[c.activeKey]
}

// SetMediaReference replaces the reference under the active key.
func (c *Clip) SetMediaReference(ref AnyMediaReference) {
	if ref == nil || isNilObject(ref) {
		ref = NewMissingReference()
	}
	c.mediaReferences[c.activeKey] = ref
}

// MediaReferences returns a copy of the key to reference map.
func (c *Clip) MediaReferences() map[string]AnyMediaReference {
	return maps.Clone(c.mediaReferences)
}

func (c *Clip) ActiveMediaReferenceKey() string { return c.activeKey }

// SetMediaReferences replaces every reference and the active key at once.
func (c *Clip) SetMediaReferences(refs map[string]AnyMediaReference, activeKey string) error {
	if err := checkMediaReferences(refs, activeKey); err != nil {
		return err
	}
	next := make(map[string]AnyMediaReference, len(refs))
	for k, ref := range refs {
		if ref == nil || isNilObject(ref) {
			ref = NewMissingReference()
		}
		next[k] = ref
	}
	c.mediaReferences = next
	c.activeKey = activeKey
	return nil
}

// SetActiveMediaReferenceKey switches to another stored reference.
func (c *Clip) SetActiveMediaReferenceKey(key string) error {
	if err := checkMediaReferences(c.mediaReferences, key); err != nil {
		return err
	}
	c.activeKey = key
	return nil
}

func checkMediaReferences(refs map[string]AnyMediaReference, activeKey string) error {
	if _, ok := refs[""]; ok {
		return newError(MediaReferencesContainEmptyKey, "")
	}
	if _, ok := refs[activeKey]; !ok {
		return newError(MediaReferencesDoNotContainActiveKey, fmt.Sprintf("no media reference under %q", activeKey))
	}
	return nil
}

// AvailableRange is the active reference's available range.
func (c *Clip) AvailableRange() (opentime.TimeRange, error) {
	ref := c.MediaReference()
	if ref == nil || isNilObject(ref) {
		return opentime.TimeRange{}, newError(CannotComputeAvailableRange, "no media reference set on clip")
	}
	ar := ref.AvailableRange()
	if ar == nil {
		return opentime.TimeRange{}, newError(CannotComputeAvailableRange, "no available range set on media reference of clip "+c.name)
	}
	return *ar, nil
}

// AvailableImageBounds is the active reference's image bounds.
func (c *Clip) AvailableImageBounds() (*Box2d, error) {
	ref := c.MediaReference()
	if ref == nil || isNilObject(ref) {
		return nil, newError(CannotComputeBounds, "no media reference set on clip")
	}
	b := ref.AvailableImageBounds()
	if b == nil {
		return nil, newError(CannotComputeBounds, "no image bounds set on media reference of clip "+c.name)
	}
	return b, nil
}

func (c *Clip) writeTo(w *writer) {
	c.Item.writeTo(w)
	refs := make(map[string]any, len(c.mediaReferences))
	for k, ref := range c.mediaReferences {
		refs[k] = ref
	}
	w.put("media_references", refs)
	w.put("active_media_reference_key", c.activeKey)
}

func (c *Clip) readFrom(r *reader) error {
	if err := c.Item.readFrom(r); err != nil {
		return err
	}
	objs, err := r.readObjectMap("media_references")
	if err != nil {
		return err
	}
	key, err := r.readString("active_media_reference_key")
	if err != nil {
		return err
	}
	if key == "" {
		key = DefaultMediaKey
	}

	refs := make(map[string]AnyMediaReference, len(objs))
	for k, obj := range objs {
		if obj == nil {
			refs[k] = nil
			continue
		}
		ref, ok := obj.(AnyMediaReference)
		if !ok {
			return newError(TypeMismatch, fmt.Sprintf("%s: media reference %q is %s", r.schema, k, SchemaTag(obj)))
		}
		refs[k] = ref
	}
	if _, ok := refs[key]; !ok {
		refs[key] = nil
	}
	return c.SetMediaReferences(refs, key)
}

// upgradeClipV1 moves the single media_reference of Clip.1 under
// DefaultMediaKey.
func upgradeClipV1(fields map[string]any) {
	refs := map[string]any{}
	if ref, ok := fields["media_reference"]; ok && ref != nil {
		refs[DefaultMediaKey] = ref
	}
	delete(fields, "media_reference")
	fields["media_references"] = refs
	fields["active_media_reference_key"] = DefaultMediaKey
}
