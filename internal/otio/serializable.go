package otio

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// SerializableObject is implemented by every schema-tagged type. The
// unexported methods keep the set of implementations inside this package;
// new schemas are added with RegisterType on a type that embeds one of
// the exported structs.
type SerializableObject interface {
	SchemaName() string
	SchemaVersion() int
	writeTo(w *writer)
	readFrom(r *reader) error
}

// SchemaTag returns "<name>.<version>", the OTIO_SCHEMA value of obj.
func SchemaTag(obj SerializableObject) string {
	return obj.SchemaName() + "." + strconv.Itoa(obj.SchemaVersion())
}

type baseObject struct{}

// NewSerializableObject returns an object with no fields, schema
// SerializableObject.1.
func NewSerializableObject() SerializableObject { return &baseObject{} }

func (*baseObject) SchemaName() string     { return "SerializableObject" }
func (*baseObject) SchemaVersion() int     { return 1 }
func (*baseObject) writeTo(*writer)        {}
func (*baseObject) readFrom(*reader) error { return nil }

// SerializableObjectWithMetadata adds a name and a metadata dictionary. It
// is embedded by every named schema.
type SerializableObjectWithMetadata struct {
	name     string
	metadata *AnyDictionary
}

func NewSerializableObjectWithMetadata(name string, metadata *AnyDictionary) *SerializableObjectWithMetadata {
	return &SerializableObjectWithMetadata{name: name, metadata: metadata}
}

func (o *SerializableObjectWithMetadata) SchemaName() string { return "SerializableObjectWithMetadata" }
func (o *SerializableObjectWithMetadata) SchemaVersion() int { return 1 }

func (o *SerializableObjectWithMetadata) Name() string        { return o.name }
func (o *SerializableObjectWithMetadata) SetName(name string) { o.name = name }

// Metadata returns the live dictionary; edits through it are kept.
func (o *SerializableObjectWithMetadata) Metadata() *AnyDictionary {
	if o.metadata == nil {
		o.metadata = NewAnyDictionary()
	}
	return o.metadata
}

func (o *SerializableObjectWithMetadata) SetMetadata(d *AnyDictionary) {
	o.metadata = d
}

func (o *SerializableObjectWithMetadata) writeTo(w *writer) {
	w.put("name", o.name)
	w.put("metadata", o.Metadata())
}

func (o *SerializableObjectWithMetadata) readFrom(r *reader) error {
	var err error
	if o.name, err = r.readString("name"); err != nil {
		return err
	}
	o.metadata, err = r.readDictionary("metadata")
	return err
}

// UpgradeFunc rewrites the raw JSON fields of an object from one schema
// version to the next.
type UpgradeFunc func(fields map[string]any)

type schemaEntry struct {
	version  int
	factory  func() SerializableObject
	upgrades map[int]UpgradeFunc
}

var registry = struct {
	sync.RWMutex
	types map[string]*schemaEntry
}{types: make(map[string]*schemaEntry)}

// RegisterType makes name decodable. version is the current schema version;
// older documents are brought forward with the functions added by
// RegisterUpgrade.
func RegisterType(name string, version int, factory func() SerializableObject) error {
	if name == "" || strings.Contains(name, ".") || version < 1 {
		return newError(MalformedSchema, fmt.Sprintf("cannot register %q version %d", name, version))
	}
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.types[name]; ok {
		return newError(SchemaAlreadyRegistered, fmt.Sprintf("schema %q already registered", name))
	}
	registry.types[name] = &schemaEntry{version: version, factory: factory, upgrades: make(map[int]UpgradeFunc)}
	return nil
}

// RegisterUpgrade installs fn to convert name from fromVersion to
// fromVersion+1.
func RegisterUpgrade(name string, fromVersion int, fn UpgradeFunc) error {
	registry.Lock()
	defer registry.Unlock()
	entry, ok := registry.types[name]
	if !ok {
		return newError(UnknownSchema, fmt.Sprintf("unknown schema %q", name))
	}
	if fromVersion < 1 || fromVersion >= entry.version {
		return newError(SchemaVersionUnsupported, fmt.Sprintf("%s has no version %d to upgrade from", name, fromVersion))
	}
	entry.upgrades[fromVersion] = fn
	return nil
}

// IsRegistered reports whether name can be decoded.
func IsRegistered(name string) bool {
	registry.RLock()
	defer registry.RUnlock()
	_, ok := registry.types[name]
	return ok
}

func lookupSchema(name string) (*schemaEntry, bool) {
	registry.RLock()
	defer registry.RUnlock()
	entry, ok := registry.types[name]
	return entry, ok
}

func parseSchemaTag(tag string) (string, int, error) {
	idx := strings.LastIndexByte(tag, '.')
	if idx <= 0 || idx == len(tag)-1 {
		return "", 0, newError(MalformedSchema, fmt.Sprintf("malformed schema %q", tag))
	}
	version, err := strconv.Atoi(tag[idx+1:])
	if err != nil || version < 1 {
		return "", 0, newError(MalformedSchema, fmt.Sprintf("malformed schema %q", tag))
	}
	return tag[:idx], version, nil
}

func mustRegister(name string, version int, factory func() SerializableObject) {
	if err := RegisterType(name, version, factory); err != nil {
		panic(err)
	}
}

func init() {
	mustRegister("SerializableObject", 1, func() SerializableObject { return &baseObject{} })
	mustRegister("SerializableObjectWithMetadata", 1, func() SerializableObject { return &SerializableObjectWithMetadata{} })
	mustRegister("Composable", 1, func() SerializableObject { return NewComposable("") })
	mustRegister("Item", 1, func() SerializableObject { return NewItem("", nil) })
	mustRegister("Composition", 1, func() SerializableObject { return NewComposition("") })
	mustRegister("Track", 1, func() SerializableObject { return NewTrack("", VideoKind) })
	mustRegister("Stack", 1, func() SerializableObject { return NewStack("") })
	mustRegister("Clip", 2, func() SerializableObject { return NewClip("", nil, nil) })
	mustRegister("Gap", 1, func() SerializableObject { return NewGap("", opentime.RationalTime{}) })
	mustRegister("Transition", 1, func() SerializableObject { return NewTransition("", "", opentime.RationalTime{}, opentime.RationalTime{}) })
	mustRegister("Timeline", 1, func() SerializableObject { return NewTimeline("") })
	mustRegister("MediaReference", 1, func() SerializableObject { return NewMediaReference("", nil) })
	mustRegister("ExternalReference", 1, func() SerializableObject { return NewExternalReference("", nil) })
	mustRegister("MissingReference", 1, func() SerializableObject { return NewMissingReference() })
	mustRegister("Effect", 1, func() SerializableObject { return NewEffect("", "") })
	mustRegister("LinearTimeWarp", 1, func() SerializableObject { return NewLinearTimeWarp("", 1) })
	mustRegister("FreezeFrame", 1, func() SerializableObject { return NewFreezeFrame("") })
	mustRegister("VideoScale", 1, func() SerializableObject { return NewVideoScale("", one, one) })
	mustRegister("VideoCrop", 1, func() SerializableObject { return NewVideoCrop("", minusOne, one, minusOne, one) })
	mustRegister("VideoPosition", 1, func() SerializableObject { return NewVideoPosition("", zero, zero) })
	mustRegister("VideoRotate", 1, func() SerializableObject { return NewVideoRotate("", zero) })
	mustRegister("Marker", 2, func() SerializableObject { return NewMarker("", opentime.TimeRange{}, DefaultMarkerColor) })

	if err := RegisterUpgrade("Clip", 1, upgradeClipV1); err != nil {
		panic(err)
	}
	if err := RegisterUpgrade("Marker", 1, upgradeMarkerV1); err != nil {
		panic(err)
	}
}
