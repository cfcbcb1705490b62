package otio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

const schemaKey = "OTIO_SCHEMA"

// jsonFloat always marshals with a fraction or exponent so that floats and
// integers stay distinguishable after a round trip.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, newError(TypeMismatch, fmt.Sprintf("cannot serialize %v", v))
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return []byte(strconv.FormatFloat(v, 'f', 1, 64)), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// writer collects the fields of one object. The first conversion error
// sticks and is reported by encodeObject.
type writer struct {
	fields map[string]any
	err    error
}

func (w *writer) put(key string, v any) {
	if w.err != nil {
		return
	}
	ev, err := encodeValue(v)
	if err != nil {
		w.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	w.fields[key] = ev
}

func (w *writer) putRational(key string, q opentime.Rational) {
	w.fields[key] = q.String()
}

func encodeObject(obj SerializableObject) (map[string]any, error) {
	w := &writer{fields: map[string]any{schemaKey: SchemaTag(obj)}}
	obj.writeTo(w)
	if w.err != nil {
		return nil, w.err
	}
	return w.fields, nil
}

// A plain dictionary carrying OTIO_SCHEMA would read back as an object.
func errReservedKey() error {
	return newError(MalformedSchema, fmt.Sprintf("dictionary key %q is reserved", schemaKey))
}

func encodeValue(v any) (any, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64:
		return tv, nil
	case int:
		return int64(tv), nil
	case float64:
		return jsonFloat(tv), nil
	case *opentime.RationalTime:
		if tv == nil {
			return nil, nil
		}
		return encodeRationalTime(*tv), nil
	case opentime.RationalTime:
		return encodeRationalTime(tv), nil
	case *opentime.TimeRange:
		if tv == nil {
			return nil, nil
		}
		return encodeTimeRange(*tv), nil
	case opentime.TimeRange:
		return encodeTimeRange(tv), nil
	case *Box2d:
		if tv == nil {
			return nil, nil
		}
		return encodeBox2d(*tv), nil
	case Box2d:
		return encodeBox2d(tv), nil
	case V2d:
		return encodeV2d(tv), nil
	case *AnyDictionary:
		out := make(map[string]any, tv.Len())
		if tv == nil {
			return out, nil
		}
		if tv.HasKey(schemaKey) {
			return nil, errReservedKey()
		}
		for _, k := range tv.keys {
			ev, err := encodeValue(tv.values[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	case map[string]any:
		if _, ok := tv[schemaKey]; ok {
			return nil, errReservedKey()
		}
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			ev, err := encodeValue(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			ev, err := encodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case SerializableObject:
		if isNilObject(tv) {
			return nil, nil
		}
		return encodeObject(tv)
	}
	return nil, newError(TypeMismatch, fmt.Sprintf("cannot serialize value of type %T", v))
}

// isNilObject catches typed nil pointers stored in an interface.
func isNilObject(obj SerializableObject) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func encodeRationalTime(t opentime.RationalTime) map[string]any {
	return map[string]any{
		schemaKey: "RationalTime.1",
		"rate":    jsonFloat(t.Rate()),
		"value":   jsonFloat(t.Value()),
	}
}

func encodeTimeRange(r opentime.TimeRange) map[string]any {
	return map[string]any{
		schemaKey:    "TimeRange.1",
		"duration":   encodeRationalTime(r.Duration()),
		"start_time": encodeRationalTime(r.StartTime()),
	}
}

func encodeV2d(v V2d) map[string]any {
	return map[string]any{
		schemaKey: "V2d.1",
		"x":       jsonFloat(v.X),
		"y":       jsonFloat(v.Y),
	}
}

func encodeBox2d(b Box2d) map[string]any {
	return map[string]any{
		schemaKey: "Box2d.1",
		"max":     encodeV2d(b.Max),
		"min":     encodeV2d(b.Min),
	}
}

// reader gives typed access to the raw fields of one object. Absent or
// null fields read as zero values; fields of the wrong JSON type fail with
// TYPE_MISMATCH.
type reader struct {
	fields map[string]any
	schema string
}

func (r *reader) mismatch(key, want string) error {
	return newError(TypeMismatch, fmt.Sprintf("%s: expected %s for %q, found %T", r.schema, want, key, r.fields[key]))
}

func (r *reader) raw(key string) (any, bool) {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *reader) readString(key string) (string, error) {
	v, ok := r.raw(key)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", r.mismatch(key, "string")
	}
	return s, nil
}

func (r *reader) readBool(key string, def bool) (bool, error) {
	v, ok := r.raw(key)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, r.mismatch(key, "bool")
	}
	return b, nil
}

func (r *reader) readFloat(key string, def float64) (float64, error) {
	v, ok := r.raw(key)
	if !ok {
		return def, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, r.mismatch(key, "number")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, r.mismatch(key, "number")
	}
	return f, nil
}

func (r *reader) readRational(key string, def opentime.Rational) (opentime.Rational, error) {
	v, ok := r.raw(key)
	if !ok {
		return def, nil
	}
	var s string
	switch tv := v.(type) {
	case string:
		s = tv
	case json.Number:
		s = tv.String()
	default:
		return opentime.Rational{}, r.mismatch(key, "rational string")
	}
	q, err := opentime.ParseRational(s)
	if err != nil {
		return opentime.Rational{}, newError(TypeMismatch, fmt.Sprintf("%s: %v", r.schema, err))
	}
	return q, nil
}

func (r *reader) readDictionary(key string) (*AnyDictionary, error) {
	v, ok := r.raw(key)
	if !ok {
		return NewAnyDictionary(), nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, r.mismatch(key, "object")
	}
	if _, tagged := m[schemaKey]; tagged {
		return nil, r.mismatch(key, "dictionary")
	}
	return decodeDictionary(m)
}

func (r *reader) readObject(key string) (SerializableObject, error) {
	v, ok := r.raw(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, r.mismatch(key, "object")
	}
	return decodeObject(m)
}

func (r *reader) readObjects(key string) ([]SerializableObject, error) {
	v, ok := r.raw(key)
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, r.mismatch(key, "array")
	}
	out := make([]SerializableObject, 0, len(list))
	for i, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, newError(TypeMismatch, fmt.Sprintf("%s: element %d of %q is not an object", r.schema, i, key))
		}
		obj, err := decodeObject(m)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (r *reader) readObjectMap(key string) (map[string]SerializableObject, error) {
	v, ok := r.raw(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, r.mismatch(key, "object")
	}
	out := make(map[string]SerializableObject, len(m))
	for k, e := range m {
		if e == nil {
			out[k] = nil
			continue
		}
		em, ok := e.(map[string]any)
		if !ok {
			return nil, newError(TypeMismatch, fmt.Sprintf("%s: entry %q of %q is not an object", r.schema, k, key))
		}
		obj, err := decodeObject(em)
		if err != nil {
			return nil, err
		}
		out[k] = obj
	}
	return out, nil
}

func (r *reader) readTime(key string) (*opentime.RationalTime, error) {
	v, ok := r.raw(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, r.mismatch(key, "RationalTime")
	}
	t, err := decodeRationalTime(m)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *reader) readRange(key string) (*opentime.TimeRange, error) {
	v, ok := r.raw(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, r.mismatch(key, "TimeRange")
	}
	tr, err := decodeTimeRange(m)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func (r *reader) readBox(key string) (*Box2d, error) {
	v, ok := r.raw(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, r.mismatch(key, "Box2d")
	}
	b, err := decodeBox2d(m)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func checkValueSchema(m map[string]any, want string) (*reader, error) {
	tag, ok := m[schemaKey]
	if ok {
		s, isString := tag.(string)
		if !isString {
			return nil, newError(MalformedSchema, fmt.Sprintf("%s tag is not a string", schemaKey))
		}
		name, _, err := parseSchemaTag(s)
		if err != nil {
			return nil, err
		}
		if name != want {
			return nil, newError(TypeMismatch, fmt.Sprintf("expected %s, found %s", want, s))
		}
	}
	return &reader{fields: m, schema: want}, nil
}

func decodeRationalTime(m map[string]any) (opentime.RationalTime, error) {
	r, err := checkValueSchema(m, "RationalTime")
	if err != nil {
		return opentime.RationalTime{}, err
	}
	value, err := r.readFloat("value", 0)
	if err != nil {
		return opentime.RationalTime{}, err
	}
	rate, err := r.readFloat("rate", 1)
	if err != nil {
		return opentime.RationalTime{}, err
	}
	return opentime.NewRationalTime(value, rate), nil
}

func decodeTimeRange(m map[string]any) (opentime.TimeRange, error) {
	r, err := checkValueSchema(m, "TimeRange")
	if err != nil {
		return opentime.TimeRange{}, err
	}
	start, err := r.readTime("start_time")
	if err != nil {
		return opentime.TimeRange{}, err
	}
	duration, err := r.readTime("duration")
	if err != nil {
		return opentime.TimeRange{}, err
	}
	st := opentime.NewRationalTime(0, 1)
	if start != nil {
		st = *start
	}
	du := opentime.NewRationalTime(0, st.Rate())
	if duration != nil {
		du = *duration
	}
	return opentime.NewTimeRange(st, du), nil
}

func decodeV2d(m map[string]any) (V2d, error) {
	r, err := checkValueSchema(m, "V2d")
	if err != nil {
		return V2d{}, err
	}
	x, err := r.readFloat("x", 0)
	if err != nil {
		return V2d{}, err
	}
	y, err := r.readFloat("y", 0)
	if err != nil {
		return V2d{}, err
	}
	return V2d{X: x, Y: y}, nil
}

func decodeBox2d(m map[string]any) (Box2d, error) {
	r, err := checkValueSchema(m, "Box2d")
	if err != nil {
		return Box2d{}, err
	}
	var b Box2d
	for key, dst := range map[string]*V2d{"min": &b.Min, "max": &b.Max} {
		v, ok := r.raw(key)
		if !ok {
			continue
		}
		vm, ok := v.(map[string]any)
		if !ok {
			return Box2d{}, r.mismatch(key, "V2d")
		}
		if *dst, err = decodeV2d(vm); err != nil {
			return Box2d{}, err
		}
	}
	return b, nil
}

func decodeObject(m map[string]any) (SerializableObject, error) {
	rawTag, ok := m[schemaKey]
	if !ok {
		return nil, newError(MalformedSchema, fmt.Sprintf("object has no %s key", schemaKey))
	}
	tag, ok := rawTag.(string)
	if !ok {
		return nil, newError(MalformedSchema, fmt.Sprintf("%s tag is not a string", schemaKey))
	}
	name, version, err := parseSchemaTag(tag)
	if err != nil {
		return nil, err
	}
	entry, ok := lookupSchema(name)
	if !ok {
		return nil, newError(UnknownSchema, fmt.Sprintf("unknown schema %q", tag))
	}
	if version > entry.version {
		return nil, newError(SchemaVersionUnsupported,
			fmt.Sprintf("%s is newer than supported version %d", tag, entry.version))
	}
	for v := version; v < entry.version; v++ {
		if up := entry.upgrades[v]; up != nil {
			up(m)
		}
	}
	obj := entry.factory()
	if err := obj.readFrom(&reader{fields: m, schema: tag}); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeValue converts a raw JSON value into a dictionary value. Integers
// without fraction or exponent become int64, other numbers float64.
func decodeValue(v any) (any, error) {
	switch tv := v.(type) {
	case nil, bool, string:
		return tv, nil
	case json.Number:
		s := tv.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
		}
		f, err := tv.Float64()
		if err != nil {
			return nil, newError(TypeMismatch, fmt.Sprintf("bad number %q", s))
		}
		return f, nil
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			dv, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case map[string]any:
		tag, tagged := tv[schemaKey].(string)
		if !tagged {
			return decodeDictionary(tv)
		}
		name, _, err := parseSchemaTag(tag)
		if err != nil {
			return nil, err
		}
		switch name {
		case "RationalTime":
			return decodeRationalTime(tv)
		case "TimeRange":
			return decodeTimeRange(tv)
		case "V2d":
			return decodeV2d(tv)
		case "Box2d":
			return decodeBox2d(tv)
		}
		return decodeObject(tv)
	}
	return nil, newError(TypeMismatch, fmt.Sprintf("unexpected JSON value %T", v))
}

func decodeDictionary(m map[string]any) (*AnyDictionary, error) {
	d := NewAnyDictionary()
	for _, k := range sortedKeys(m) {
		dv, err := decodeValue(m[k])
		if err != nil {
			return nil, err
		}
		d.put(k, dv)
	}
	return d, nil
}

// ToJSONString serializes obj. indent is the number of spaces per level;
// zero produces compact output. Keys are sorted, which puts OTIO_SCHEMA
// ahead of the lower case field names.
func ToJSONString(obj SerializableObject, indent int) (string, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, obj, indent); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeJSON(w io.Writer, obj SerializableObject, indent int) error {
	if obj == nil || isNilObject(obj) {
		return newError(TypeMismatch, "cannot serialize a nil object")
	}
	fields, err := encodeObject(obj)
	if err != nil {
		var oe *Error
		if errors.As(err, &oe) {
			return &Error{Outcome: oe.Outcome, Details: err.Error()}
		}
		return newError(InternalError, err.Error())
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(fields); err != nil {
		return newError(InternalError, err.Error())
	}
	_, err = w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

// FromJSONString parses a document produced by ToJSONString, or any OTIO
// JSON whose schemas are registered.
func FromJSONString(s string) (SerializableObject, error) {
	return readJSON(strings.NewReader(s))
}

func readJSON(rd io.Reader) (SerializableObject, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, newError(JSONParseError, "JSON parse error: "+err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newError(JSONParseError, "JSON parse error: trailing data after document")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, newError(TypeMismatch, fmt.Sprintf("expected a JSON object, found %T", raw))
	}
	return decodeObject(m)
}

// FromJSONStringAs parses s and checks that the root has type T.
func FromJSONStringAs[T SerializableObject](s string) (T, error) {
	var zero T
	obj, err := FromJSONString(s)
	if err != nil {
		return zero, err
	}
	out, ok := obj.(T)
	if !ok {
		return zero, newError(TypeMismatch, fmt.Sprintf("document root is %s, want %T", SchemaTag(obj), zero))
	}
	return out, nil
}

// ToJSONFile writes obj to path, replacing any existing file.
func ToJSONFile(obj SerializableObject, path string, indent int) error {
	f, err := os.Create(path)
	if err != nil {
		return newError(FileWriteFailed, fmt.Sprintf("failed to open %s for writing: %v", path, err))
	}
	if err := writeJSON(f, obj, indent); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return newError(FileWriteFailed, fmt.Sprintf("failed to write %s: %v", path, err))
	}
	return nil
}

func FromJSONFile(path string) (SerializableObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(FileOpenFailed, fmt.Sprintf("failed to open %s for reading: %v", path, err))
	}
	defer f.Close()
	return readJSON(f)
}

// Clone deep copies obj through its serialized form. The copy has no
// parent.
func Clone[T SerializableObject](obj T) (T, error) {
	var zero T
	fields, err := encodeObject(obj)
	if err != nil {
		return zero, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return zero, newError(InternalError, err.Error())
	}
	return FromJSONStringAs[T](string(data))
}
