package otio

import (
	"fmt"
	"slices"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// AnyDictionary is a string keyed map of heterogeneous values that keeps
// insertion order. Each entry keeps its Go type, so an int64 stored with
// SetInteger never reads back as a float64 and the reverse.
//
// Supported values: nil, bool, int64, float64, string, *AnyDictionary,
// []any, opentime.RationalTime, opentime.TimeRange, V2d, Box2d and any
// SerializableObject.
type AnyDictionary struct {
	keys   []string
	values map[string]any
}

func NewAnyDictionary() *AnyDictionary {
	return &AnyDictionary{values: make(map[string]any)}
}

func (d *AnyDictionary) init() {
	if d.values == nil {
		d.values = make(map[string]any)
	}
}

// Set stores v under key after normalizing Go numeric kinds: every integer
// kind becomes int64 and float32 becomes float64. It fails with
// TYPE_MISMATCH for values that cannot be serialized.
func (d *AnyDictionary) Set(key string, v any) error {
	nv, err := normalizeValue(v)
	if err != nil {
		return err
	}
	d.put(key, nv)
	return nil
}

func (d *AnyDictionary) put(key string, v any) {
	d.init()
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

func (d *AnyDictionary) SetString(key, v string) {
	d.put(key, v)
}

func (d *AnyDictionary) SetBool(key string, v bool) {
	d.put(key, v)
}

func (d *AnyDictionary) SetNumber(key string, v float64) {
	d.put(key, v)
}

func (d *AnyDictionary) SetInteger(key string, v int64) {
	d.put(key, v)
}

func (d *AnyDictionary) SetDictionary(key string, v *AnyDictionary) {
	if v == nil {
		v = NewAnyDictionary()
	}
	d.put(key, v)
}

// SetVector stores a copy of v. Elements follow the same rules as Set.
func (d *AnyDictionary) SetVector(key string, v []any) error {
	nv, err := normalizeValue(v)
	if err != nil {
		return err
	}
	d.put(key, nv)
	return nil
}

// Get returns the raw value stored under key.
func (d *AnyDictionary) Get(key string) (any, error) {
	if d == nil || d.values == nil {
		return nil, newError(KeyNotFound, "")
	}
	v, ok := d.values[key]
	if !ok {
		return nil, newError(KeyNotFound, "")
	}
	return v, nil
}

func getAs[T any](d *AnyDictionary, key string) (T, error) {
	var zero T
	v, err := d.Get(key)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, newError(BadAnyCast, "")
	}
	return out, nil
}

func (d *AnyDictionary) GetString(key string) (string, error) {
	return getAs[string](d, key)
}

func (d *AnyDictionary) GetBool(key string) (bool, error) {
	return getAs[bool](d, key)
}

func (d *AnyDictionary) GetNumber(key string) (float64, error) {
	return getAs[float64](d, key)
}

func (d *AnyDictionary) GetInteger(key string) (int64, error) {
	return getAs[int64](d, key)
}

func (d *AnyDictionary) GetVector(key string) ([]any, error) {
	return getAs[[]any](d, key)
}

func (d *AnyDictionary) GetDictionary(key string) (*AnyDictionary, error) {
	return getAs[*AnyDictionary](d, key)
}

func (d *AnyDictionary) GetRationalTime(key string) (opentime.RationalTime, error) {
	return getAs[opentime.RationalTime](d, key)
}

func (d *AnyDictionary) GetTimeRange(key string) (opentime.TimeRange, error) {
	return getAs[opentime.TimeRange](d, key)
}

func (d *AnyDictionary) HasKey(key string) bool {
	if d == nil || d.values == nil {
		return false
	}
	_, ok := d.values[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (d *AnyDictionary) Delete(key string) bool {
	if !d.HasKey(key) {
		return false
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
	return true
}

// Keys returns the keys in insertion order.
func (d *AnyDictionary) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

func (d *AnyDictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone deep copies nested dictionaries and vectors. Serializable objects
// stored as values are shared.
func (d *AnyDictionary) Clone() *AnyDictionary {
	out := NewAnyDictionary()
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		out.put(k, cloneValue(d.values[k]))
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case *AnyDictionary:
		return tv.Clone()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func normalizeValue(v any) (any, error) {
	switch tv := v.(type) {
	case nil, bool, string, int64, float64,
		opentime.RationalTime, opentime.TimeRange, V2d, Box2d:
		return tv, nil
	case int:
		return int64(tv), nil
	case int8:
		return int64(tv), nil
	case int16:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case uint8:
		return int64(tv), nil
	case uint16:
		return int64(tv), nil
	case uint32:
		return int64(tv), nil
	case float32:
		return float64(tv), nil
	case *AnyDictionary:
		if tv == nil {
			return NewAnyDictionary(), nil
		}
		return tv, nil
	case map[string]any:
		out := NewAnyDictionary()
		for _, k := range sortedKeys(tv) {
			if err := out.Set(k, tv[k]); err != nil {
				return nil, err
			}
		}
		return out, nil
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			ne, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case SerializableObject:
		return tv, nil
	}
	return nil, newError(TypeMismatch, fmt.Sprintf("unsupported dictionary value of type %T", v))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
