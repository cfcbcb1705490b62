package otio

import (
	"slices"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Item is a Composable with its own extent: an optional trim
// (source range), attached effects and markers, and an enabled flag.
type Item struct {
	composable
	sourceRange *opentime.TimeRange
	effects     []AnyEffect
	markers     []*Marker
	enabled     bool
}

// NewItem returns an enabled Item. A nil sourceRange means the item uses
// its available range.
func NewItem(name string, sourceRange *opentime.TimeRange) *Item {
	i := &Item{}
	i.init(name, sourceRange, i)
	return i
}

func (i *Item) init(name string, sourceRange *opentime.TimeRange, self Composable) {
	i.name = name
	i.self = self
	i.enabled = true
	i.SetSourceRange(sourceRange)
}

func (i *Item) SchemaName() string { return "Item" }
func (i *Item) SchemaVersion() int { return 1 }

func (i *Item) item() *Item { return i }

// Visible reports whether the item contributes to its parent's output.
func (i *Item) Visible() bool { return i.enabled }

func (i *Item) Enabled() bool           { return i.enabled }
func (i *Item) SetEnabled(enabled bool) { i.enabled = enabled }

// SourceRange returns a copy of the trim, or nil when unset.
func (i *Item) SourceRange() *opentime.TimeRange {
	if i.sourceRange == nil {
		return nil
	}
	r := *i.sourceRange
	return &r
}

func (i *Item) SetSourceRange(r *opentime.TimeRange) {
	if r == nil {
		i.sourceRange = nil
		return
	}
	cp := *r
	i.sourceRange = &cp
}

func (i *Item) Effects() []AnyEffect { return slices.Clone(i.effects) }

func (i *Item) SetEffects(effects []AnyEffect) {
	i.effects = slices.DeleteFunc(slices.Clone(effects), func(e AnyEffect) bool { return e == nil })
}

func (i *Item) AddEffect(e AnyEffect) {
	if e != nil {
		i.effects = append(i.effects, e)
	}
}

func (i *Item) Markers() []*Marker { return slices.Clone(i.markers) }

func (i *Item) SetMarkers(markers []*Marker) {
	i.markers = slices.DeleteFunc(slices.Clone(markers), func(m *Marker) bool { return m == nil })
}

func (i *Item) AddMarker(m *Marker) {
	if m != nil {
		i.markers = append(i.markers, m)
	}
}

// AvailableRange is the full extent the item could supply before trimming.
// A plain Item has none.
func (i *Item) AvailableRange() (opentime.TimeRange, error) {
	return opentime.TimeRange{}, newError(NotImplemented, "available range is not defined for "+i.outer().SchemaName())
}

type availableRanger interface {
	AvailableRange() (opentime.TimeRange, error)
}

func (i *Item) availableRange() (opentime.TimeRange, error) {
	if ar, ok := i.outer().(availableRanger); ok {
		return ar.AvailableRange()
	}
	return i.AvailableRange()
}

// TrimmedRange is the source range when set, else the available range.
func (i *Item) TrimmedRange() (opentime.TimeRange, error) {
	if i.sourceRange != nil {
		return *i.sourceRange, nil
	}
	return i.availableRange()
}

func (i *Item) Duration() (opentime.RationalTime, error) {
	r, err := i.TrimmedRange()
	if err != nil {
		return opentime.RationalTime{}, err
	}
	return r.Duration(), nil
}

// VisibleRange is the trimmed range grown by the handles that adjacent
// transitions in the parent need.
func (i *Item) VisibleRange() (opentime.TimeRange, error) {
	result, err := i.TrimmedRange()
	if err != nil || i.parent == nil {
		return result, err
	}
	head, tail, err := i.parent.HandlesOfChild(i.outer())
	if err != nil {
		return result, err
	}
	if head != nil {
		result = opentime.NewTimeRange(result.StartTime().Sub(*head), result.Duration().Add(*head))
	}
	if tail != nil {
		result = opentime.NewTimeRange(result.StartTime(), result.Duration().Add(*tail))
	}
	return result, nil
}

// RangeInParent is the item's untrimmed range in its parent's time.
func (i *Item) RangeInParent() (opentime.TimeRange, error) {
	if i.parent == nil {
		return opentime.TimeRange{}, newError(NotAChild, "")
	}
	return i.parent.RangeOfChild(i.outer())
}

// TrimmedRangeInParent is RangeInParent clipped by the parent's source range.
func (i *Item) TrimmedRangeInParent() (opentime.TimeRange, error) {
	if i.parent == nil {
		return opentime.TimeRange{}, newError(NotAChild, "")
	}
	r, ok, err := i.parent.TrimmedRangeOfChild(i.outer())
	if err != nil {
		return opentime.TimeRange{}, err
	}
	if !ok {
		return opentime.TimeRange{}, newError(InvalidTimeRange, "item lies outside its parent's source range")
	}
	return r, nil
}

func (i *Item) AvailableImageBounds() (*Box2d, error) {
	return nil, newError(NotImplemented, "available image bounds are not defined for "+i.outer().SchemaName())
}

// TransformedTime maps t from this item's time into to's time. Both items
// must share a root composition.
func (i *Item) TransformedTime(t opentime.RationalTime, to *Item) (opentime.RationalTime, error) {
	root := i.outer()
	result := t

	// walk up to the root, converting into each parent's space
	for cur := root; cur.Parent() != nil; cur = cur.Parent().outer() {
		rng, err := cur.Parent().RangeOfChild(cur)
		if err != nil {
			return opentime.RationalTime{}, err
		}
		tr, err := trimmedRangeOf(cur)
		if err != nil {
			return opentime.RationalTime{}, err
		}
		result = result.Sub(tr.StartTime()).Add(rng.StartTime())
	}

	// then walk down from the root to the target
	var path []Composable
	for cur := to.outer(); cur.Parent() != nil; cur = cur.Parent().outer() {
		path = append(path, cur)
	}
	for k := len(path) - 1; k >= 0; k-- {
		cur := path[k]
		rng, err := cur.Parent().RangeOfChild(cur)
		if err != nil {
			return opentime.RationalTime{}, err
		}
		tr, err := trimmedRangeOf(cur)
		if err != nil {
			return opentime.RationalTime{}, err
		}
		result = result.Sub(rng.StartTime()).Add(tr.StartTime())
	}
	return result, nil
}

// TransformedTimeRange maps r's start with TransformedTime and keeps its
// duration.
func (i *Item) TransformedTimeRange(r opentime.TimeRange, to *Item) (opentime.TimeRange, error) {
	start, err := i.TransformedTime(r.StartTime(), to)
	if err != nil {
		return opentime.TimeRange{}, err
	}
	return opentime.NewTimeRange(start, r.Duration()), nil
}

// trimmedRangeOf is the trimmed range of an item, or the zero-based range
// of any other composable with a duration.
func trimmedRangeOf(c Composable) (opentime.TimeRange, error) {
	if it, ok := c.(itemNode); ok {
		return it.item().TrimmedRange()
	}
	d, err := c.Duration()
	if err != nil {
		return opentime.TimeRange{}, err
	}
	return opentime.NewTimeRange(opentime.NewRationalTime(0, d.Rate()), d), nil
}

type itemNode interface {
	Composable
	item() *Item
}

func (i *Item) writeTo(w *writer) {
	i.composable.writeTo(w)
	w.put("source_range", i.sourceRange)
	effects := make([]any, len(i.effects))
	for k, e := range i.effects {
		effects[k] = e
	}
	w.put("effects", effects)
	markers := make([]any, len(i.markers))
	for k, m := range i.markers {
		markers[k] = m
	}
	w.put("markers", markers)
	w.put("enabled", i.enabled)
}

func (i *Item) readFrom(r *reader) error {
	if err := i.composable.readFrom(r); err != nil {
		return err
	}
	var err error
	if i.sourceRange, err = r.readRange("source_range"); err != nil {
		return err
	}
	if i.enabled, err = r.readBool("enabled", true); err != nil {
		return err
	}

	effects, err := r.readObjects("effects")
	if err != nil {
		return err
	}
	i.effects = nil
	for _, obj := range effects {
		e, ok := obj.(AnyEffect)
		if !ok {
			return newError(TypeMismatch, r.schema+": effects entry is "+SchemaTag(obj))
		}
		i.effects = append(i.effects, e)
	}

	markers, err := r.readObjects("markers")
	if err != nil {
		return err
	}
	i.markers = nil
	for _, obj := range markers {
		m, ok := obj.(*Marker)
		if !ok {
			return newError(TypeMismatch, r.schema+": markers entry is "+SchemaTag(obj))
		}
		i.markers = append(i.markers, m)
	}
	return nil
}
