package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Track kinds.
const (
	VideoKind = "Video"
	AudioKind = "Audio"
)

// Track lays its children end to end: each child starts where the
// previous non-overlapping child ends. Transitions overlap their
// neighbours by their in offset.
type Track struct {
	Composition
	kind string
}

func NewTrack(name, kind string) *Track {
	t := &Track{kind: kind}
	t.init(name, nil, t)
	return t
}

func (t *Track) SchemaName() string { return "Track" }
func (t *Track) SchemaVersion() int { return 1 }

func (t *Track) Kind() string        { return t.kind }
func (t *Track) SetKind(kind string) { t.kind = kind }

// AvailableRange spans the summed durations of the items, extended by the
// offsets of a leading or trailing transition.
func (t *Track) AvailableRange() (opentime.TimeRange, error) {
	duration := opentime.NewRationalTime(0, 1)
	for _, ch := range t.children {
		if _, ok := ch.(itemNode); !ok {
			continue
		}
		d, err := ch.Duration()
		if err != nil {
			return opentime.TimeRange{}, err
		}
		duration = duration.Add(d)
	}
	if n := len(t.children); n > 0 {
		if tr, ok := t.children[0].(*Transition); ok {
			duration = duration.Add(tr.inOffset)
		}
		if tr, ok := t.children[n-1].(*Transition); ok {
			duration = duration.Add(tr.outOffset)
		}
	}
	return opentime.NewTimeRange(opentime.NewRationalTime(0, duration.Rate()), duration), nil
}

func (t *Track) rangeOfChildAtIndex(index int) (opentime.TimeRange, error) {
	if err := t.checkIndex(index); err != nil {
		return opentime.TimeRange{}, err
	}
	child := t.children[index]
	duration, err := child.Duration()
	if err != nil {
		return opentime.TimeRange{}, err
	}

	start := opentime.NewRationalTime(0, duration.Rate())
	for _, prev := range t.children[:index] {
		if prev.Overlapping() {
			continue
		}
		d, err := prev.Duration()
		if err != nil {
			return opentime.TimeRange{}, err
		}
		start = start.Add(d)
	}
	if tr, ok := child.(*Transition); ok {
		start = start.Sub(tr.inOffset)
	}
	return opentime.NewTimeRange(start, duration), nil
}

func (t *Track) trimmedRangeOfChildAtIndex(index int) (opentime.TimeRange, error) {
	r, err := t.rangeOfChildAtIndex(index)
	if err != nil {
		return opentime.TimeRange{}, err
	}
	trimmed, ok := t.TrimChildRange(r)
	if !ok {
		return opentime.TimeRange{}, newError(InvalidTimeRange, "child lies outside the track's source range")
	}
	return trimmed, nil
}

// NeighborsOf returns the children directly before and after child, nil at
// either end of the track.
func (t *Track) NeighborsOf(child Composable) (prev, next Composable, err error) {
	idx, err := t.IndexOfChild(child)
	if err != nil {
		return nil, nil, err
	}
	if idx > 0 {
		prev = t.children[idx-1]
	}
	if idx+1 < len(t.children) {
		next = t.children[idx+1]
	}
	return prev, next, nil
}

func (t *Track) handlesOfChild(child Composable) (*opentime.RationalTime, *opentime.RationalTime, error) {
	prev, next, err := t.NeighborsOf(child)
	if err != nil {
		return nil, nil, err
	}
	var head, tail *opentime.RationalTime
	if tr, ok := prev.(*Transition); ok {
		in := tr.inOffset
		head = &in
	}
	if tr, ok := next.(*Transition); ok {
		out := tr.outOffset
		tail = &out
	}
	return head, tail, nil
}

func (t *Track) writeTo(w *writer) {
	t.Composition.writeTo(w)
	w.put("kind", t.kind)
}

func (t *Track) readFrom(r *reader) error {
	if err := t.Composition.readFrom(r); err != nil {
		return err
	}
	kind, err := r.readString("kind")
	if err != nil {
		return err
	}
	t.kind = kind
	return nil
}
