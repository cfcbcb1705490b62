package otio

import (
	"fmt"
	"slices"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Composition is an Item that owns an ordered list of children. A plain
// Composition has no time layout: every range query on it fails with
// NOT_IMPLEMENTED. Track and Stack supply the layout.
type Composition struct {
	Item
	children []Composable
}

func NewComposition(name string) *Composition {
	c := &Composition{}
	c.init(name, nil, c)
	return c
}

func (c *Composition) SchemaName() string { return "Composition" }
func (c *Composition) SchemaVersion() int { return 1 }

func (c *Composition) composition() *Composition { return c }

type compositionNode interface {
	Composable
	composition() *Composition
}

// layout is implemented by composition kinds that place children in time.
type layout interface {
	rangeOfChildAtIndex(index int) (opentime.TimeRange, error)
	trimmedRangeOfChildAtIndex(index int) (opentime.TimeRange, error)
}

type handlesProvider interface {
	handlesOfChild(child Composable) (*opentime.RationalTime, *opentime.RationalTime, error)
}

func (c *Composition) layoutImpl() (layout, error) {
	if l, ok := c.outer().(layout); ok {
		return l, nil
	}
	return nil, newError(NotImplemented, "time layout is not defined for "+c.outer().SchemaName())
}

// Children returns a copy of the child list.
func (c *Composition) Children() []Composable { return slices.Clone(c.children) }

func (c *Composition) Len() int { return len(c.children) }

func (c *Composition) ChildAt(index int) (Composable, error) {
	if err := c.checkIndex(index); err != nil {
		return nil, err
	}
	return c.children[index], nil
}

func (c *Composition) checkIndex(index int) error {
	if index < 0 || index >= len(c.children) {
		return newError(IllegalIndex, "")
	}
	return nil
}

func (c *Composition) canAdopt(child Composable) error {
	if child == nil || isNilObject(child) {
		return newError(TypeMismatch, "cannot add a nil child")
	}
	if child.Parent() != nil {
		return newError(ChildAlreadyHasParent, "")
	}
	if cn, ok := child.(compositionNode); ok {
		target := cn.composition()
		for p := c; p != nil; p = p.parent {
			if p == target {
				return newError(ObjectCycle, "")
			}
		}
	}
	return nil
}

// AppendChild adds child at the end. It fails with
// CHILD_ALREADY_HAS_PARENT when child belongs to any composition,
// including this one.
func (c *Composition) AppendChild(child Composable) error {
	return c.InsertChild(len(c.children), child)
}

// InsertChild inserts child before index. Negative indexes count from the
// end and out of range indexes are clamped.
func (c *Composition) InsertChild(index int, child Composable) error {
	if err := c.canAdopt(child); err != nil {
		return err
	}
	if index < 0 {
		index = max(len(c.children)+index, 0)
	}
	index = min(index, len(c.children))
	c.children = slices.Insert(c.children, index, child)
	child.setParent(c)
	return nil
}

// SetChild replaces the child at index, detaching the old one.
func (c *Composition) SetChild(index int, child Composable) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	old := c.children[index]
	if old == child {
		return nil
	}
	if err := c.canAdopt(child); err != nil {
		return err
	}
	old.setParent(nil)
	c.children[index] = child
	child.setParent(c)
	return nil
}

func (c *Composition) RemoveChild(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.children[index].setParent(nil)
	c.children = slices.Delete(c.children, index, index+1)
	return nil
}

// SetChildren replaces the whole child list. Every new child must be
// detached or already belong to c. On error nothing changes.
func (c *Composition) SetChildren(children []Composable) error {
	seen := make(map[Composable]struct{}, len(children))
	for _, ch := range children {
		if ch == nil || isNilObject(ch) {
			return newError(TypeMismatch, "cannot add a nil child")
		}
		if _, dup := seen[ch]; dup {
			return newError(ChildAlreadyHasParent, fmt.Sprintf("%q appears more than once", ch.Name()))
		}
		seen[ch] = struct{}{}
		if ch.Parent() == c {
			continue
		}
		if err := c.canAdopt(ch); err != nil {
			return err
		}
	}

	for _, old := range c.children {
		if _, kept := seen[old]; !kept {
			old.setParent(nil)
		}
	}
	c.children = slices.Clone(children)
	for _, ch := range c.children {
		ch.setParent(c)
	}
	return nil
}

func (c *Composition) ClearChildren() {
	for _, ch := range c.children {
		ch.setParent(nil)
	}
	c.children = nil
}

// IndexOfChild returns the position of a direct child. For anything else
// it returns -1 and NOT_A_CHILD_OF.
func (c *Composition) IndexOfChild(child Composable) (int, error) {
	for i, ch := range c.children {
		if ch == child {
			return i, nil
		}
	}
	return -1, newError(NotAChildOf, "")
}

// IsParentOf reports whether c is child's immediate parent.
func (c *Composition) IsParentOf(child Composable) bool {
	return child != nil && !isNilObject(child) && child.Parent() == c
}

// HasChild reports whether child is in c's child list.
func (c *Composition) HasChild(child Composable) bool {
	return slices.Contains(c.children, child)
}

// HasClips reports whether any descendant is a Clip.
func (c *Composition) HasClips() bool {
	found := false
	c.EachChild(func(ch Composable) bool {
		_, found = ch.(*Clip)
		return !found
	})
	return found
}

// EachChild walks the descendants of c depth first, parents before their
// children. It stops when fn returns false and reports whether the walk
// completed.
func (c *Composition) EachChild(fn func(Composable) bool) bool {
	for _, ch := range c.children {
		if !fn(ch) {
			return false
		}
		if cn, ok := ch.(compositionNode); ok {
			if !cn.composition().EachChild(fn) {
				return false
			}
		}
	}
	return true
}

// HandlesOfChild returns the in and out handles that adjacent transitions
// require of child. Either is nil when there is no such transition, which
// is the normal case.
func (c *Composition) HandlesOfChild(child Composable) (*opentime.RationalTime, *opentime.RationalTime, error) {
	if h, ok := c.outer().(handlesProvider); ok {
		return h.handlesOfChild(child)
	}
	return nil, nil, nil
}

// TrimChildRange clips r to c's source range. ok is false when r lies
// entirely outside it. Without a source range r is returned unchanged.
func (c *Composition) TrimChildRange(r opentime.TimeRange) (trimmed opentime.TimeRange, ok bool) {
	if c.sourceRange == nil {
		return r, true
	}
	sr := *c.sourceRange
	pastEnd := sr.StartTime().GreaterEqual(r.EndTimeExclusive())
	beforeStart := sr.EndTimeExclusive().LessEqual(r.StartTime())
	if pastEnd || beforeStart {
		return opentime.TimeRange{}, false
	}
	if r.StartTime().Less(sr.StartTime()) {
		r = opentime.RangeFromStartEndTime(sr.StartTime(), r.EndTimeExclusive())
	}
	if r.EndTimeExclusive().Greater(sr.EndTimeExclusive()) {
		r = opentime.RangeFromStartEndTime(r.StartTime(), sr.EndTimeExclusive())
	}
	return r, true
}

// RangeOfChildAtIndex is the untrimmed range of the child at index in c's
// time.
func (c *Composition) RangeOfChildAtIndex(index int) (opentime.TimeRange, error) {
	l, err := c.layoutImpl()
	if err != nil {
		return opentime.TimeRange{}, err
	}
	return l.rangeOfChildAtIndex(index)
}

// TrimmedRangeOfChildAtIndex is RangeOfChildAtIndex clipped by c's source
// range.
func (c *Composition) TrimmedRangeOfChildAtIndex(index int) (opentime.TimeRange, error) {
	l, err := c.layoutImpl()
	if err != nil {
		return opentime.TimeRange{}, err
	}
	return l.trimmedRangeOfChildAtIndex(index)
}

// RangeOfChild is the range of child in c's time. child may be any
// descendant; NOT_DESCENDED_FROM is returned otherwise.
func (c *Composition) RangeOfChild(child Composable) (opentime.TimeRange, error) {
	if _, err := c.layoutImpl(); err != nil {
		return opentime.TimeRange{}, err
	}
	if child == nil || isNilObject(child) {
		return opentime.TimeRange{}, newError(NotDescendedFrom, "")
	}

	var result opentime.TimeRange
	first := true
	cur := child
	for {
		p := cur.Parent()
		if p == nil {
			return opentime.TimeRange{}, newError(NotDescendedFrom, "")
		}
		idx, err := p.IndexOfChild(cur)
		if err != nil {
			return opentime.TimeRange{}, err
		}
		rng, err := p.RangeOfChildAtIndex(idx)
		if err != nil {
			return opentime.TimeRange{}, err
		}
		if first {
			result = rng
			first = false
		} else {
			tr, err := trimmedRangeOf(cur)
			if err != nil {
				return opentime.TimeRange{}, err
			}
			start := result.StartTime().Sub(tr.StartTime()).Add(rng.StartTime())
			result = opentime.NewTimeRange(start, result.Duration())
		}
		if p == c {
			return result, nil
		}
		cur = p.outer()
	}
}

// TrimmedRangeOfChild is RangeOfChild clipped by c's source range. ok is
// false when the child is trimmed out completely.
func (c *Composition) TrimmedRangeOfChild(child Composable) (trimmed opentime.TimeRange, ok bool, err error) {
	r, err := c.RangeOfChild(child)
	if err != nil {
		return opentime.TimeRange{}, false, err
	}
	if c.sourceRange == nil {
		return r, true, nil
	}
	sr := *c.sourceRange
	start := sr.StartTime()
	if r.StartTime().Greater(start) {
		start = r.StartTime()
	}
	if start.GreaterEqual(r.EndTimeExclusive()) {
		return opentime.TimeRange{}, false, nil
	}
	end := r.EndTimeExclusive()
	if sr.EndTimeExclusive().Less(end) {
		end = sr.EndTimeExclusive()
	}
	duration := end.Sub(start)
	if duration.Value() < 0 {
		return opentime.TimeRange{}, false, nil
	}
	return opentime.NewTimeRange(start, duration), true, nil
}

// RangeOfAllChildren maps every direct child to its range in c.
func (c *Composition) RangeOfAllChildren() (map[Composable]opentime.TimeRange, error) {
	l, err := c.layoutImpl()
	if err != nil {
		return nil, err
	}
	out := make(map[Composable]opentime.TimeRange, len(c.children))
	for i, ch := range c.children {
		r, err := l.rangeOfChildAtIndex(i)
		if err != nil {
			return nil, err
		}
		out[ch] = r
	}
	return out, nil
}

// ChildAtTime returns the first child whose range contains t, or nil. Unless
// shallow is set the search continues into nested compositions, with t
// mapped into the child's own time.
func (c *Composition) ChildAtTime(t opentime.RationalTime, shallow bool) (Composable, error) {
	l, err := c.layoutImpl()
	if err != nil {
		return nil, err
	}
	for i, ch := range c.children {
		rng, err := l.rangeOfChildAtIndex(i)
		if err != nil {
			return nil, err
		}
		if !rng.Contains(t) {
			continue
		}
		cn, ok := ch.(compositionNode)
		if shallow || !ok {
			return ch, nil
		}
		tr, err := trimmedRangeOf(ch)
		if err != nil {
			return nil, err
		}
		return cn.composition().ChildAtTime(t.Sub(rng.StartTime()).Add(tr.StartTime()), shallow)
	}
	return nil, nil
}

// ChildrenInRange returns the direct children whose range intersects r.
func (c *Composition) ChildrenInRange(r opentime.TimeRange) ([]Composable, error) {
	l, err := c.layoutImpl()
	if err != nil {
		return nil, err
	}
	var out []Composable
	for i, ch := range c.children {
		rng, err := l.rangeOfChildAtIndex(i)
		if err != nil {
			return nil, err
		}
		if rng.Intersects(r) {
			out = append(out, ch)
		}
	}
	return out, nil
}

// FindChildren returns the descendants accepted by filter (all when filter
// is nil). With searchRange set only children intersecting it are
// considered, and the range is mapped into each nested composition.
func (c *Composition) FindChildren(filter func(Composable) bool, searchRange *opentime.TimeRange, shallow bool) ([]Composable, error) {
	candidates := c.children
	if searchRange != nil {
		var err error
		if candidates, err = c.ChildrenInRange(*searchRange); err != nil {
			return nil, err
		}
	}

	var out []Composable
	for _, ch := range candidates {
		if filter == nil || filter(ch) {
			out = append(out, ch)
		}
		cn, ok := ch.(compositionNode)
		if shallow || !ok {
			continue
		}
		var childRange *opentime.TimeRange
		if searchRange != nil {
			idx, err := c.IndexOfChild(ch)
			if err != nil {
				return nil, err
			}
			rng, err := c.RangeOfChildAtIndex(idx)
			if err != nil {
				return nil, err
			}
			tr, err := trimmedRangeOf(ch)
			if err != nil {
				return nil, err
			}
			mapped := opentime.NewTimeRange(searchRange.StartTime().Sub(rng.StartTime()).Add(tr.StartTime()), searchRange.Duration())
			childRange = &mapped
		}
		nested, err := cn.composition().FindChildren(filter, childRange, shallow)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// FindClips returns the clips below c, optionally limited to searchRange.
func (c *Composition) FindClips(searchRange *opentime.TimeRange, shallow bool) ([]*Clip, error) {
	found, err := c.FindChildren(func(ch Composable) bool {
		_, ok := ch.(*Clip)
		return ok
	}, searchRange, shallow)
	if err != nil {
		return nil, err
	}
	clips := make([]*Clip, len(found))
	for i, ch := range found {
		clips[i] = ch.(*Clip)
	}
	return clips, nil
}

func (c *Composition) writeTo(w *writer) {
	c.Item.writeTo(w)
	children := make([]any, len(c.children))
	for i, ch := range c.children {
		children[i] = ch
	}
	w.put("children", children)
}

func (c *Composition) readFrom(r *reader) error {
	if err := c.Item.readFrom(r); err != nil {
		return err
	}
	objs, err := r.readObjects("children")
	if err != nil {
		return err
	}
	children := make([]Composable, 0, len(objs))
	for _, obj := range objs {
		ch, ok := obj.(Composable)
		if !ok {
			return newError(TypeMismatch, r.schema+": child is "+SchemaTag(obj))
		}
		children = append(children, ch)
	}
	c.ClearChildren()
	return c.SetChildren(children)
}
