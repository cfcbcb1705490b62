package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Transition types.
const (
	TransitionSMPTEDissolve = "SMPTE_Dissolve"
	TransitionCustom        = "Custom_Transition"
)

// Transition blends the neighbouring children of a track. It overlaps
// them: inOffset reaches back into the previous child and outOffset
// forward into the next one.
type Transition struct {
	composable
	transitionType string
	inOffset       opentime.RationalTime
	outOffset      opentime.RationalTime
}

func NewTransition(name, transitionType string, inOffset, outOffset opentime.RationalTime) *Transition {
	t := &Transition{
		transitionType: transitionType,
		inOffset:       zeroIfInvalid(inOffset),
		outOffset:      zeroIfInvalid(outOffset),
	}
	t.name = name
	t.self = t
	return t
}

func zeroIfInvalid(t opentime.RationalTime) opentime.RationalTime {
	if t.IsInvalidTime() {
		return opentime.NewRationalTime(0, 1)
	}
	return t
}

func (t *Transition) SchemaName() string { return "Transition" }
func (t *Transition) SchemaVersion() int { return 1 }

func (t *Transition) Overlapping() bool { return true }

func (t *Transition) TransitionType() string        { return t.transitionType }
func (t *Transition) SetTransitionType(kind string) { t.transitionType = kind }

func (t *Transition) InOffset() opentime.RationalTime           { return t.inOffset }
func (t *Transition) SetInOffset(offset opentime.RationalTime)  { t.inOffset = zeroIfInvalid(offset) }
func (t *Transition) OutOffset() opentime.RationalTime          { return t.outOffset }
func (t *Transition) SetOutOffset(offset opentime.RationalTime) { t.outOffset = zeroIfInvalid(offset) }

// Duration is the sum of both offsets.
func (t *Transition) Duration() (opentime.RationalTime, error) {
	return t.inOffset.Add(t.outOffset), nil
}

// RangeInParent is the transition's range in its track.
func (t *Transition) RangeInParent() (opentime.TimeRange, error) {
	if t.parent == nil {
		return opentime.TimeRange{}, newError(NotAChild, "")
	}
	return t.parent.RangeOfChild(t)
}

func (t *Transition) writeTo(w *writer) {
	t.composable.writeTo(w)
	w.put("transition_type", t.transitionType)
	w.put("in_offset", t.inOffset)
	w.put("out_offset", t.outOffset)
}

func (t *Transition) readFrom(r *reader) error {
	if err := t.composable.readFrom(r); err != nil {
		return err
	}
	var err error
	if t.transitionType, err = r.readString("transition_type"); err != nil {
		return err
	}
	in, err := r.readTime("in_offset")
	if err != nil {
		return err
	}
	out, err := r.readTime("out_offset")
	if err != nil {
		return err
	}
	if in != nil {
		t.inOffset = zeroIfInvalid(*in)
	}
	if out != nil {
		t.outOffset = zeroIfInvalid(*out)
	}
	return nil
}
