package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Stack layers its children: every child starts at zero and the stack is
// as long as its longest child.
type Stack struct {
	Composition
}

func NewStack(name string) *Stack {
	s := &Stack{}
	s.init(name, nil, s)
	return s
}

func (s *Stack) SchemaName() string { return "Stack" }
func (s *Stack) SchemaVersion() int { return 1 }

// AvailableRange starts at zero and lasts as long as the longest child. An
// empty stack has an empty range at rate 1.
func (s *Stack) AvailableRange() (opentime.TimeRange, error) {
	if len(s.children) == 0 {
		return opentime.NewTimeRangeFromValues(0, 0, 1), nil
	}
	duration, err := s.children[0].Duration()
	if err != nil {
		return opentime.TimeRange{}, err
	}
	for _, ch := range s.children[1:] {
		d, err := ch.Duration()
		if err != nil {
			return opentime.TimeRange{}, err
		}
		if d.Greater(duration) {
			duration = d
		}
	}
	return opentime.NewTimeRange(opentime.NewRationalTime(0, duration.Rate()), duration), nil
}

func (s *Stack) rangeOfChildAtIndex(index int) (opentime.TimeRange, error) {
	if err := s.checkIndex(index); err != nil {
		return opentime.TimeRange{}, err
	}
	duration, err := s.children[index].Duration()
	if err != nil {
		return opentime.TimeRange{}, err
	}
	return opentime.NewTimeRange(opentime.NewRationalTime(0, duration.Rate()), duration), nil
}

func (s *Stack) trimmedRangeOfChildAtIndex(index int) (opentime.TimeRange, error) {
	r, err := s.rangeOfChildAtIndex(index)
	if err != nil || s.sourceRange == nil {
		return r, err
	}
	sr := *s.sourceRange
	duration := r.Duration()
	if sr.Duration().Less(duration) {
		duration = sr.Duration()
	}
	return opentime.NewTimeRange(sr.StartTime(), duration), nil
}
