package otio

import (
	"errors"
	"testing"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

func rt(value float64) opentime.RationalTime {
	return opentime.NewRationalTime(value, 24)
}

func tr(start, duration float64) opentime.TimeRange {
	return opentime.NewTimeRangeFromValues(start, duration, 24)
}

func trp(start, duration float64) *opentime.TimeRange {
	r := tr(start, duration)
	return &r
}

// newTestClip returns a clip backed by 100 frames of media at 24fps.
func newTestClip(name string, sourceRange *opentime.TimeRange) *Clip {
	return NewClip(name, NewExternalReference("file:///media/"+name+".mov", trp(0, 100)), sourceRange)
}

func wantOutcome(t *testing.T, err error, want Outcome) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %s", want)
	}
	var oe *Error
	if !errors.As(err, &oe) {
		t.Fatalf("error %v (%T) is not an *Error", err, err)
	}
	if oe.Outcome != want {
		t.Fatalf("outcome = %s (%v), want %s", oe.Outcome, err, want)
	}
}

func wantRange(t *testing.T, what string, got opentime.TimeRange, err error, want opentime.TimeRange) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", what, err)
	}
	if !got.Equal(want) {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}
