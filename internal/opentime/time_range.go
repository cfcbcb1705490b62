package opentime

import (
	"fmt"
	"math"
)

// DefaultEpsilon is the tolerance, in seconds, used by range comparisons.
// It is half a sample at 192kHz.
const DefaultEpsilon = 1.0 / (2 * 192000.0)

// TimeRange is a start time and a duration. Its extent is the half-open
// interval [start, start+duration).
type TimeRange struct {
	startTime RationalTime
	duration  RationalTime
}

// NewTimeRange returns a range of duration starting at start. A zero
// duration takes start's rate.
func NewTimeRange(start, duration RationalTime) TimeRange {
	if duration.rate == 0 && duration.value == 0 {
		duration = RationalTime{value: 0, rate: start.rate}
	}
	return TimeRange{startTime: start, duration: duration}
}

// NewTimeRangeFromValues builds a range where start and duration share rate.
func NewTimeRangeFromValues(start, duration, rate float64) TimeRange {
	return TimeRange{
		startTime: RationalTime{value: start, rate: rate},
		duration:  RationalTime{value: duration, rate: rate},
	}
}

func (r TimeRange) StartTime() RationalTime { return r.startTime }
func (r TimeRange) Duration() RationalTime  { return r.duration }

// EndTimeExclusive is the first instant after the range.
func (r TimeRange) EndTimeExclusive() RationalTime {
	return r.startTime.Add(r.duration)
}

// EndTimeInclusive is the last frame inside the range, one frame before the
// exclusive end at the duration's rate. Ranges of one frame or less return
// their start.
func (r TimeRange) EndTimeInclusive() RationalTime {
	et := r.EndTimeExclusive()
	if et.Sub(r.startTime).ValueRescaledTo(r.duration.rate) <= 1 {
		return r.startTime
	}
	if r.duration.value != math.Floor(r.duration.value) {
		// fractional duration: the last whole frame is the floor of the end.
		return RationalTime{value: math.Floor(et.value), rate: et.rate}
	}
	return et.Sub(RationalTime{value: 1, rate: r.duration.rate})
}

// DurationExtendedBy returns the duration grown by other.
func (r TimeRange) DurationExtendedBy(other RationalTime) TimeRange {
	return TimeRange{startTime: r.startTime, duration: r.duration.Add(other)}
}

// ExtendedBy returns the smallest range covering both r and other.
func (r TimeRange) ExtendedBy(other TimeRange) TimeRange {
	start := r.startTime
	if other.startTime.Less(start) {
		start = other.startTime
	}
	end := r.EndTimeExclusive()
	if oe := other.EndTimeExclusive(); oe.Greater(end) {
		end = oe
	}
	return RangeFromStartEndTime(start, end)
}

// ExtendedByTime grows r so that t lies inside it.
func (r TimeRange) ExtendedByTime(t RationalTime) TimeRange {
	return r.ExtendedBy(TimeRange{startTime: t, duration: RationalTime{value: 0, rate: t.rate}})
}

// Clamped restricts t to lie within r.
func (r TimeRange) Clamped(t RationalTime) RationalTime {
	if t.Less(r.startTime) {
		return r.startTime
	}
	if end := r.EndTimeInclusive(); t.Greater(end) {
		return end
	}
	return t
}

// ClampedRange restricts other to lie within r.
func (r TimeRange) ClampedRange(other TimeRange) TimeRange {
	start := other.startTime
	if start.Less(r.startTime) {
		start = r.startTime
	}
	end := other.EndTimeExclusive()
	if re := r.EndTimeExclusive(); end.Greater(re) {
		end = re
	}
	if end.Less(start) {
		end = start
	}
	return RangeFromStartEndTime(start, end)
}

// Contains reports whether t lies in [start, end_exclusive).
func (r TimeRange) Contains(t RationalTime) bool {
	return r.startTime.LessEqual(t) && t.Less(r.EndTimeExclusive())
}

// ContainsRange reports whether other lies entirely inside r.
func (r TimeRange) ContainsRange(other TimeRange) bool {
	thisStart, thisEnd := r.seconds()
	otherStart, otherEnd := other.seconds()
	return otherStart-thisStart >= -DefaultEpsilon && thisEnd-otherEnd >= -DefaultEpsilon
}

// OverlapsTime is Contains under its Allen-relation name.
func (r TimeRange) OverlapsTime(t RationalTime) bool {
	return r.Contains(t)
}

// Overlaps reports whether r and other share a non-empty interval.
func (r TimeRange) Overlaps(other TimeRange) bool {
	thisStart, thisEnd := r.seconds()
	otherStart, otherEnd := other.seconds()
	return otherEnd-thisStart > DefaultEpsilon && thisEnd-otherStart > DefaultEpsilon
}

// Intersects is Overlaps, extended so that an empty range intersects the
// range its instant falls in.
func (r TimeRange) Intersects(other TimeRange) bool {
	if r.Overlaps(other) {
		return true
	}
	if other.duration.value == 0 {
		return r.Contains(other.startTime)
	}
	if r.duration.value == 0 {
		return other.Contains(r.startTime)
	}
	return false
}

// Before reports whether r ends before other starts.
func (r TimeRange) Before(other TimeRange) bool {
	_, thisEnd := r.seconds()
	otherStart, _ := other.seconds()
	return otherStart-thisEnd > DefaultEpsilon
}

// Meets reports whether r ends exactly where other starts.
func (r TimeRange) Meets(other TimeRange) bool {
	_, thisEnd := r.seconds()
	otherStart, _ := other.seconds()
	return math.Abs(otherStart-thisEnd) <= DefaultEpsilon && other.duration.value > 0
}

// Begins reports whether r and other start together and r ends first.
func (r TimeRange) Begins(other TimeRange) bool {
	thisStart, thisEnd := r.seconds()
	otherStart, otherEnd := other.seconds()
	return math.Abs(thisStart-otherStart) <= DefaultEpsilon && otherEnd-thisEnd > DefaultEpsilon
}

// Finishes reports whether r and other end together and r starts later.
func (r TimeRange) Finishes(other TimeRange) bool {
	thisStart, thisEnd := r.seconds()
	otherStart, otherEnd := other.seconds()
	return math.Abs(thisEnd-otherEnd) <= DefaultEpsilon && thisStart-otherStart > DefaultEpsilon
}

// Equal compares start and duration as instants.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.startTime.Equal(other.startTime) && r.duration.Equal(other.duration)
}

// AlmostEqual compares start and duration within delta seconds.
func (r TimeRange) AlmostEqual(other TimeRange, delta float64) bool {
	return math.Abs(r.startTime.ToSeconds()-other.startTime.ToSeconds()) <= delta &&
		math.Abs(r.duration.ToSeconds()-other.duration.ToSeconds()) <= delta
}

func (r TimeRange) String() string {
	return fmt.Sprintf("TimeRange(%s, %s)", r.startTime, r.duration)
}

func (r TimeRange) seconds() (start, end float64) {
	return r.startTime.ToSeconds(), r.EndTimeExclusive().ToSeconds()
}

// RangeFromStartEndTime builds [start, end) at the higher of the two rates.
func RangeFromStartEndTime(start, end RationalTime) TimeRange {
	return TimeRange{startTime: start, duration: DurationFromStartEndTime(start, end)}
}

// RangeFromStartEndTimeInclusive builds a range whose last frame is end.
func RangeFromStartEndTimeInclusive(start, end RationalTime) TimeRange {
	return TimeRange{startTime: start, duration: DurationFromStartEndTimeInclusive(start, end)}
}
