// Package opentime provides exact frame-based time values and ranges.
//
// A RationalTime is a value counted at a rate (frames per second, or any
// other unit per second). Arithmetic between times with different rates
// rescales to the higher rate first so that integer-multiple rates combine
// without loss.
package opentime

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidRate = errors.New("invalid rate")

// RationalTime is an immutable time value at a rate. The zero value has
// rate 0 and is an invalid time.
type RationalTime struct {
	value float64
	rate  float64
}

// NewRationalTime returns value at rate.
func NewRationalTime(value, rate float64) RationalTime {
	return RationalTime{value: value, rate: rate}
}

// Seconds returns value at rate 1.
func Seconds(value float64) RationalTime {
	return RationalTime{value: value, rate: 1}
}

func (t RationalTime) Value() float64 { return t.value }
func (t RationalTime) Rate() float64  { return t.rate }

// IsValidTime reports whether the rate is positive and the value a number.
func (t RationalTime) IsValidTime() bool {
	return t.rate > 0 && !math.IsNaN(t.value) && !math.IsNaN(t.rate)
}

func (t RationalTime) IsInvalidTime() bool {
	return !t.IsValidTime()
}

// RescaledTo returns the same instant expressed at rate.
func (t RationalTime) RescaledTo(rate float64) RationalTime {
	return RationalTime{value: t.ValueRescaledTo(rate), rate: rate}
}

func (t RationalTime) RescaledToTime(other RationalTime) RationalTime {
	return t.RescaledTo(other.rate)
}

// ValueRescaledTo returns only the value of t expressed at rate.
func (t RationalTime) ValueRescaledTo(rate float64) float64 {
	if rate == t.rate {
		return t.value
	}
	return t.value * rate / t.rate
}

func (t RationalTime) ValueRescaledToTime(other RationalTime) float64 {
	return t.ValueRescaledTo(other.rate)
}

// AlmostEqual compares t rescaled to other's rate within delta.
func (t RationalTime) AlmostEqual(other RationalTime, delta float64) bool {
	return math.Abs(t.ValueRescaledTo(other.rate)-other.value) <= delta
}

// Equal reports whether t and other are the same instant. Values are
// compared exactly after rescaling t to other's rate.
func (t RationalTime) Equal(other RationalTime) bool {
	return t.ValueRescaledTo(other.rate) == other.value
}

// StrictlyEqual compares the raw value and rate.
func (t RationalTime) StrictlyEqual(other RationalTime) bool {
	return t.value == other.value && t.rate == other.rate
}

// Compare returns -1, 0 or 1 comparing t and other in seconds.
func (t RationalTime) Compare(other RationalTime) int {
	a, b := t.ToSeconds(), other.ToSeconds()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t RationalTime) Less(other RationalTime) bool         { return t.Compare(other) < 0 }
func (t RationalTime) LessEqual(other RationalTime) bool    { return t.Compare(other) <= 0 }
func (t RationalTime) Greater(other RationalTime) bool      { return t.Compare(other) > 0 }
func (t RationalTime) GreaterEqual(other RationalTime) bool { return t.Compare(other) >= 0 }

// Add returns t + other at the higher of the two rates.
func (t RationalTime) Add(other RationalTime) RationalTime {
	if t.rate < other.rate {
		return RationalTime{value: t.ValueRescaledTo(other.rate) + other.value, rate: other.rate}
	}
	return RationalTime{value: t.value + other.ValueRescaledTo(t.rate), rate: t.rate}
}

// Sub returns t - other at the higher of the two rates.
func (t RationalTime) Sub(other RationalTime) RationalTime {
	if t.rate < other.rate {
		return RationalTime{value: t.ValueRescaledTo(other.rate) - other.value, rate: other.rate}
	}
	return RationalTime{value: t.value - other.ValueRescaledTo(t.rate), rate: t.rate}
}

func (t RationalTime) Neg() RationalTime {
	return RationalTime{value: -t.value, rate: t.rate}
}

func (t RationalTime) Floor() RationalTime {
	return RationalTime{value: math.Floor(t.value), rate: t.rate}
}

func (t RationalTime) Ceil() RationalTime {
	return RationalTime{value: math.Ceil(t.value), rate: t.rate}
}

func (t RationalTime) Round() RationalTime {
	return RationalTime{value: math.Round(t.value), rate: t.rate}
}

func (t RationalTime) ToSeconds() float64 {
	return t.ValueRescaledTo(1)
}

// ToFrames truncates the value at the current rate to a frame count.
func (t RationalTime) ToFrames() int64 {
	return int64(t.value)
}

func (t RationalTime) ToFramesAt(rate float64) int64 {
	return int64(t.ValueRescaledTo(rate))
}

func (t RationalTime) String() string {
	return fmt.Sprintf("RationalTime(%g, %g)", t.value, t.rate)
}

func FromFrames(frame float64, rate float64) RationalTime {
	return RationalTime{value: math.Trunc(frame), rate: rate}
}

// FromSeconds returns seconds at rate 1.
func FromSeconds(seconds float64) RationalTime {
	return RationalTime{value: seconds, rate: 1}
}

func FromSecondsRate(seconds, rate float64) RationalTime {
	return RationalTime{value: seconds, rate: 1}.RescaledTo(rate)
}

// DurationFromStartEndTime returns end - start.
func DurationFromStartEndTime(start, end RationalTime) RationalTime {
	return end.Sub(start)
}

// DurationFromStartEndTimeInclusive treats end as the last frame included.
func DurationFromStartEndTimeInclusive(start, end RationalTime) RationalTime {
	return DurationFromStartEndTime(start, end.Add(RationalTime{value: 1, rate: end.rate}))
}
