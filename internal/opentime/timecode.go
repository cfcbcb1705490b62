package opentime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidTimecode      = errors.New("invalid timecode")
	ErrNegativeTimecode     = fmt.Errorf("%w: negative timecodes are not supported", ErrInvalidTimecode)
	ErrTimecodeRateMismatch = fmt.Errorf("%w: timecode does not match rate", ErrInvalidTimecode)
	ErrInvalidTimeString    = errors.New("invalid time string")
)

// DropFrameMode selects the timecode counting scheme used by ToTimecodeAt.
type DropFrameMode int

const (
	// InferFromRate uses drop-frame counting for NTSC rates only.
	InferFromRate DropFrameMode = iota
	ForceNo
	ForceYes
)

var validTimecodeRates = []float64{
	1, 12, 23.97, 23.976, 23.98, 24000.0 / 1001, 24, 25,
	29.97, 30000.0 / 1001, 30, 47.952, 48000.0 / 1001, 48, 50,
	59.94, 60000.0 / 1001, 60, 72, 96, 100, 119.88, 120,
}

// IsValidTimecodeRate reports whether rate is a standard SMPTE frame rate.
func IsValidTimecodeRate(rate float64) bool {
	for _, r := range validTimecodeRates {
		if math.Abs(r-rate) < 1e-6 {
			return true
		}
	}
	return false
}

// IsDropFrameRate reports whether rate is an NTSC rate that supports
// drop-frame counting (29.97 or 59.94).
func IsDropFrameRate(rate float64) bool {
	return dropFramesPerMinute(rate) > 0
}

func dropFramesPerMinute(rate float64) int64 {
	switch {
	case math.Abs(rate-30000.0/1001) < 0.01:
		return 2
	case math.Abs(rate-60000.0/1001) < 0.01:
		return 4
	}
	return 0
}

// FromTimecode parses "HH:MM:SS:FF" at rate. A ';' anywhere in the string
// selects drop-frame counting, which requires a drop-frame rate.
func FromTimecode(timecode string, rate float64) (RationalTime, error) {
	if !(rate > 0) {
		return RationalTime{}, fmt.Errorf("%w: %g", ErrInvalidRate, rate)
	}

	tc := strings.TrimSpace(timecode)
	if strings.HasPrefix(tc, "-") {
		return RationalTime{}, fmt.Errorf("%w: %q", ErrNegativeTimecode, timecode)
	}

	dropFrame := strings.Contains(tc, ";")
	if dropFrame && !IsDropFrameRate(rate) {
		return RationalTime{}, fmt.Errorf("%w: %q uses a drop frame divider but %g is not a drop frame rate",
			ErrTimecodeRateMismatch, timecode, rate)
	}

	fields := strings.FieldsFunc(tc, func(r rune) bool { return r == ':' || r == ';' })
	if len(fields) != 4 {
		return RationalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, timecode)
	}

	var parts [4]int64
	for i, f := range fields {
		n, err := parseDigits(f)
		if err != nil {
			return RationalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, timecode)
		}
		parts[i] = n
	}
	hours, minutes, seconds, frames := parts[0], parts[1], parts[2], parts[3]

	if minutes >= 60 || seconds >= 60 {
		return RationalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, timecode)
	}

	nominal := int64(math.Ceil(rate))
	if nominal <= 0 {
		return RationalTime{}, fmt.Errorf("%w: %g", ErrInvalidRate, rate)
	}
	if frames >= nominal {
		return RationalTime{}, fmt.Errorf("%w: frame %d at rate %g", ErrTimecodeRateMismatch, frames, rate)
	}
	// hours*3600*nominal must stay inside int64.
	if hours > math.MaxInt64/nominal/3600-1 {
		return RationalTime{}, fmt.Errorf("%w: %q is out of range", ErrInvalidTimecode, timecode)
	}

	var dropFrames int64
	if dropFrame {
		dropFrames = dropFramesPerMinute(rate)
	}

	totalMinutes := hours*60 + minutes
	value := (totalMinutes*60+seconds)*nominal + frames - dropFrames*(totalMinutes-totalMinutes/10)
	return RationalTime{value: float64(value), rate: rate}, nil
}

func parseDigits(s string) (int64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// ToTimecode formats t at its own rate using non-drop counting, the inverse
// of FromTimecode for colon separated input.
func (t RationalTime) ToTimecode() (string, error) {
	return t.ToTimecodeAt(t.rate, ForceNo)
}

// ToTimecodeAt formats t at rate using the requested counting scheme.
func (t RationalTime) ToTimecodeAt(rate float64, mode DropFrameMode) (string, error) {
	if t.IsInvalidTime() || !(rate > 0) {
		return "", fmt.Errorf("%w: %g", ErrInvalidRate, rate)
	}

	isDropRate := IsDropFrameRate(rate)
	dropFrame := false
	switch mode {
	case ForceYes:
		if !isDropRate {
			return "", fmt.Errorf("%w: %g is not a drop frame rate", ErrTimecodeRateMismatch, rate)
		}
		dropFrame = true
	case InferFromRate:
		dropFrame = isDropRate
	}

	value := math.Round(t.ValueRescaledTo(rate))
	if value < 0 {
		return "", ErrNegativeTimecode
	}
	frames := int64(value)
	nominal := int64(math.Ceil(rate))

	if dropFrame {
		dropFrames := dropFramesPerMinute(rate)
		framesPer10Minutes := int64(math.Round(rate * 600))
		framesPerMinute := nominal*60 - dropFrames

		tenMinuteChunks := frames / framesPer10Minutes
		remainder := frames % framesPer10Minutes
		frames += dropFrames * 9 * tenMinuteChunks
		if remainder > dropFrames {
			frames += dropFrames * ((remainder - dropFrames) / framesPerMinute)
		}
	}

	ff := frames % nominal
	totalSeconds := frames / nominal
	ss := totalSeconds % 60
	mm := (totalSeconds / 60) % 60
	hh := totalSeconds / 3600

	sep := ":"
	if dropFrame {
		sep = ";"
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", hh, mm, ss, sep, ff), nil
}

// ToTimeString formats t as wall-clock "HH:MM:SS.s" with up to microsecond
// precision and at least one fractional digit.
func (t RationalTime) ToTimeString() string {
	total := t.ToSeconds()
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}

	hours := math.Floor(total / 3600)
	total -= hours * 3600
	minutes := math.Floor(total / 60)
	total -= minutes * 60

	sec := strconv.FormatFloat(total, 'f', 6, 64)
	sec = strings.TrimRight(sec, "0")
	if strings.HasSuffix(sec, ".") {
		sec += "0"
	}
	if idx := strings.IndexByte(sec, '.'); idx < 2 {
		sec = strings.Repeat("0", 2-idx) + sec
	}

	return fmt.Sprintf("%s%02d:%02d:%s", sign, int64(hours), int64(minutes), sec)
}

// FromTimeString parses "HH:MM:SS.sss" (leading fields optional) and
// expresses the result at rate.
func FromTimeString(s string, rate float64) (RationalTime, error) {
	if !(rate > 0) {
		return RationalTime{}, fmt.Errorf("%w: %g", ErrInvalidRate, rate)
	}

	str := strings.TrimSpace(s)
	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")

	fields := strings.Split(str, ":")
	if len(fields) == 0 || len(fields) > 3 {
		return RationalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
	}

	var seconds float64
	for i, f := range fields {
		var n float64
		if i == len(fields)-1 {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil || strings.ContainsAny(f, "+-eE") {
				return RationalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
			}
			n = v
		} else {
			v, err := parseDigits(f)
			if err != nil {
				return RationalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
			}
			n = float64(v)
		}
		seconds = seconds*60 + n
	}

	if negative {
		seconds = -seconds
	}
	return FromSecondsRate(seconds, rate), nil
}
