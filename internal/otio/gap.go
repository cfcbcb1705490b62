package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Gap is empty space in a track.
type Gap struct {
	Item
}

// NewGap returns a gap of duration starting at zero. The zero RationalTime
// gives an empty gap at rate 1.
func NewGap(name string, duration opentime.RationalTime) *Gap {
	if duration.IsInvalidTime() {
		duration = opentime.NewRationalTime(0, 1)
	}
	r := opentime.NewTimeRange(opentime.NewRationalTime(0, duration.Rate()), duration)
	return NewGapWithRange(name, r)
}

func NewGapWithRange(name string, sourceRange opentime.TimeRange) *Gap {
	g := &Gap{}
	g.init(name, &sourceRange, g)
	return g
}

func (g *Gap) SchemaName() string { return "Gap" }
func (g *Gap) SchemaVersion() int { return 1 }

func (g *Gap) Visible() bool { return false }

// AvailableRange is the source range, or an empty range when a decoded gap
// has none.
func (g *Gap) AvailableRange() (opentime.TimeRange, error) {
	if g.sourceRange != nil {
		return *g.sourceRange, nil
	}
	return opentime.NewTimeRangeFromValues(0, 0, 1), nil
}
