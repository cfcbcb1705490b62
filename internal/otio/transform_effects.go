package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

var (
	zero     = opentime.MustRational(0, 1)
	one      = opentime.MustRational(1, 1)
	minusOne = opentime.MustRational(-1, 1)
)

// VideoScale scales the picture. 1/1 on both axes is the identity.
type VideoScale struct {
	Effect
	width  opentime.Rational
	height opentime.Rational
}

func NewVideoScale(name string, width, height opentime.Rational) *VideoScale {
	v := &VideoScale{width: width, height: height}
	v.name = name
	v.effectName = "VideoScale"
	v.enabled = true
	return v
}

func (v *VideoScale) SchemaName() string { return "VideoScale" }
func (v *VideoScale) SchemaVersion() int { return 1 }

func (v *VideoScale) Width() opentime.Rational      { return v.width }
func (v *VideoScale) SetWidth(q opentime.Rational)  { v.width = q }
func (v *VideoScale) Height() opentime.Rational     { return v.height }
func (v *VideoScale) SetHeight(q opentime.Rational) { v.height = q }

func (v *VideoScale) writeTo(w *writer) {
	v.Effect.writeTo(w)
	w.putRational("width", v.width)
	w.putRational("height", v.height)
}

func (v *VideoScale) readFrom(r *reader) error {
	if err := v.Effect.readFrom(r); err != nil {
		return err
	}
	var err error
	if v.width, err = r.readRational("width", one); err != nil {
		return err
	}
	v.height, err = r.readRational("height", one)
	return err
}

// VideoCrop keeps the part of the picture inside the given edges, in
// normalized coordinates from -1 to 1.
type VideoCrop struct {
	Effect
	left, right, top, bottom opentime.Rational
}

func NewVideoCrop(name string, left, right, top, bottom opentime.Rational) *VideoCrop {
	v := &VideoCrop{left: left, right: right, top: top, bottom: bottom}
	v.name = name
	v.effectName = "VideoCrop"
	v.enabled = true
	return v
}

func (v *VideoCrop) SchemaName() string { return "VideoCrop" }
func (v *VideoCrop) SchemaVersion() int { return 1 }

func (v *VideoCrop) Left() opentime.Rational   { return v.left }
func (v *VideoCrop) Right() opentime.Rational  { return v.right }
func (v *VideoCrop) Top() opentime.Rational    { return v.top }
func (v *VideoCrop) Bottom() opentime.Rational { return v.bottom }

// SetEdges replaces all four edges.
func (v *VideoCrop) SetEdges(left, right, top, bottom opentime.Rational) {
	v.left, v.right, v.top, v.bottom = left, right, top, bottom
}

func (v *VideoCrop) writeTo(w *writer) {
	v.Effect.writeTo(w)
	w.putRational("left", v.left)
	w.putRational("right", v.right)
	w.putRational("top", v.top)
	w.putRational("bottom", v.bottom)
}

func (v *VideoCrop) readFrom(r *reader) error {
	if err := v.Effect.readFrom(r); err != nil {
		return err
	}
	fields := []struct {
		key string
		dst *opentime.Rational
		def opentime.Rational
	}{
		{"left", &v.left, minusOne},
		{"right", &v.right, one},
		{"top", &v.top, minusOne},
		{"bottom", &v.bottom, one},
	}
	for _, f := range fields {
		q, err := r.readRational(f.key, f.def)
		if err != nil {
			return err
		}
		*f.dst = q
	}
	return nil
}

// VideoPosition offsets the picture.
type VideoPosition struct {
	Effect
	x, y opentime.Rational
}

func NewVideoPosition(name string, x, y opentime.Rational) *VideoPosition {
	v := &VideoPosition{x: x, y: y}
	v.name = name
	v.effectName = "VideoPosition"
	v.enabled = true
	return v
}

func (v *VideoPosition) SchemaName() string { return "VideoPosition" }
func (v *VideoPosition) SchemaVersion() int { return 1 }

func (v *VideoPosition) X() opentime.Rational { return v.x }
func (v *VideoPosition) Y() opentime.Rational { return v.y }

func (v *VideoPosition) SetPosition(x, y opentime.Rational) { v.x, v.y = x, y }

func (v *VideoPosition) writeTo(w *writer) {
	v.Effect.writeTo(w)
	w.putRational("x", v.x)
	w.putRational("y", v.y)
}

func (v *VideoPosition) readFrom(r *reader) error {
	if err := v.Effect.readFrom(r); err != nil {
		return err
	}
	var err error
	if v.x, err = r.readRational("x", zero); err != nil {
		return err
	}
	v.y, err = r.readRational("y", zero)
	return err
}

// VideoRotate rotates the picture by angle degrees.
type VideoRotate struct {
	Effect
	angle opentime.Rational
}

func NewVideoRotate(name string, angle opentime.Rational) *VideoRotate {
	v := &VideoRotate{angle: angle}
	v.name = name
	v.effectName = "VideoRotate"
	v.enabled = true
	return v
}

func (v *VideoRotate) SchemaName() string { return "VideoRotate" }
func (v *VideoRotate) SchemaVersion() int { return 1 }

func (v *VideoRotate) Angle() opentime.Rational     { return v.angle }
func (v *VideoRotate) SetAngle(q opentime.Rational) { v.angle = q }

func (v *VideoRotate) writeTo(w *writer) {
	v.Effect.writeTo(w)
	w.putRational("angle", v.angle)
}

func (v *VideoRotate) readFrom(r *reader) error {
	if err := v.Effect.readFrom(r); err != nil {
		return err
	}
	var err error
	v.angle, err = r.readRational("angle", zero)
	return err
}
