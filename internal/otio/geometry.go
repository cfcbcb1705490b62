package otio

import "math"

// V2d is a 2D vector used for image bounds.
type V2d struct {
	X, Y float64
}

// Box2d is an axis aligned box. Min is the lower left corner.
type Box2d struct {
	Min, Max V2d
}

func NewBox2d(minX, minY, maxX, maxY float64) Box2d {
	return Box2d{Min: V2d{minX, minY}, Max: V2d{maxX, maxY}}
}

func (b Box2d) Center() V2d {
	return V2d{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

func (b Box2d) Contains(p V2d) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b Box2d) Intersects(other Box2d) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y
}

// ExtendBy returns the smallest box covering b and other.
func (b Box2d) ExtendBy(other Box2d) Box2d {
	return Box2d{
		Min: V2d{math.Min(b.Min.X, other.Min.X), math.Min(b.Min.Y, other.Min.Y)},
		Max: V2d{math.Max(b.Max.X, other.Max.X), math.Max(b.Max.Y, other.Max.Y)},
	}
}
