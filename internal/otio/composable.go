package otio

import (
	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Composable is anything that can sit in a Composition's child list.
// A Composable has at most one parent; the parent link is set and cleared
// by the Composition that owns it.
type Composable interface {
	SerializableObject
	Name() string
	SetName(name string)
	Metadata() *AnyDictionary
	Parent() *Composition
	Duration() (opentime.RationalTime, error)
	Visible() bool
	Overlapping() bool
	AvailableImageBounds() (*Box2d, error)

	setParent(p *Composition)
	base() *composable
}

// composable is the state shared by every Composable. self points at the
// outermost value (the *Clip, *Track, ...) so that methods defined on
// embedded structs can reach overriding behaviour.
type composable struct {
	SerializableObjectWithMetadata
	parent *Composition
	self   Composable
}

// NewComposable returns a bare Composable, schema Composable.1. It has no
// duration of its own.
func NewComposable(name string) Composable {
	c := &composable{}
	c.name = name
	c.self = c
	return c
}

func (c *composable) SchemaName() string { return "Composable" }
func (c *composable) SchemaVersion() int { return 1 }

func (c *composable) Parent() *Composition     { return c.parent }
func (c *composable) setParent(p *Composition) { c.parent = p }
func (c *composable) base() *composable        { return c }

func (c *composable) outer() Composable {
	if c.self != nil {
		return c.self
	}
	return c
}

func (c *composable) Visible() bool     { return false }
func (c *composable) Overlapping() bool { return false }

func (c *composable) Duration() (opentime.RationalTime, error) {
	return opentime.RationalTime{}, newError(NotImplemented, "duration is not defined for "+c.outer().SchemaName())
}

func (c *composable) AvailableImageBounds() (*Box2d, error) {
	return nil, newError(NotImplemented, "available image bounds are not defined for "+c.outer().SchemaName())
}
