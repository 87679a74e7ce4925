package model

import (
	"fmt"
	"reflect"
	"slices"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
)

// Well known property names.
const (
	// PropCharHeight is the font size of an object's text, in points at
	// the reference page size.
	PropCharHeight = "CharHeight"
	// PropReferencePageSize is the page size the CharHeight was chosen
	// for. It is void unless auto-resize is on for the object.
	PropReferencePageSize = "ReferencePageSize"
	// PropSwapXAndYAxis draws dimension 0 vertically.
	PropSwapXAndYAxis = "SwapXAndYAxis"
)

// Property declares a property a PropertySet supports.
type Property struct {
	Name string
	// Default is returned while the property is unset. A nil Default makes
	// the property "void" until set.
	Default any
	Type    reflect.Type
}

func valueProperty(name string, def any) Property {
	return Property{Name: name, Default: def, Type: reflect.TypeOf(def)}
}

func voidProperty(name string, sample any) Property {
	return Property{Name: name, Type: reflect.TypeOf(sample)}
}

func charHeight(def float32) Property {
	return valueProperty(PropCharHeight, def)
}

var referencePageSize = voidProperty(PropReferencePageSize, geom.Size{})

// PropertyBag is implemented by objects that expose a PropertySet.
type PropertyBag interface {
	Properties() *PropertySet
}

// PropertySet is a small typed property store. Every successful Set or
// Clear fires a modify notification through the owning object, even when
// the value did not change.
type PropertySet struct {
	owner  any
	fire   func(source any)
	decl   map[string]Property
	values map[string]any
}

func newPropertySet(owner any, fire func(any), props ...Property) *PropertySet {
	p := &PropertySet{
		owner:  owner,
		fire:   fire,
		decl:   make(map[string]Property, len(props)),
		values: make(map[string]any),
	}
	for _, prop := range props {
		p.decl[prop.Name] = prop
	}
	return p
}

// Supports reports whether name is a property of the set.
func (p *PropertySet) Supports(name string) bool {
	_, ok := p.decl[name]
	return ok
}

// Names returns the supported property names in sorted order.
func (p *PropertySet) Names() []string {
	names := make([]string, 0, len(p.decl))
	for n := range p.decl {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Value returns the current value of name, or its default. Void
// properties return nil.
func (p *PropertySet) Value(name string) (any, error) {
	prop, ok := p.decl[name]
	if !ok {
		return nil, errkind.UnknownProperty.New(name)
	}
	if v, ok := p.values[name]; ok {
		return v, nil
	}
	return prop.Default, nil
}

// IsSet reports whether name holds an explicitly set value.
func (p *PropertySet) IsSet(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Set assigns v to name. v must have the property's declared type.
func (p *PropertySet) Set(name string, v any) error {
	prop, ok := p.decl[name]
	if !ok {
		return errkind.UnknownProperty.New(name)
	}
	if reflect.TypeOf(v) != prop.Type {
		return fmt.Errorf("property %q: expected %v, got %T", name, prop.Type, v)
	}
	p.values[name] = v
	p.fire(p.owner)
	return nil
}

// Clear resets name to its default value.
func (p *PropertySet) Clear(name string) error {
	if _, ok := p.decl[name]; !ok {
		return errkind.UnknownProperty.New(name)
	}
	delete(p.values, name)
	p.fire(p.owner)
	return nil
}

// Float32 returns the float32 value of name, or 0 when the property is
// unknown or of another type.
func (p *PropertySet) Float32(name string) float32 {
	v, _ := p.Value(name)
	f, _ := v.(float32)
	return f
}

// Bool returns the bool value of name, or false when the property is
// unknown or of another type.
func (p *PropertySet) Bool(name string) bool {
	v, _ := p.Value(name)
	b, _ := v.(bool)
	return b
}

// ReferencePageSize returns the reference page size if one is set.
func (p *PropertySet) ReferencePageSize() (geom.Size, bool) {
	v, _ := p.Value(PropReferencePageSize)
	s, ok := v.(geom.Size)
	return s, ok
}

func (p *PropertySet) clone(owner any, fire func(any)) *PropertySet {
	c := &PropertySet{
		owner:  owner,
		fire:   fire,
		decl:   p.decl,
		values: make(map[string]any, len(p.values)),
	}
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}
