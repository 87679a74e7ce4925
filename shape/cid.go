package shape

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectType classifies the model object a shape was created for.
type ObjectType string

const (
	Page            ObjectType = "Page"
	Title           ObjectType = "Title"
	Subtitle        ObjectType = "Subtitle"
	Legend          ObjectType = "Legend"
	LegendEntry     ObjectType = "LegendEntry"
	Diagram         ObjectType = "Diagram"
	DiagramWall     ObjectType = "DiagramWall"
	Axis            ObjectType = "Axis"
	AxisTitle       ObjectType = "AxisTitle"
	Grid            ObjectType = "Grid"
	DataSeriesGroup ObjectType = "DataSeriesGroup"
	DataSeries      ObjectType = "DataSeries"
	DataPoint       ObjectType = "DataPoint"
	DataLabel       ObjectType = "DataLabel"
)

// Parameter keys used in CIDs.
const (
	KeyCS     = "CS"
	KeyCT     = "CT"
	KeySeries = "Series"
	KeyPoint  = "Point"
	KeyDim    = "Dim"
	KeyIndex  = "Index"
	KeyEntry  = "Entry"
)

const cidPrefix = "CID/"

// Param is one path component of a CID.
type Param struct {
	Key   string
	Value int
}

// P is shorthand for a Param.
func P(key string, v int) Param { return Param{Key: key, Value: v} }

// CID is a classified object identifier: the object type followed by the
// path of indices that leads to it, for example
// "CID/DataPoint:CS=0:CT=0:Series=1:Point=3". CIDs are stable across
// rebuilds of an unchanged model.
type CID string

// NewCID encodes a CID.
func NewCID(t ObjectType, params ...Param) CID {
	var b strings.Builder
	b.WriteString(cidPrefix)
	b.WriteString(string(t))
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(p.Value))
	}
	return CID(b.String())
}

// ParseCID validates s and returns it as a CID.
func ParseCID(s string) (CID, error) {
	if _, _, err := decode(s); err != nil {
		return "", err
	}
	return CID(s), nil
}

func decode(s string) (ObjectType, []Param, error) {
	rest, ok := strings.CutPrefix(s, cidPrefix)
	if !ok {
		return "", nil, fmt.Errorf("cid %q: missing %q prefix", s, cidPrefix)
	}
	parts := strings.Split(rest, ":")
	if parts[0] == "" {
		return "", nil, fmt.Errorf("cid %q: missing object type", s)
	}
	params := make([]Param, 0, len(parts)-1)
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			return "", nil, fmt.Errorf("cid %q: malformed parameter %q", s, part)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", nil, fmt.Errorf("cid %q: parameter %q: %w", s, k, err)
		}
		params = append(params, Param{Key: k, Value: n})
	}
	return ObjectType(parts[0]), params, nil
}

// Type returns the object type, or "" for a malformed CID.
func (c CID) Type() ObjectType {
	t, _, _ := decode(string(c))
	return t
}

// Params returns the path parameters in order.
func (c CID) Params() []Param {
	_, p, _ := decode(string(c))
	return p
}

// Param returns the value of key.
func (c CID) Param(key string) (int, bool) {
	for _, p := range c.Params() {
		if p.Key == key {
			return p.Value, true
		}
	}
	return 0, false
}

func (c CID) String() string { return string(c) }
