package model

import (
	"fmt"
	"slices"
	"strings"
)

// Title is a single line of text placed above the diagram.
type Title struct {
	bc    Broadcaster
	text  string
	props *PropertySet
}

var _ Observable = (*Title)(nil)

// NewTitle returns a main title. Main titles default to a larger font than
// subtitles.
func NewTitle(text string) *Title {
	return newTitle(text, 13)
}

// NewSubtitle returns a subtitle.
func NewSubtitle(text string) *Title {
	return newTitle(text, 11)
}

func newTitle(text string, size float32) *Title {
	t := &Title{text: text}
	t.props = newPropertySet(t, t.bc.Fire, charHeight(size), referencePageSize)
	return t
}

func (t *Title) Subscribe(l Listener) Handle { return t.bc.Subscribe(l) }
func (t *Title) Unsubscribe(h Handle)        { t.bc.Unsubscribe(h) }
func (t *Title) Properties() *PropertySet    { return t.props }

func (t *Title) Text() string { return t.text }

func (t *Title) SetText(s string) {
	t.text = s
	t.bc.Fire(t)
}

func (t *Title) Clone() *Title {
	c := &Title{text: t.text}
	c.props = t.props.clone(c, c.bc.Fire)
	return c
}

// LegendPosition is where the legend is placed relative to the diagram.
type LegendPosition uint8

const (
	LegendRight LegendPosition = iota
	LegendLeft
	LegendTop
	LegendBottom
	// LegendInside draws the legend over the diagram without reserving
	// space for it.
	LegendInside
)

var legendPositionNames = []string{"right", "left", "top", "bottom", "inside"}

func (p LegendPosition) String() string {
	if int(p) < len(legendPositionNames) {
		return legendPositionNames[p]
	}
	return "unknown"
}

// ParseLegendPosition converts a position name back to its value.
func ParseLegendPosition(s string) (LegendPosition, error) {
	i := slices.Index(legendPositionNames, strings.ToLower(s))
	if i < 0 {
		return 0, fmt.Errorf("unknown legend position %q", s)
	}
	return LegendPosition(i), nil
}

// Legend lists the series of the chart with their colors.
type Legend struct {
	bc       Broadcaster
	show     bool
	position LegendPosition
	props    *PropertySet
}

var _ Observable = (*Legend)(nil)

// NewLegend returns a visible legend on the right of the diagram.
func NewLegend() *Legend {
	l := &Legend{show: true}
	l.props = newPropertySet(l, l.bc.Fire, charHeight(10), referencePageSize)
	return l
}

func (l *Legend) Subscribe(li Listener) Handle { return l.bc.Subscribe(li) }
func (l *Legend) Unsubscribe(h Handle)         { l.bc.Unsubscribe(h) }
func (l *Legend) Properties() *PropertySet     { return l.props }

func (l *Legend) Show() bool { return l.show }

func (l *Legend) SetShow(v bool) {
	l.show = v
	l.bc.Fire(l)
}

func (l *Legend) Position() LegendPosition { return l.position }

func (l *Legend) SetPosition(p LegendPosition) {
	l.position = p
	l.bc.Fire(l)
}

func (l *Legend) Clone() *Legend {
	c := &Legend{show: l.show, position: l.position}
	c.props = l.props.clone(c, c.bc.Fire)
	return c
}
