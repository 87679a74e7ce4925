// Package datasource loads chart models from files: YAML chart documents,
// xlsx workbooks and CSV energy traces. Watch reloads a file whenever it
// is written.
package datasource

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/model"
)

// Document is the YAML form of a chart.
type Document struct {
	Title             string             `yaml:"title,omitempty"`
	Subtitle          string             `yaml:"subtitle,omitempty"`
	Categories        []string           `yaml:"categories,omitempty"`
	Wall              string             `yaml:"wall,omitempty"`
	Legend            *LegendDoc         `yaml:"legend,omitempty"`
	CoordinateSystems []CoordinateSysDoc `yaml:"coordinateSystems"`
}

type LegendDoc struct {
	Show     *bool  `yaml:"show,omitempty"`
	Position string `yaml:"position,omitempty"`
}

type CoordinateSysDoc struct {
	Kind       string         `yaml:"kind,omitempty"`
	Dimension  int            `yaml:"dimension,omitempty"`
	SwapXAndY  bool           `yaml:"swapXAndY,omitempty"`
	Axes       []AxisDoc      `yaml:"axes,omitempty"`
	ChartTypes []ChartTypeDoc `yaml:"chartTypes"`
}

type AxisDoc struct {
	Dimension int      `yaml:"dimension"`
	Index     int      `yaml:"index"`
	Type      string   `yaml:"type,omitempty"`
	Title     string   `yaml:"title,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Origin    *float64 `yaml:"origin,omitempty"`
	Step      *float64 `yaml:"step,omitempty"`
	Log       bool     `yaml:"log,omitempty"`
	Reverse   bool     `yaml:"reverse,omitempty"`
	Hidden    bool     `yaml:"hidden,omitempty"`
	Grid      *bool    `yaml:"grid,omitempty"`
}

type ChartTypeDoc struct {
	Kind     string      `yaml:"kind"`
	Stacking string      `yaml:"stacking,omitempty"`
	Series   []SeriesDoc `yaml:"series"`
}

type SeriesDoc struct {
	Name         string      `yaml:"name"`
	Values       []float64   `yaml:"values"`
	Frames       [][]float64 `yaml:"frames,omitempty"`
	Color        string      `yaml:"color,omitempty"`
	Axis         int         `yaml:"axis,omitempty"`
	ShowValues   bool        `yaml:"showValues,omitempty"`
	Shadow       bool        `yaml:"shadow,omitempty"`
	Transparency uint8       `yaml:"transparency,omitempty"`
}

// Decode reads a YAML chart document and builds its model.
func Decode(r io.Reader) (*model.Chart, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding chart document: %w", err)
	}
	return doc.Chart()
}

// Chart builds the model the document describes.
func (doc *Document) Chart() (*model.Chart, error) {
	d := model.NewDiagram(doc.Categories...)
	if doc.Wall != "" {
		c, err := parseColor(doc.Wall)
		if err != nil {
			return nil, fmt.Errorf("wall: %w", err)
		}
		d.SetWallColor(c)
	}
	for i, csd := range doc.CoordinateSystems {
		cs, err := csd.build()
		if err != nil {
			return nil, fmt.Errorf("coordinate system %d: %w", i, err)
		}
		if err := d.AddCoordinateSystem(cs); err != nil {
			return nil, err
		}
	}
	c := model.NewChart(d)
	if doc.Title != "" {
		c.SetTitle(model.NewTitle(doc.Title))
	}
	if doc.Subtitle != "" {
		c.SetSubtitle(model.NewSubtitle(doc.Subtitle))
	}
	if l := doc.Legend; l != nil {
		if l.Show != nil {
			c.Legend().SetShow(*l.Show)
		}
		if l.Position != "" {
			p, err := model.ParseLegendPosition(l.Position)
			if err != nil {
				return nil, err
			}
			c.Legend().SetPosition(p)
		}
	}
	return c, nil
}

func (csd CoordinateSysDoc) build() (*model.CoordinateSystem, error) {
	kind := model.Cartesian
	switch strings.ToLower(csd.Kind) {
	case "", "cartesian":
	case "polar":
		kind = model.Polar
	default:
		return nil, fmt.Errorf("unknown coordinate system kind %q", csd.Kind)
	}
	dim := csd.Dimension
	if dim == 0 {
		dim = 2
	}
	cs, err := model.NewCoordinateSystem(kind, dim)
	if err != nil {
		return nil, err
	}
	if csd.SwapXAndY {
		cs.SetSwapXAndYAxis(true)
	}
	for _, ad := range csd.Axes {
		a, err := ad.build()
		if err != nil {
			return nil, err
		}
		if err := cs.SetAxisByDimension(ad.Dimension, a, ad.Index); err != nil {
			return nil, err
		}
	}
	for i, ctd := range csd.ChartTypes {
		ct, err := ctd.build()
		if err != nil {
			return nil, fmt.Errorf("chart type %d: %w", i, err)
		}
		if err := cs.AddChartType(ct); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

func (ad AxisDoc) build() (*model.Axis, error) {
	t := model.DefaultAxisType(ad.Dimension)
	if ad.Type != "" {
		var err error
		if t, err = geom.ParseAxisType(ad.Type); err != nil {
			return nil, err
		}
	}
	a := model.NewAxis(t)
	a.SetScale(geom.ScaleData{
		Minimum:     ad.Min,
		Maximum:     ad.Max,
		Origin:      ad.Origin,
		AxisType:    t,
		Reverse:     ad.Reverse,
		Logarithmic: ad.Log,
	})
	if ad.Step != nil {
		a.SetIncrement(geom.IncrementData{Distance: ad.Step})
	}
	a.SetTitle(ad.Title)
	a.SetVisible(!ad.Hidden)
	if ad.Grid != nil {
		a.SetShowGrid(*ad.Grid)
	}
	return a, nil
}

func (ctd ChartTypeDoc) build() (*model.ChartType, error) {
	kind, err := model.ParseChartKind(ctd.Kind)
	if err != nil {
		return nil, err
	}
	stacking, err := model.ParseStacking(ctd.Stacking)
	if err != nil {
		return nil, err
	}
	ct := model.NewChartType(kind)
	ct.SetStacking(stacking)
	for _, sd := range ctd.Series {
		s := model.NewDataSeries(sd.Name, sd.Values...)
		if len(sd.Frames) > 0 {
			s.SetTimeValues(sd.Frames)
		}
		if sd.Color != "" {
			c, err := parseColor(sd.Color)
			if err != nil {
				return nil, fmt.Errorf("series %q: %w", sd.Name, err)
			}
			s.SetColor(c)
		}
		s.SetAttachedAxisIndex(sd.Axis)
		s.SetShowValues(sd.ShowValues)
		s.SetShadow(sd.Shadow)
		s.SetTransparency(sd.Transparency)
		if err := ct.AddSeries(s); err != nil {
			return nil, err
		}
	}
	return ct, nil
}

// Encode writes chart as a YAML document.
func Encode(w io.Writer, chart *model.Chart) error {
	out, err := yaml.Marshal(DocumentOf(chart))
	if err != nil {
		return fmt.Errorf("encoding chart document: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// DocumentOf describes chart as a document. Only axes that differ from
// the coordinate system defaults are listed.
func DocumentOf(chart *model.Chart) *Document {
	doc := &Document{}
	if t := chart.Title(); t != nil {
		doc.Title = t.Text()
	}
	if t := chart.Subtitle(); t != nil {
		doc.Subtitle = t.Text()
	}
	if l := chart.Legend(); l != nil {
		show := l.Show()
		doc.Legend = &LegendDoc{Show: &show, Position: l.Position().String()}
	}
	d := chart.Diagram()
	if d == nil {
		return doc
	}
	doc.Categories = d.Categories()
	if w := d.WallColor(); w != (color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		doc.Wall = formatColor(w)
	}
	for _, cs := range d.CoordinateSystems() {
		csd := CoordinateSysDoc{
			Kind:      cs.Kind().String(),
			Dimension: cs.Dimension(),
			SwapXAndY: cs.SwapXAndYAxis(),
		}
		for _, slot := range cs.Axes() {
			csd.Axes = append(csd.Axes, axisDoc(slot))
		}
		for _, ct := range cs.ChartTypes() {
			ctd := ChartTypeDoc{Kind: ct.Kind().String()}
			if ct.Stacking() != model.NotStacked {
				ctd.Stacking = ct.Stacking().String()
			}
			for _, s := range ct.Series() {
				sd := SeriesDoc{
					Name:         s.Name(),
					Values:       s.Values(),
					Frames:       s.TimeValues(),
					Axis:         s.AttachedAxisIndex(),
					ShowValues:   s.ShowValues(),
					Shadow:       s.Shadow(),
					Transparency: s.Transparency(),
				}
				if c := s.Color(); c.A != 0 {
					sd.Color = formatColor(c)
				}
				ctd.Series = append(ctd.Series, sd)
			}
			csd.ChartTypes = append(csd.ChartTypes, ctd)
		}
		doc.CoordinateSystems = append(doc.CoordinateSystems, csd)
	}
	return doc
}

func axisDoc(slot model.AxisSlot) AxisDoc {
	a := slot.Axis
	sc := a.Scale()
	ad := AxisDoc{
		Dimension: slot.Dimension,
		Index:     slot.Index,
		Type:      sc.AxisType.String(),
		Title:     a.Title(),
		Min:       sc.Minimum,
		Max:       sc.Maximum,
		Origin:    sc.Origin,
		Step:      a.Increment().Distance,
		Log:       sc.Logarithmic,
		Reverse:   sc.Reverse,
		Hidden:    !a.Visible(),
	}
	grid := a.ShowGrid()
	ad.Grid = &grid
	return ad
}

// parseColor parses #rrggbb or #rrggbbaa.
func parseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func formatColor(c color.NRGBA) string {
	if c.A == math.MaxUint8 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
