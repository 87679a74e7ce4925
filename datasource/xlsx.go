package datasource

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"git.sr.ht/~whereswaldon/chartview/model"
)

// WorkbookOptions configures ImportWorkbook.
type WorkbookOptions struct {
	// Kind is the chart kind of the imported series. Defaults to bars.
	Kind  model.ChartKind
	Title string
}

// ImportWorkbook builds a chart from an xlsx workbook. The header row of
// the first sheet names the categories and the first column names the
// series. Every sheet holds one time frame; the first sheet also gives
// the static values. Empty and non-numeric cells become NaN.
func ImportWorkbook(r io.Reader, opts WorkbookOptions) (*model.Chart, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	var (
		categories []string
		names      []string
		frames     [][][]float64
	)
	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if i == 0 {
			for _, c := range rows[0][min(1, len(rows[0])):] {
				categories = append(categories, strings.TrimSpace(c))
			}
			for _, row := range rows[1:] {
				name := ""
				if len(row) > 0 {
					name = strings.TrimSpace(row[0])
				}
				names = append(names, name)
			}
		}
		frame := make([][]float64, len(names))
		for s := range frame {
			frame[s] = make([]float64, len(categories))
			for c := range frame[s] {
				frame[s][c] = math.NaN()
			}
		}
		for r, row := range rows[1:] {
			if r >= len(names) || len(row) == 0 {
				continue
			}
			for c, cell := range row[1:] {
				if c >= len(categories) {
					break
				}
				if v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
					frame[r][c] = v
				}
			}
		}
		frames = append(frames, frame)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("sheet %q has no series rows", sheets[0])
	}

	cs, err := model.NewCoordinateSystem(model.Cartesian, 2)
	if err != nil {
		return nil, err
	}
	ct := model.NewChartType(opts.Kind)
	for s, name := range names {
		series := model.NewDataSeries(name, frames[0][s]...)
		if len(frames) > 1 {
			tv := make([][]float64, len(frames))
			for k := range frames {
				tv[k] = frames[k][s]
			}
			series.SetTimeValues(tv)
		}
		if err := ct.AddSeries(series); err != nil {
			return nil, err
		}
	}
	if err := cs.AddChartType(ct); err != nil {
		return nil, err
	}
	d := model.NewDiagram(categories...)
	if err := d.AddCoordinateSystem(cs); err != nil {
		return nil, err
	}
	c := model.NewChart(d)
	if opts.Title != "" {
		c.SetTitle(model.NewTitle(opts.Title))
	}
	return c, nil
}
