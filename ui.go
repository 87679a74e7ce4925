package main

import (
	"errors"
	"image"
	"io"
	"path/filepath"

	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"git.sr.ht/~gioverse/skel/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/builder"
	"git.sr.ht/~whereswaldon/chartview/datasource"
	"git.sr.ht/~whereswaldon/chartview/measure"
	"git.sr.ht/~whereswaldon/chartview/surface"
	"git.sr.ht/~whereswaldon/chartview/timer"
	"git.sr.ht/~whereswaldon/chartview/view"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

// UI is responsible for holding the state of and drawing the top-level UI.
type UI struct {
	ws      WindowState
	expl    *explorer.Explorer
	th      *material.Theme
	log     zerolog.Logger
	timers  *timer.Loop
	shaper  *measure.Shaper
	pool    *surface.Pool
	options view.Options
	// registry receives the metrics of the shown view when set.
	registry *prometheus.Registry

	sessionStream *stream.Stream[datasource.Session]
	session       datasource.Session
	shownID       string
	shownLoads    int

	chart       *ChartView
	explorerBtn widget.Clickable
	openErr     error
	opened      chan openResult
}

type openResult struct {
	id  string
	err error
}

func NewUI(ws WindowState, expl *explorer.Explorer, timers *timer.Loop, shaper *measure.Shaper, opts view.Options, log zerolog.Logger) *UI {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()), text.NoSystemFonts())
	pool := surface.NewPool(surface.Options{
		Backend: &surface.ImageBackend{},
		Timers:  timers,
		Logger:  &log,
	})
	opts.Measurer = shaper
	opts.Timers = timers
	opts.Logger = &log
	opts.Builder = builder.New(builder.Options{Pool: pool, Logger: &log})
	return &UI{
		ws:            ws,
		expl:          expl,
		th:            th,
		log:           log,
		timers:        timers,
		shaper:        shaper,
		pool:          pool,
		options:       opts,
		sessionStream: stream.New(ws.Controller, ws.Bundle.Library.Latest),
		opened:        make(chan openResult, 1),
	}
}

// Close releases the chart view and the surface pool.
func (ui *UI) Close() {
	if ui.chart != nil {
		ui.chart.Close()
	}
	ui.pool.Shutdown()
}

// Update the state of the UI from streams, timers and input.
func (ui *UI) Update(gtx C) {
	ui.timers.Drain()
	ui.sessionStream.ReadInto(gtx, &ui.session, datasource.Session{})
	if ui.session.Chart != nil && (ui.session.ID != ui.shownID || ui.session.Loads != ui.shownLoads) {
		playing := false
		if ui.chart != nil {
			playing = ui.chart.view.TimeBased()
			ui.chart.Close()
		}
		ui.chart = NewChartView(view.New(ui.session.Chart, ui.options), ui.log, ui.registry)
		if playing {
			if err := ui.chart.view.EnableTimeBased(); err != nil {
				ui.log.Debug().Err(err).Msg("reloaded chart cannot play")
			}
		}
		ui.shownID, ui.shownLoads = ui.session.ID, ui.session.Loads
		ui.log.Info().Str("session", ui.session.ID).Str("file", ui.session.Name).Int("load", ui.session.Loads).Msg("showing chart")
	}
	select {
	case res := <-ui.opened:
		ui.openErr = res.err
	default:
	}
	if ui.explorerBtn.Clicked(gtx) {
		go ui.choose()
	}
}

// choose runs the file dialog. It blocks, so it never runs on the UI
// goroutine.
func (ui *UI) choose() {
	rc, err := ui.expl.ChooseFile(".yaml", ".yml", ".xlsx", ".csv")
	if err != nil {
		if !errors.Is(err, explorer.ErrUserDecline) {
			ui.log.Error().Err(err).Msg("choosing file")
			ui.opened <- openResult{err: err}
		}
		return
	}
	ui.opened <- openResult{id: ui.ws.Bundle.Library.OpenReader(nameOf(rc), rc)}
}

func nameOf(rc io.ReadCloser) string {
	if f, ok := rc.(interface{ Name() string }); ok {
		return filepath.Base(f.Name())
	}
	return "chart.yaml"
}

func (ui *UI) Layout(gtx C) D {
	ui.Update(gtx)
	paint.FillShape(gtx.Ops, ui.th.Bg, clip.Rect{Max: gtx.Constraints.Max}.Op())
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(ui.layoutToolbar),
		layout.Flexed(1, func(gtx C) D {
			if ui.chart == nil {
				return layout.Center.Layout(gtx, material.Body1(ui.th, ui.placeholder()).Layout)
			}
			return ui.chart.Layout(gtx, ui.th)
		}),
	)
}

func (ui *UI) placeholder() string {
	if ui.session.Err != nil {
		return ui.session.Err.Error()
	}
	return "Open a chart document, workbook or energy trace"
}

func (ui *UI) layoutToolbar(gtx C) D {
	return layout.UniformInset(4).Layout(gtx, func(gtx C) D {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(material.Button(ui.th, &ui.explorerBtn, "Open").Layout),
			layout.Rigid(layout.Spacer{Width: 8}.Layout),
			layout.Rigid(func(gtx C) D {
				if ui.chart == nil {
					return D{}
				}
				return ui.chart.PlayButton(gtx, ui.th)
			}),
			layout.Rigid(layout.Spacer{Width: 8}.Layout),
			layout.Flexed(1, func(gtx C) D {
				gtx.Constraints.Min = image.Point{}
				return material.Body2(ui.th, ui.status()).Layout(gtx)
			}),
		)
	})
}

func (ui *UI) status() string {
	switch {
	case ui.openErr != nil:
		return ui.openErr.Error()
	case ui.session.Err != nil:
		return ui.session.Name + ": " + ui.session.Err.Error()
	case ui.chart != nil:
		return ui.session.Name + "  " + ui.chart.Status()
	default:
		return ""
	}
}

// WindowState binds the application bundle to one window.
type WindowState struct {
	Bundle
	Controller *stream.Controller
}

// Bundle holds the application state shared between windows.
type Bundle struct {
	Library *datasource.Library
}

func NewBundle(mutator *stream.Mutator, opts datasource.LoadOptions) Bundle {
	return Bundle{
		Library: datasource.NewLibrary(mutator, opts),
	}
}
