// Command chartview shows charts stored as YAML chart documents, xlsx
// workbooks or CSV energy traces, reloading them whenever they change on
// disk.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/x/explorer"
	"git.sr.ht/~gioverse/skel/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"git.sr.ht/~whereswaldon/chartview/datasource"
	"git.sr.ht/~whereswaldon/chartview/measure"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/timer"
	"git.sr.ht/~whereswaldon/chartview/view"
)

func main() {
	cmd := &cli.Command{
		Name:      "chartview",
		Usage:     "Show charts from YAML documents, xlsx workbooks and energy traces",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "minimum level of logged messages",
				Value:   "info",
				Sources: cli.EnvVars("CHARTVIEW_LOG_LEVEL"),
			},
			&cli.DurationFlag{
				Name:    "frame-interval",
				Usage:   "time between frames of time-based charts",
				Value:   view.DefaultFrameInterval,
				Sources: cli.EnvVars("CHARTVIEW_FRAME_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:  "window",
				Usage: "time span of one frame of an energy trace; zero shows the whole trace",
			},
			&cli.IntFlag{
				Name:  "buckets",
				Usage: "categories per frame of an energy trace",
				Value: 10,
			},
			&cli.StringFlag{
				Name:    "metrics",
				Usage:   "host:port to serve prometheus metrics on",
				Sources: cli.EnvVars("CHARTVIEW_METRICS"),
			},
		},
		Action: run,
	}
	go func() {
		if err := cmd.Run(context.Background(), os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).With().Timestamp().Logger(), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shaper, err := measure.NewShaper(measure.ShaperOptions{Logger: &log})
	if err != nil {
		return err
	}
	defer shaper.Close()

	w := app.NewWindow(app.Title("chartview"), app.Size(unit.Dp(960), unit.Dp(640)))
	timers := timer.NewLoop(w.Invalidate)
	defer timers.Stop()

	mutator := stream.NewMutator(ctx, time.Second)
	bundle := NewBundle(mutator, datasource.LoadOptions{
		Trace: datasource.TraceOptions{
			Window:  cmd.Duration("window"),
			Buckets: int(cmd.Int("buckets")),
			Kind:    model.Line,
		},
		Logger: &log,
	})
	for _, arg := range cmd.Args().Slice() {
		path, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		bundle.Library.Open(path)
	}
	ws := WindowState{
		Bundle:     bundle,
		Controller: stream.NewController(ctx, w.Invalidate),
	}
	expl := explorer.NewExplorer(w)
	ui := NewUI(ws, expl, timers, shaper, view.Options{FrameInterval: cmd.Duration("frame-interval")}, log)
	defer ui.Close()

	if addr := cmd.String("metrics"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(ui.pool.Collectors()...)
		ui.registry = reg
		srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("serving metrics")
			}
		}()
		defer srv.Close()
		log.Info().Str("addr", addr).Msg("serving metrics")
	}
	return loop(w, ui, expl)
}

func loop(w *app.Window, ui *UI, expl *explorer.Explorer) error {
	var ops op.Ops
	for {
		e := w.NextEvent()
		expl.ListenEvents(e)
		switch ev := e.(type) {
		case app.DestroyEvent:
			return ev.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, ev)
			ui.Layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}
