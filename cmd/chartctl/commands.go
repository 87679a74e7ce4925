package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"git.sr.ht/~whereswaldon/chartview/datasource"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/timer"
	"git.sr.ht/~whereswaldon/chartview/view"
)

// parseSize parses WIDTHxHEIGHT.
func parseSize(s string) (geom.Size, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return geom.Size{}, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseFloat(ws, 32)
	if err != nil {
		return geom.Size{}, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.ParseFloat(hs, 32)
	if err != nil {
		return geom.Size{}, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	size := geom.Size{Width: float32(w), Height: float32(h)}
	if size.Empty() {
		return geom.Size{}, fmt.Errorf("size %q is empty", s)
	}
	return size, nil
}

// session is the chart and logger every subcommand starts from.
type session struct {
	log   zerolog.Logger
	chart *model.Chart
	page  geom.Size
}

func open(cmd *cli.Command) (*session, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, errors.New("missing chart file argument")
	}
	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	page, err := parseSize(cmd.String("size"))
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseChartKind(cmd.String("kind"))
	if err != nil {
		return nil, err
	}
	chart, err := datasource.Load(path, datasource.LoadOptions{
		Workbook: datasource.WorkbookOptions{Kind: kind},
		Trace: datasource.TraceOptions{
			Window:  cmd.Duration("window"),
			Buckets: int(cmd.Int("buckets")),
			Kind:    kind,
		},
		Logger: &log,
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return &session{log: log, chart: chart, page: page}, nil
}

func (s *session) view(timers timer.Service, interval time.Duration) *view.View {
	return view.New(s.chart, view.Options{
		PageSize:      s.page,
		Timers:        timers,
		FrameInterval: interval,
		Logger:        &s.log,
	})
}

func dumpCmd() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Print the shape tree of a chart",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fingerprint",
				Usage: "print only the tree fingerprint",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			v := s.view(nil, 0)
			defer v.Close()
			if err := v.Update(); err != nil {
				return err
			}
			out := cmd.Root().Writer
			if cmd.Bool("fingerprint") {
				_, err := fmt.Fprintf(out, "%016x\n", v.Tree().Fingerprint())
				return err
			}
			dump, err := v.DumpAsDebugTree()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, dump)
			return err
		},
	}
}

func axesCmd() *cli.Command {
	return &cli.Command{
		Name:      "axes",
		Usage:     "Print the resolved scale and tick distance of every axis",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			v := s.view(nil, 0)
			defer v.Close()
			if err := v.Update(); err != nil {
				return err
			}
			out := cmd.Root().Writer
			for csi, cs := range s.chart.Diagram().CoordinateSystems() {
				for _, slot := range cs.Axes() {
					scale, inc, err := v.ExplicitValuesForAxis(slot.Axis)
					if err != nil {
						fmt.Fprintf(out, "cs=%d dim=%d index=%d unavailable: %v\n", csi, slot.Dimension, slot.Index, err)
						continue
					}
					fmt.Fprintf(out, "cs=%d dim=%d index=%d type=%s min=%g max=%g origin=%g step=%g log=%t\n",
						csi, slot.Dimension, slot.Index, scale.AxisType, scale.Minimum, scale.Maximum, scale.Origin, inc.Distance, scale.Logarithmic)
				}
			}
			return nil
		},
	}
}

// tickHook runs after once every scheduled callback has run.
type tickHook struct {
	timer.Service
	after func()
}

func (t *tickHook) Schedule(d time.Duration, fn func()) timer.Handle {
	return t.Service.Schedule(d, func() {
		fn()
		t.after()
	})
}

func playCmd() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Step through the time frames of a chart, printing a fingerprint per frame",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "ticks",
				Usage: "number of frames to show; zero shows every frame once",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "time between frames",
				Value: 50 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			ticks := int(cmd.Int("ticks"))
			if ticks <= 0 {
				ticks = s.chart.TimeFrameCount()
			}
			loop := timer.NewLoop(nil)
			defer loop.Stop()
			var (
				v     *view.View
				shown int
				done  = make(chan error, 1)
			)
			out := cmd.Root().Writer
			hook := &tickHook{Service: loop, after: func() {
				k, _ := v.DisplayedFrame()
				if t := v.Tree(); t != nil {
					fmt.Fprintf(out, "frame %d %016x\n", k, t.Fingerprint())
				}
				shown++
				if shown == ticks {
					v.DisableTimeBased()
					done <- nil
				}
			}}
			v = s.view(hook, cmd.Duration("interval"))
			defer v.Close()
			if err := v.Update(); err != nil {
				return err
			}
			if err := v.EnableTimeBased(); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					done <- err
				}
			}()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

func convertCmd() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Write a chart file as a YAML chart document",
		ArgsUsage: "FILE [OUT]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			target := cmd.Args().Get(1)
			if target == "" || target == "-" {
				return datasource.Encode(cmd.Root().Writer, s.chart)
			}
			f, err := os.Create(target)
			if err != nil {
				return err
			}
			if err := datasource.Encode(f, s.chart); err != nil {
				return errors.Join(err, f.Close())
			}
			return f.Close()
		},
	}
}
