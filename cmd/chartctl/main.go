// Command chartctl lays out and builds charts without a window. It dumps
// shape trees, prints resolved axis scales, steps through time-based
// charts and converts chart files to YAML documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := App().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// App returns the root command. Output goes to the command's Writer.
func App() *cli.Command {
	return &cli.Command{
		Name:  "chartctl",
		Usage: "Build charts from YAML documents, xlsx workbooks and energy traces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "minimum level of logged messages",
				Value:   "warn",
				Sources: cli.EnvVars("CHARTVIEW_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "size",
				Usage:   "page size as WIDTHxHEIGHT",
				Value:   "800x600",
				Sources: cli.EnvVars("CHARTVIEW_PAGE_SIZE"),
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
				Name:  "kind",
				Usage: "chart kind of imported workbooks and traces",
				Value: "line",
			},
		},
		Commands: []*cli.Command{
			dumpCmd(),
			axesCmd(),
			playCmd(),
			convertCmd(),
		},
	}
}

func newLogger(cmd *cli.Command) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.Root().ErrWriter}).
		Level(lvl).With().Timestamp().Logger(), nil
}
