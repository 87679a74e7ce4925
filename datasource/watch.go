package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/model"
)

// LoadOptions configures Load and Watch.
type LoadOptions struct {
	Workbook WorkbookOptions
	Trace    TraceOptions
	// RetryFor bounds how long a failing read is retried after a write
	// event. Files are often caught half written. Defaults to 2s.
	RetryFor time.Duration
	Logger   *zerolog.Logger
}

func (o LoadOptions) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

// Load reads the chart stored at path. The format follows the extension:
// .yaml and .yml documents, .xlsx workbooks or .csv energy traces.
func Load(path string, opts LoadOptions) (*model.Chart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadReader(filepath.Base(path), f, opts)
}

// LoadReader is Load for an already open file. name only selects the
// format.
func LoadReader(name string, r io.Reader, opts LoadOptions) (*model.Chart, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		return Decode(r)
	case ".xlsx":
		return ImportWorkbook(r, opts.Workbook)
	case ".csv":
		set, err := ReadTraces(r, opts.logger())
		if err != nil {
			return nil, err
		}
		return set.Chart(opts.Trace)
	default:
		return nil, errkind.UnsupportedFormat.New(ext)
	}
}

// Update is one result of watching a file.
type Update struct {
	Chart *model.Chart
	Err   error
}

// Watch loads path and loads it again after every write until ctx is
// done. Failed reads are retried with exponential backoff. The channel
// is closed when watching stops.
func Watch(ctx context.Context, path string, opts LoadOptions) <-chan Update {
	out := make(chan Update, 1)
	go func() {
		defer close(out)
		log := opts.logger().With().Str("path", path).Logger()
		send := func(u Update) bool {
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			send(Update{Err: fmt.Errorf("failed creating file watcher: %w", err)})
			return
		}
		defer watcher.Close()
		if err := watcher.Add(path); err != nil {
			send(Update{Err: fmt.Errorf("watching %s: %w", path, err)})
			return
		}
		if !send(load(ctx, path, opts, log)) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("file watcher error")
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					// Editors often save by replacing the file.
					if err := rewatch(ctx, watcher, path, opts.RetryFor); err != nil {
						send(Update{Err: err})
						return
					}
				} else if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				log.Debug().Str("op", ev.Op.String()).Msg("reloading")
				if !send(load(ctx, path, opts, log)) {
					return
				}
			}
		}
	}()
	return out
}

func retryPolicy(ctx context.Context, retryFor time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = retryFor
	if retryFor <= 0 {
		b.MaxElapsedTime = 2 * time.Second
	}
	return backoff.WithContext(b, ctx)
}

func load(ctx context.Context, path string, opts LoadOptions, log zerolog.Logger) Update {
	var chart *model.Chart
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, err := Load(path, opts)
		if errkind.UnsupportedFormat.Is(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("load failed")
			return err
		}
		chart = c
		return nil
	}, retryPolicy(ctx, opts.RetryFor))
	if err != nil {
		return Update{Err: err}
	}
	return Update{Chart: chart}
}

func rewatch(ctx context.Context, w *fsnotify.Watcher, path string, retryFor time.Duration) error {
	_ = w.Remove(path)
	err := backoff.Retry(func() error {
		return w.Add(path)
	}, retryPolicy(ctx, retryFor))
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watching %s again: %w", path, err)
	}
	return err
}
