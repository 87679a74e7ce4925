package datasource

import (
	"context"
	"io"
	"path/filepath"

	"git.sr.ht/~gioverse/skel/stream"
	"github.com/oklog/ulid/v2"

	"git.sr.ht/~whereswaldon/chartview/model"
)

// Session is the latest state of one opened chart file.
type Session struct {
	ID    string
	Name  string
	Chart *model.Chart
	Err   error
	// Loads counts successful loads, reloads included.
	Loads int
}

// Library tracks the chart files opened by an application. Every file is
// a session whose state is published as a stream.
type Library struct {
	pool *stream.MutationPool[string, Session]
	opts LoadOptions
}

func NewLibrary(mutator *stream.Mutator, opts LoadOptions) *Library {
	return &Library{
		pool: stream.NewMutationPool[string, Session](mutator),
		opts: opts,
	}
}

// Open starts a session that follows the file at path and returns its ID.
func (l *Library) Open(path string) string {
	id := ulid.Make().String()
	stream.Mutate(l.pool, id, func(ctx context.Context) <-chan Session {
		out := make(chan Session, 1)
		go func() {
			defer close(out)
			session := Session{ID: id, Name: filepath.Base(path)}
			for u := range Watch(ctx, path, l.opts) {
				session.Err = u.Err
				if u.Err == nil {
					session.Chart = u.Chart
					session.Loads++
				}
				select {
				case out <- session:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
	return id
}

// OpenReader starts a session from an already open file, such as one
// chosen in a file dialog. Files that expose their name on disk are
// followed like Open; anything else is read once.
func (l *Library) OpenReader(name string, rc io.ReadCloser) string {
	if f, ok := rc.(interface{ Name() string }); ok && filepath.IsAbs(f.Name()) {
		rc.Close()
		return l.Open(f.Name())
	}
	id := ulid.Make().String()
	stream.Mutate(l.pool, id, func(ctx context.Context) <-chan Session {
		out := make(chan Session, 1)
		defer rc.Close()
		session := Session{ID: id, Name: name}
		session.Chart, session.Err = LoadReader(name, rc, l.opts)
		if session.Err == nil {
			session.Loads = 1
		}
		out <- session
		close(out)
		return out
	})
	return id
}

// Sessions streams the set of open sessions.
func (l *Library) Sessions(ctx context.Context) <-chan map[string]*stream.Mutation[Session] {
	return l.pool.Stream(ctx)
}

// Stream follows one session.
func (l *Library) Stream(ctx context.Context, id string) <-chan Session {
	ctx2, cancel := context.WithCancel(ctx)
	m := (<-l.Sessions(ctx2))[id]
	cancel()
	if m == nil {
		out := make(chan Session)
		close(out)
		return out
	}
	return m.Stream(ctx)
}

// Latest follows whichever session was opened last.
func (l *Library) Latest(ctx context.Context) <-chan Session {
	return stream.Multiplex(l.Sessions(ctx), func(ctx context.Context, current string, sessions map[string]*stream.Mutation[Session]) (<-chan Session, string) {
		newest := current
		for id := range sessions {
			if id > newest {
				newest = id
			}
		}
		if newest == current {
			return nil, current
		}
		return sessions[newest].Stream(ctx), newest
	})
}
