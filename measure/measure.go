// Package measure provides the text measurement service the layout and
// the shape builder size labels with.
package measure

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/text"
	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
	"golang.org/x/image/math/fixed"

	"git.sr.ht/~whereswaldon/chartview/geom"
)

// Font describes the face a string is measured in. Size is in pixels per
// em.
type Font struct {
	Typeface string
	Size     float32
	Bold     bool
	Italic   bool
}

func (f Font) String() string {
	return fmt.Sprintf("%s/%g/%t/%t", f.Typeface, f.Size, f.Bold, f.Italic)
}

// Measurer reports the size of a single line of text. Implementations
// must be pure: the same input always yields the same size.
type Measurer interface {
	MeasureText(s string, f Font) geom.Size
}

// Approx estimates text extents from the rune count. It is deterministic
// and needs no fonts, which makes it the measurer of choice for tests
// and headless tools.
type Approx struct{}

var _ Measurer = Approx{}

func (Approx) MeasureText(s string, f Font) geom.Size {
	if s == "" || f.Size <= 0 {
		return geom.Size{}
	}
	w := float32(0.6)
	if f.Bold {
		w = 0.65
	}
	return geom.Size{
		Width:  float32(utf8.RuneCountInString(s)) * f.Size * w,
		Height: f.Size * 1.2,
	}
}

// Shaper measures text with gio's text shaper and the Go font collection.
// Results are cached.
type Shaper struct {
	lock   sync.Mutex
	shaper *text.Shaper
	cache  *ristretto.Cache
	log    zerolog.Logger
}

var _ Measurer = (*Shaper)(nil)

// ShaperOptions configures a Shaper.
type ShaperOptions struct {
	// CacheEntries bounds the number of cached measurements. Defaults to
	// 4096.
	CacheEntries int64
	Logger       *zerolog.Logger
}

// NewShaper returns a Shaper using the embedded Go fonts only.
func NewShaper(opts ShaperOptions) (*Shaper, error) {
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.CacheEntries * 10,
		MaxCost:     opts.CacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating measurement cache: %w", err)
	}
	s := &Shaper{
		shaper: text.NewShaper(text.WithCollection(gofont.Collection()), text.NoSystemFonts()),
		cache:  cache,
		log:    zerolog.Nop(),
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	}
	return s, nil
}

// Close releases the cache.
func (s *Shaper) Close() {
	s.cache.Close()
}

func (s *Shaper) MeasureText(str string, f Font) geom.Size {
	if str == "" || f.Size <= 0 {
		return geom.Size{}
	}
	key := f.String() + "\x00" + str
	if v, ok := s.cache.Get(key); ok {
		return v.(geom.Size)
	}
	size := s.shape(str, f)
	s.cache.Set(key, size, 1)
	return size
}

func (s *Shaper) shape(str string, f Font) geom.Size {
	gf := font.Font{Typeface: font.Typeface(f.Typeface)}
	if f.Bold {
		gf.Weight = font.Bold
	}
	if f.Italic {
		gf.Style = font.Italic
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.shaper.LayoutString(text.Parameters{
		Font:     gf,
		PxPerEm:  fixed.Int26_6(math.Round(float64(f.Size) * 64)),
		MaxLines: 1,
		MaxWidth: math.MaxInt32,
	}, str)
	var width, ascent, descent fixed.Int26_6
	glyphs := 0
	for g, ok := s.shaper.NextGlyph(); ok; g, ok = s.shaper.NextGlyph() {
		glyphs++
		if end := g.X + g.Advance; end > width {
			width = end
		}
		ascent = max(ascent, g.Ascent)
		descent = max(descent, g.Descent)
	}
	if glyphs == 0 {
		s.log.Debug().Str("text", str).Stringer("font", f).Msg("shaper produced no glyphs")
	}
	return geom.Size{
		Width:  float32(width) / 64,
		Height: float32(ascent+descent) / 64,
	}
}
