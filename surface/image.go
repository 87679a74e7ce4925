package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// ImageDevice is a Device for in-memory NRGBA rendering.
type ImageDevice struct {
	disposed atomic.Bool
}

func NewImageDevice() *ImageDevice { return &ImageDevice{} }

func (d *ImageDevice) BitDepth() int  { return 32 }
func (d *ImageDevice) Disposed() bool { return d.disposed.Load() }

// Dispose marks the device destroyed.
func (d *ImageDevice) Dispose() { d.disposed.Store(true) }

// ImageSurface is a surface backed by an *image.NRGBA.
type ImageSurface struct {
	Img         *image.NRGBA
	transparent bool
}

// Size returns the pixel size, or zero once the surface is disposed.
func (s *ImageSurface) Size() image.Point {
	if s.Img == nil {
		return image.Point{}
	}
	return s.Img.Rect.Size()
}

func (s *ImageSurface) BitDepth() int     { return 32 }
func (s *ImageSurface) Transparent() bool { return s.transparent }

var errForeignSurface = errors.New("surface was not created by this backend")

// ImageBackend allocates ImageSurfaces within an optional pixel budget.
type ImageBackend struct {
	// MaxPixels bounds the pixels of all live surfaces. Zero means no
	// limit.
	MaxPixels int

	lock      sync.Mutex
	allocated int
}

var _ Backend = (*ImageBackend)(nil)

func (b *ImageBackend) CreateSurface(template Device, size image.Point, transparent bool) (Surface, error) {
	if template == nil || template.Disposed() {
		return nil, errors.New("template device is disposed")
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	px := size.X * size.Y
	if b.MaxPixels > 0 && b.allocated+px > b.MaxPixels {
		return nil, fmt.Errorf("pixel budget exhausted: %d in use, %d requested, %d allowed", b.allocated, px, b.MaxPixels)
	}
	img := image.NewNRGBA(image.Rectangle{Max: size})
	if !transparent {
		draw.Draw(img, img.Rect, image.NewUniform(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), image.Point{}, draw.Src)
	}
	b.allocated += px
	return &ImageSurface{Img: img, transparent: transparent}, nil
}

func (b *ImageBackend) DisposeSurface(s Surface) {
	is, ok := s.(*ImageSurface)
	if !ok || is.Img == nil {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.allocated -= is.Img.Rect.Dx() * is.Img.Rect.Dy()
	is.Img = nil
}

// Allocated returns the pixels held by live surfaces.
func (b *ImageBackend) Allocated() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.allocated
}

func (b *ImageBackend) DrawComposited(dest, src Surface, mode BlendMode) error {
	d, ok := dest.(*ImageSurface)
	if !ok || d.Img == nil {
		return errForeignSurface
	}
	s, ok := src.(*ImageSurface)
	if !ok || s.Img == nil {
		return errForeignSurface
	}
	op := draw.Over
	if mode == BlendSource {
		op = draw.Src
	}
	draw.Draw(d.Img, s.Img.Rect, s.Img, image.Point{}, op)
	return nil
}
