package arrange

import (
	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/model"
)

// AutoResizeState summarizes the auto-resize setting of a chart.
type AutoResizeState uint8

const (
	// AutoResizeUnknown means no object of the chart supports auto-resize.
	AutoResizeUnknown AutoResizeState = iota
	AutoResizeOn
	AutoResizeOff
	// AutoResizeAmbiguous means the objects disagree.
	AutoResizeAmbiguous
)

func (s AutoResizeState) String() string {
	switch s {
	case AutoResizeOn:
		return "on"
	case AutoResizeOff:
		return "off"
	case AutoResizeAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// ReferenceSize switches proportional font scaling of a chart on and off.
// With auto-resize on, an object's fonts scale with the page relative to
// the reference page size it recorded.
type ReferenceSize struct {
	Chart    *model.Chart
	PageSize geom.Size
}

func (r ReferenceSize) participants(fn func(*model.PropertySet)) {
	r.Chart.WalkPropertySets(func(b model.PropertyBag) {
		if p := b.Properties(); p.Supports(model.PropReferencePageSize) {
			fn(p)
		}
	})
}

// SetAutoResize turns auto-resize on or off for every participating
// object. Turning it on records the current page size on objects that
// have no reference yet. Turning it off bakes the current scale factor
// into each font size and clears the reference.
func (r ReferenceSize) SetAutoResize(on bool) {
	r.participants(func(p *model.PropertySet) {
		ref, has := p.ReferencePageSize()
		if on {
			if !has {
				_ = p.Set(model.PropReferencePageSize, r.PageSize)
			}
			return
		}
		if !has {
			return
		}
		if ref.Width > 0 && ref.Height > 0 && r.PageSize.Width > 0 && r.PageSize.Height > 0 {
			scaled := p.Float32(model.PropCharHeight) * min(r.PageSize.Width/ref.Width, r.PageSize.Height/ref.Height)
			_ = p.Set(model.PropCharHeight, scaled)
		}
		_ = p.Clear(model.PropReferencePageSize)
	})
}

// Toggle turns auto-resize off if it is on everywhere, and on otherwise.
func (r ReferenceSize) Toggle() {
	r.SetAutoResize(r.State() != AutoResizeOn)
}

// State scans every participating object.
func (r ReferenceSize) State() AutoResizeState {
	var on, off int
	r.participants(func(p *model.PropertySet) {
		if _, has := p.ReferencePageSize(); has {
			on++
		} else {
			off++
		}
	})
	switch {
	case on > 0 && off > 0:
		return AutoResizeAmbiguous
	case on > 0:
		return AutoResizeOn
	case off > 0:
		return AutoResizeOff
	default:
		return AutoResizeUnknown
	}
}
