package main

import "image/color"

var (
	tooltipBg   = color.NRGBA{R: 255, G: 255, B: 255, A: 220}
	shadowColor = color.NRGBA{A: 60}
)

// withAlpha scales the alpha of c by a/255.
func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = uint8(uint16(c.A) * uint16(a) / 255)
	return c
}
