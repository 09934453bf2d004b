package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Frame is a packed 3-bytes-per-pixel RGB image, rows top to bottom.
type Frame struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

var _ draw.Image = (*Frame)(nil)

// NewFrame allocates a w×h frame.
func NewFrame(w, h int) *Frame {
	return &Frame{
		Pix:    make([]byte, w*h*3),
		Stride: w * 3,
		Rect:   image.Rect(0, 0, w, h),
	}
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

func (f *Frame) Bounds() image.Rectangle { return f.Rect }

func (f *Frame) At(x, y int) color.Color {
	return f.RGBAAt(x, y)
}

// RGBAAt returns the opaque colour of a pixel, or transparent black
// outside the frame.
func (f *Frame) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(f.Rect)) {
		return color.RGBA{}
	}
	i := f.offset(x, y)
	return color.RGBA{f.Pix[i], f.Pix[i+1], f.Pix[i+2], 0xff}
}

func (f *Frame) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(f.Rect)) {
		return
	}
	r, g, b, _ := c.RGBA()
	i := f.offset(x, y)
	f.Pix[i] = uint8(r >> 8)
	f.Pix[i+1] = uint8(g >> 8)
	f.Pix[i+2] = uint8(b >> 8)
}

// Fill paints r, clipped to the frame, with an opaque colour.
func (f *Frame) Fill(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(f.Rect)
	if r.Empty() {
		return
	}
	row := make([]byte, r.Dx()*3)
	for i := 0; i < len(row); i += 3 {
		row[i], row[i+1], row[i+2] = c.R, c.G, c.B
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(f.Pix[f.offset(r.Min.X, y):], row)
	}
}

// Outline paints a border of width w inside r.
func (f *Frame) Outline(r image.Rectangle, w int, c color.RGBA) {
	f.Fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	f.Fill(image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	f.Fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), c)
	f.Fill(image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// Disc paints a filled circle.
func (f *Frame) Disc(cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				f.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

func (f *Frame) offset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Stride + (x-f.Rect.Min.X)*3
}
