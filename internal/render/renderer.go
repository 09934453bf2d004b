package render

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"strings"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

// Palette
var (
	ColorBackground   = color.RGBA{10, 10, 14, 0xff}
	ColorPanel        = color.RGBA{22, 22, 28, 0xff}
	ColorBorder       = color.RGBA{40, 40, 50, 0xff}
	ColorText         = color.RGBA{255, 255, 255, 0xff}
	ColorTextDim      = color.RGBA{140, 140, 150, 0xff}
	ColorStar         = color.RGBA{50, 50, 60, 0xff}
	ColorLive         = color.RGBA{220, 20, 20, 0xff}
	ColorShadow       = color.RGBA{0, 0, 0, 0xff}
	ColorError        = color.RGBA{248, 113, 113, 0xff}
	ColorAccentMale   = color.RGBA{56, 189, 248, 0xff}
	ColorAccentFemale = color.RGBA{244, 114, 182, 0xff}
)

const (
	defaultStars = 80
	baseHeight   = 1080.0
)

type star struct {
	x, y float64
	size int
}

// Renderer draws snapshots into a reused frame buffer.
type Renderer struct {
	frame *Frame
	scale float64
	faces faces
	stars []star
	rng   *rand.Rand
}

// Option customises a Renderer.
type Option func(*options)

type options struct {
	stars int
	seed  int64
}

// WithStars sets the number of background stars.
func WithStars(n int) Option {
	return func(o *options) { o.stars = n }
}

// WithSeed makes the starfield reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// New creates a renderer for w×h frames.
func New(w, h int, opts ...Option) (*Renderer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	o := options{stars: defaultStars, seed: 1}
	for _, opt := range opts {
		opt(&o)
	}

	scale := float64(h) / baseHeight
	fs, err := loadFaces(scale)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		frame: NewFrame(w, h),
		scale: scale,
		faces: fs,
		rng:   rand.New(rand.NewSource(o.seed)),
	}
	for i := 0; i < o.stars; i++ {
		r.stars = append(r.stars, star{
			x:    float64(r.rng.Intn(w)),
			y:    float64(r.rng.Intn(h)),
			size: 1 + r.rng.Intn(3),
		})
	}
	return r, nil
}

// Size returns the frame dimensions.
func (r *Renderer) Size() (int, int) {
	return r.frame.Rect.Dx(), r.frame.Rect.Dy()
}

// Render paints the snapshot and returns the frame bytes. The slice is
// reused by the next call.
func (r *Renderer) Render(snap broadcast.Snapshot) []byte {
	r.frame.Fill(r.frame.Rect, ColorBackground)
	r.drawStars()

	//exhaustive:enforce
	switch snap.State {
	case broadcast.StateIdle:
		// Background only until the first fetch starts.
	case broadcast.StateLoading:
		r.drawHeader(snap)
		r.drawStatus("DOWNLOADING STORY...", ColorTextDim)
	case broadcast.StatePlaying:
		r.drawHeader(snap)
		if line, ok := snap.Line(); ok {
			r.drawLine(line, snap.Revealed)
		}
	case broadcast.StateWaiting:
		r.drawHeader(snap)
	case broadcast.StateError:
		r.drawHeader(snap)
		r.drawStatus(snap.Err, ColorError)
	default:
		panic(fmt.Sprintf("render: unhandled state %v", snap.State))
	}

	return r.frame.Pix
}

func (r *Renderer) px(v float64) int {
	n := int(v*r.scale + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

func (r *Renderer) drawStars() {
	w, h := r.Size()
	for i := range r.stars {
		s := &r.stars[i]
		s.y -= float64(s.size) * 0.5 * r.scale
		if s.y < 0 {
			s.y = float64(h)
			s.x = float64(r.rng.Intn(w))
		}
		r.frame.Disc(int(s.x), int(s.y), r.px(float64(s.size)), ColorStar)
	}
}

func (r *Renderer) drawHeader(snap broadcast.Snapshot) {
	w, _ := r.Size()
	bar := r.px(80)
	r.frame.Fill(image.Rect(0, 0, w, bar), ColorPanel)
	r.frame.Fill(image.Rect(0, bar, w, bar+r.px(2)), ColorBorder)

	badge := image.Rect(r.px(30), r.px(20), r.px(100), r.px(60))
	r.frame.Fill(badge, ColorLive)
	drawText(r.frame, r.faces.title, "LIVE", r.px(42), r.px(22), ColorText)

	if snap.Packet != nil {
		title := snap.Packet.Title()
		maxW := w - r.px(150)
		for textWidth(r.faces.title, title) > maxW && len(title) > 0 {
			title = trimLastRune(title)
		}
		drawText(r.frame, r.faces.title, title, r.px(120), r.px(22), ColorText)
	}
}

func (r *Renderer) drawStatus(msg string, c color.RGBA) {
	if msg == "" {
		return
	}
	w, h := r.Size()
	lines := wrap(r.faces.title, msg, w-r.px(120))
	lh := lineHeight(r.faces.title)
	y := h - r.px(60) - (len(lines)-1)*lh
	for _, line := range lines {
		x := (w - textWidth(r.faces.title, line)) / 2
		drawText(r.frame, r.faces.title, line, x, y, c)
		y += lh
	}
}

func (r *Renderer) drawLine(line broadcast.DialogueLine, revealed string) {
	w, h := r.Size()
	panel := image.Rect(0, 0, w*8/10, h/2)
	panel = panel.Add(image.Pt((w-panel.Dx())/2, (h-panel.Dy())/2))

	accent := AccentFor(line.Speaker)
	r.frame.Fill(panel, ColorPanel)
	r.frame.Outline(panel, r.px(2), ColorBorder)
	r.frame.Fill(image.Rect(panel.Min.X, panel.Min.Y+r.px(20), panel.Min.X+r.px(6), panel.Max.Y-r.px(20)), accent)

	drawText(r.frame, r.faces.label, strings.ToUpper(line.Speaker), panel.Min.X+r.px(30), panel.Min.Y+r.px(30), accent)

	area := image.Rect(panel.Min.X+r.px(30), panel.Min.Y+r.px(80), panel.Max.X-r.px(30), panel.Max.Y-r.px(20))
	lh := lineHeight(r.faces.body)
	y := area.Min.Y
	shadow := r.px(2)
	for _, l := range wrap(r.faces.body, revealed, area.Dx()) {
		if y+lh > area.Max.Y {
			break
		}
		drawText(r.frame, r.faces.body, l, area.Min.X+shadow, y+shadow, ColorShadow)
		drawText(r.frame, r.faces.body, l, area.Min.X, y, ColorText)
		y += lh
	}
}

// AccentFor picks the speaker colour: sky blue for a male speaker, pink
// otherwise. Only whole words count, so "woman" is not matched by "man".
func AccentFor(speaker string) color.RGBA {
	for _, word := range strings.FieldsFunc(strings.ToLower(speaker), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		switch word {
		case "man", "male", "men", "boy", "he":
			return ColorAccentMale
		}
	}
	return ColorAccentFemale
}

func trimLastRune(s string) string {
	r := []rune(s)
	return string(r[:len(r)-1])
}
