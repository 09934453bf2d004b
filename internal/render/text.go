package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// faces holds the font faces for one frame size.
type faces struct {
	title font.Face // header title and status lines
	body  font.Face // dialogue text
	label font.Face // speaker label
}

func loadFaces(scale float64) (faces, error) {
	var fs faces
	var err error
	if fs.title, err = newFace(goregular.TTF, 32*scale); err != nil {
		return fs, err
	}
	if fs.body, err = newFace(gobold.TTF, 48*scale); err != nil {
		return fs, err
	}
	if fs.label, err = newFace(gomonobold.TTF, 28*scale); err != nil {
		return fs, err
	}
	return fs, nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if size < 6 {
		size = 6
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// drawText draws s with its top-left corner at (x, y).
func drawText(dst *Frame, face font.Face, s string, x, y int, c color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// textWidth returns the advance of s in pixels.
func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// lineHeight returns the distance between two baselines.
func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// wrap breaks s into lines no wider than width. Words longer than a line
// are split between runes.
func wrap(face font.Face, s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var line string
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if textWidth(face, candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			line = ""
			for textWidth(face, word) > width {
				cut := fitRunes(face, word, width)
				lines = append(lines, word[:cut])
				word = word[cut:]
			}
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// fitRunes returns the byte length of the longest rune prefix of s that
// fits width, at least one rune.
func fitRunes(face font.Face, s string, width int) int {
	cut := 0
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if cut > 0 && textWidth(face, s[:next]) > width {
			break
		}
		cut = next
	}
	return cut
}
