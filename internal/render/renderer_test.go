package render

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

const (
	testW = 640
	testH = 360
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(testW, testH, WithStars(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func pixel(frame []byte, x, y int) color.RGBA {
	i := (y*testW + x) * 3
	return color.RGBA{frame[i], frame[i+1], frame[i+2], 0xff}
}

func countColor(frame []byte, rect image.Rectangle, c color.RGBA) int {
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if pixel(frame, x, y) == c {
				n++
			}
		}
	}
	return n
}

func countWhere(frame []byte, rect image.Rectangle, match func(color.RGBA) bool) int {
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if match(pixel(frame, x, y)) {
				n++
			}
		}
	}
	return n
}

func playing(speaker, text, revealed string) broadcast.Snapshot {
	return broadcast.Snapshot{
		State: broadcast.StatePlaying,
		Packet: &broadcast.StoryPacket{
			Original: &broadcast.Original{Title: "The Long Night"},
			Dialogue: []broadcast.DialogueLine{{Speaker: speaker, Text: text}},
		},
		Revealed: revealed,
	}
}

func TestFrameSize(t *testing.T) {
	r := newTestRenderer(t)
	for _, state := range broadcast.States {
		frame := r.Render(broadcast.Snapshot{State: state, Err: "boom"})
		if len(frame) != testW*testH*3 {
			t.Errorf("%v: frame is %d bytes, want %d", state, len(frame), testW*testH*3)
		}
	}
}

func TestIdleIsBackgroundOnly(t *testing.T) {
	r := newTestRenderer(t)
	frame := r.Render(broadcast.Snapshot{State: broadcast.StateIdle})

	all := image.Rect(0, 0, testW, testH)
	if n := countColor(frame, all, ColorBackground); n != testW*testH {
		t.Errorf("%d of %d pixels are background", n, testW*testH)
	}
}

func TestHeaderAndBadge(t *testing.T) {
	r := newTestRenderer(t)
	frame := r.Render(broadcast.Snapshot{State: broadcast.StateLoading})

	if got := pixel(frame, testW-5, 5); got != ColorPanel {
		t.Errorf("header pixel = %v, want panel colour", got)
	}
	if got := pixel(frame, r.px(32), r.px(58)); got != ColorLive {
		t.Errorf("badge pixel = %v, want live red", got)
	}
}

func TestStatusText(t *testing.T) {
	r := newTestRenderer(t)
	bottom := image.Rect(0, testH-r.px(120), testW, testH)

	reddish := func(c color.RGBA) bool { return int(c.R) > int(c.G)+40 }
	grey := func(c color.RGBA) bool { return c != ColorBackground && !reddish(c) }

	loading := r.Render(broadcast.Snapshot{State: broadcast.StateLoading})
	if countWhere(loading, bottom, grey) == 0 {
		t.Error("loading status not drawn")
	}
	if countWhere(loading, bottom, reddish) != 0 {
		t.Error("loading status drawn in the error colour")
	}

	failed := r.Render(broadcast.Snapshot{State: broadcast.StateError, Err: "NETWORK: story request failed"})
	if countWhere(failed, bottom, reddish) == 0 {
		t.Error("error message not drawn")
	}
}

func TestSpeakerAccent(t *testing.T) {
	tests := []struct {
		speaker string
		want    color.RGBA
	}{
		{"man", ColorAccentMale},
		{"Male Narrator", ColorAccentMale},
		{"old-man", ColorAccentMale},
		{"woman", ColorAccentFemale},
		{"female", ColorAccentFemale},
		{"Narrator", ColorAccentFemale},
		{"", ColorAccentFemale},
	}

	for _, tt := range tests {
		t.Run(tt.speaker, func(t *testing.T) {
			if got := AccentFor(tt.speaker); got != tt.want {
				t.Errorf("AccentFor(%q) = %v, want %v", tt.speaker, got, tt.want)
			}
		})
	}
}

func TestPlayingPanel(t *testing.T) {
	r := newTestRenderer(t)
	panelX := (testW - testW*8/10) / 2

	for _, speaker := range []string{"man", "woman"} {
		frame := r.Render(playing(speaker, "hello", "hel"))
		if got := pixel(frame, panelX+1, testH/2); got != AccentFor(speaker) {
			t.Errorf("%s: accent bar pixel = %v", speaker, got)
		}
	}
}

func TestRevealedTextIsDrawn(t *testing.T) {
	r := newTestRenderer(t)
	panel := image.Rect(0, 0, testW*8/10, testH/2).Add(image.Pt(testW/10, testH/4))
	textArea := image.Rect(panel.Min.X+r.px(30), panel.Min.Y+r.px(80), panel.Max.X-r.px(30), panel.Max.Y-r.px(20))
	inked := func(c color.RGBA) bool { return c != ColorPanel }

	empty := r.Render(playing("woman", "Once upon a time", ""))
	if n := countWhere(empty, textArea, inked); n != 0 {
		t.Errorf("%d text pixels before any reveal", n)
	}

	partial := countWhere(r.Render(playing("woman", "Once upon a time", "Once")), textArea, inked)
	full := countWhere(r.Render(playing("woman", "Once upon a time", "Once upon a time")), textArea, inked)
	if partial == 0 || full <= partial {
		t.Errorf("text pixels partial = %d full = %d", partial, full)
	}
}

func TestStarfieldDrifts(t *testing.T) {
	r, err := New(testW, testH, WithStars(20), WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}
	first := append([]byte(nil), r.Render(broadcast.Snapshot{})...)
	var second []byte
	for i := 0; i < 10; i++ {
		second = r.Render(broadcast.Snapshot{})
	}
	if string(first) == string(second) {
		t.Error("stars did not move between frames")
	}
	if countColor(second, image.Rect(0, 0, testW, testH), ColorStar) == 0 {
		t.Error("no stars drawn")
	}
}

func TestWrap(t *testing.T) {
	r := newTestRenderer(t)
	face := r.faces.body
	text := "The lighthouse keeper counted the ships every night, and every night one more came home than had left. Supercalifragilisticexpialidocious"
	width := 200

	lines := wrap(face, text, width)
	if len(lines) < 3 {
		t.Fatalf("wrap produced %d lines", len(lines))
	}
	for _, l := range lines {
		if textWidth(face, l) > width {
			t.Errorf("line %q is %dpx wide, limit %d", l, textWidth(face, l), width)
		}
	}
	joined := strings.ReplaceAll(strings.Join(lines, ""), " ", "")
	if joined != strings.ReplaceAll(text, " ", "") {
		t.Error("wrap lost or reordered text")
	}
}

func TestNewRejectsBadSize(t *testing.T) {
	if _, err := New(0, 100); err == nil {
		t.Error("New(0, 100) succeeded")
	}
}
