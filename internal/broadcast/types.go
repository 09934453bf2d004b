package broadcast

import (
	"strings"
	"time"
)

// Original is the optional metadata describing the source of a story.
type Original struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
}

// DialogueLine is one unit of speaker, text and optional audio.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`

	// AudioURL is empty when the line has no audio.
	AudioURL string `json:"audioUrl,omitempty"`
}

// HasAudio reports whether the line references an audio asset.
func (l DialogueLine) HasAudio() bool {
	return strings.TrimSpace(l.AudioURL) != ""
}

// StoryPacket is a validated story payload. Dialogue is never empty for a
// packet returned by DecodePacket.
type StoryPacket struct {
	Original *Original     `json:"original,omitempty"`
	Dialogue []DialogueLine `json:"dialogue"`
}

// Title returns the story title, or "Untitled" when no metadata was sent.
func (p *StoryPacket) Title() string {
	if p == nil || p.Original == nil || p.Original.Title == "" {
		return "Untitled"
	}
	return p.Original.Title
}

// Clip is a decoded audio handle ready for the playback channel.
type Clip interface {
	// PCM returns the signed 16-bit little endian samples in the
	// channel's output format.
	PCM() []byte

	// Duration returns the playback length of the clip.
	Duration() time.Duration
}

// FetchOutcome is the single result of one fetch cycle. Exactly one of
// Packet or Err is set. When Packet is set, len(Clips) == len(Packet.Dialogue)
// and a nil entry means the line has no playable audio.
type FetchOutcome struct {
	Packet *StoryPacket
	Clips  []Clip
	Err    error
}

// OK reports whether the outcome carries a packet.
func (o FetchOutcome) OK() bool {
	return o.Err == nil && o.Packet != nil
}

// Message returns a human readable failure message, empty on success.
func (o FetchOutcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Snapshot is the presentation state a renderer reads once per frame. It is
// a value copy; the renderer may keep it without synchronisation.
type Snapshot struct {
	State    State
	Packet   *StoryPacket
	Index    int
	Revealed string
	Err      string
}

// Line returns the dialogue line being presented and true, or false when the
// snapshot is not playing a line.
func (s Snapshot) Line() (DialogueLine, bool) {
	if s.State != StatePlaying || s.Packet == nil {
		return DialogueLine{}, false
	}
	if s.Index < 0 || s.Index >= len(s.Packet.Dialogue) {
		return DialogueLine{}, false
	}
	return s.Packet.Dialogue[s.Index], true
}
