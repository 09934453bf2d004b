package broadcast

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DecodePacket validates a story payload and returns the packet it carries.
// Accepted shapes are {"dialogue": [...]} and {"data": {"dialogue": [...]}};
// anything else is a SchemaError. Text fields are NFC normalised so that a
// typewriter reveal advances one visible character per rune.
func DecodePacket(payload []byte) (*StoryPacket, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, SchemaError("payload is not a JSON object", err)
	}

	body := top
	if _, ok := top["dialogue"]; !ok {
		wrapped, ok := top["data"]
		if !ok {
			return nil, SchemaError("invalid payload", ErrMissingDialogue)
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(wrapped, &inner); err != nil {
			return nil, SchemaError("'data' is not a JSON object", err)
		}
		if _, ok := inner["dialogue"]; !ok {
			return nil, SchemaError("invalid payload", ErrMissingDialogue)
		}
		body = inner
	}

	var packet StoryPacket
	if err := json.Unmarshal(body["dialogue"], &packet.Dialogue); err != nil {
		return nil, SchemaError("malformed 'dialogue'", err)
	}
	if len(packet.Dialogue) == 0 {
		return nil, SchemaError("invalid payload", ErrEmptyDialogue)
	}
	if raw, ok := body["original"]; ok && string(raw) != "null" {
		var orig Original
		if err := json.Unmarshal(raw, &orig); err != nil {
			return nil, SchemaError("malformed 'original'", err)
		}
		packet.Original = &orig
	}

	for i := range packet.Dialogue {
		line := &packet.Dialogue[i]
		line.Speaker = norm.NFC.String(strings.TrimSpace(line.Speaker))
		line.Text = norm.NFC.String(line.Text)
		line.AudioURL = strings.TrimSpace(line.AudioURL)
	}
	if packet.Original != nil {
		packet.Original.Title = norm.NFC.String(packet.Original.Title)
		packet.Original.Author = norm.NFC.String(packet.Original.Author)
	}

	return &packet, nil
}

// LineCount is a convenience used in log fields.
func (p *StoryPacket) LineCount() int {
	if p == nil {
		return 0
	}
	return len(p.Dialogue)
}

// String returns a short description of the packet.
func (p *StoryPacket) String() string {
	return fmt.Sprintf("%q (%d lines)", p.Title(), p.LineCount())
}
