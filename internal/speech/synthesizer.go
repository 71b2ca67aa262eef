// Package speech converts companion text into playable audio.
package speech

import "context"

// Audio is one synthesized utterance.
type Audio struct {
	Bytes       []byte
	ContentType string
}

// Synthesizer renders text with the given provider voice id.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (Audio, error)
}
