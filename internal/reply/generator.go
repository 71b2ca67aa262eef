// Package reply turns captured caller speech into companion text.
package reply

import "context"

// FallbackLine is spoken when generation fails or times out; the conversation
// must never dead-end on a generator failure.
const FallbackLine = "I'm sorry, I'm having a little trouble thinking just now. Could you say that again?"

// Persona shapes the system instruction for one call.
type Persona struct {
	CompanionName string
	CallerName    string
	Interests     string
}

// Generator produces one companion reply for one caller turn. No multi-turn
// memory is retained beyond the current exchange.
type Generator interface {
	Generate(ctx context.Context, p Persona, userText string) (string, error)
}
