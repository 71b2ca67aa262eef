// Package conversation drives the inbound-webhook turn state machine:
// greeting, gather speech, generate reply, synthesize, play, gather again.
// Every path emits a valid instruction document; dependency failures degrade
// inside the turn instead of surfacing to the telephony platform.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/audiocache"
	"github.com/warmline/warmline/server/internal/reply"
	"github.com/warmline/warmline/server/internal/speech"
	"github.com/warmline/warmline/server/internal/twiml"
)

// Webhook and audio paths baked into the emitted documents. The platform
// resolves relative URLs against the webhook that returned them.
const (
	PathInbound       = "/telephony/voice/inbound"
	PathTurn          = "/telephony/voice/turn"
	PathGreetingAudio = "/audio/static-greeting"
	PathReplyAudio    = "/audio/session-reply"
)

const retryApology = "Sorry, I didn't catch that. Let's try again."

// Outcome reports which branch a turn took, so failure paths are visible to
// tests and observability while the caller still hears a valid response.
type Outcome string

const (
	OutcomeGreeted        Outcome = "greeted"
	OutcomeGreetedNoAudio Outcome = "greeted-no-audio" // greeting synthesis failed, Say fallback
	OutcomeReplied        Outcome = "replied"
	OutcomeRepliedNoAudio Outcome = "replied-no-audio" // no session id to key audio under, platform Say
	OutcomeReplyFallback  Outcome = "reply-fallback"   // generator failed, fixed apology synthesized
	OutcomeSpeechFallback Outcome = "speech-fallback"  // synthesizer failed, platform Say
	OutcomeRetryPrompt    Outcome = "retry-prompt"     // empty capture, back to start
)

// Persona is the per-call voice and framing, resolved by the caller (defaults
// from config, overridden per user when the call is matched to one).
type Persona struct {
	CompanionName string
	CallerName    string
	Interests     string
	VoiceID       string
}

// Engine is safe for concurrent use across simultaneous calls; per-call state
// lives in the session-keyed audio cache.
type Engine struct {
	replies      reply.Generator
	synth        speech.Synthesizer
	cache        *audiocache.Cache
	greetingText string
	timeout      time.Duration
	log          zerolog.Logger
}

func NewEngine(g reply.Generator, s speech.Synthesizer, cache *audiocache.Cache, greetingText string, timeout time.Duration, log zerolog.Logger) *Engine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		replies:      g,
		synth:        s,
		cache:        cache,
		greetingText: greetingText,
		timeout:      timeout,
		log:          log,
	}
}

// Greeting handles the first inbound signal of a call: play the cached static
// greeting (synthesized lazily once per process), gather speech, and fall
// back to a retry prompt if nothing is captured.
func (e *Engine) Greeting(ctx context.Context, callSID string, p Persona) (twiml.Response, Outcome) {
	outcome := OutcomeGreeted
	var opening interface{}

	if _, ok := e.cache.Greeting(); !ok {
		synthCtx, cancel := context.WithTimeout(ctx, e.timeout)
		audio, err := e.synth.Synthesize(synthCtx, e.greetingText, p.VoiceID)
		cancel()
		if err != nil {
			e.log.Warn().Err(err).Str("call_sid", callSID).Msg("greeting synthesis failed, using platform speech")
			outcome = OutcomeGreetedNoAudio
		} else {
			e.cache.PutGreeting(audio)
		}
	}

	if _, ok := e.cache.Greeting(); ok {
		opening = twiml.Play{URL: PathGreetingAudio}
	} else {
		opening = twiml.Say{Text: twiml.Sanitize(e.greetingText)}
	}

	doc := twiml.Response{Verbs: []interface{}{
		opening,
		twiml.NewGather(PathTurn),
		// Reached only when the gather captures nothing: apologize and
		// loop back to the start. The caller exits by speaking or
		// hanging up.
		twiml.Say{Text: retryApology},
		twiml.Redirect{Method: "POST", URL: PathInbound},
	}}
	return doc, outcome
}

// Turn handles one captured-speech callback and emits the next instruction
// document. It never returns an error; the worst dependency failure still
// yields a spoken response.
func (e *Engine) Turn(ctx context.Context, callSID, speechText string, p Persona) (twiml.Response, Outcome) {
	text := strings.TrimSpace(speechText)
	if text == "" {
		return e.retryDoc(), OutcomeRetryPrompt
	}

	outcome := OutcomeReplied
	replyText := e.generate(ctx, callSID, p, text)
	if replyText == "" {
		replyText = reply.FallbackLine
		outcome = OutcomeReplyFallback
	}

	// Without a session id there is no key to retrieve synthesized audio
	// under, and serving someone else's pending reply is worse than the
	// platform voice. Speak directly and keep gathering.
	if callSID == "" {
		doc := twiml.Response{Verbs: []interface{}{
			twiml.Say{Text: twiml.Sanitize(replyText)},
			twiml.NewGather(PathTurn),
			twiml.Say{Text: retryApology},
			twiml.Redirect{Method: "POST", URL: PathInbound},
		}}
		return doc, OutcomeRepliedNoAudio
	}

	// Synthesis runs on whichever text was selected, fallback or not.
	synthCtx, cancel := context.WithTimeout(ctx, e.timeout)
	audio, err := e.synth.Synthesize(synthCtx, replyText, p.VoiceID)
	cancel()
	if err != nil {
		e.log.Warn().Err(err).Str("call_sid", callSID).Msg("synthesis failed, degrading to platform speech")
		doc := twiml.Response{Verbs: []interface{}{
			twiml.Say{Text: twiml.Sanitize(replyText)},
			twiml.Redirect{Method: "POST", URL: PathInbound},
		}}
		return doc, OutcomeSpeechFallback
	}

	e.cache.PutReply(callSID, audio)
	doc := twiml.Response{Verbs: []interface{}{
		twiml.Play{URL: replyAudioURL(callSID)},
		twiml.NewGather(PathTurn),
		twiml.Say{Text: retryApology},
		twiml.Redirect{Method: "POST", URL: PathInbound},
	}}
	return doc, outcome
}

// generate returns the companion reply, or "" when generation failed and the
// fixed fallback should be used.
func (e *Engine) generate(ctx context.Context, callSID string, p Persona, text string) string {
	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.replies.Generate(genCtx, reply.Persona{
		CompanionName: p.CompanionName,
		CallerName:    p.CallerName,
		Interests:     p.Interests,
	}, text)
	if err != nil {
		e.log.Warn().Err(err).Str("call_sid", callSID).Msg("reply generation failed, using fallback line")
		return ""
	}
	return out
}

func (e *Engine) retryDoc() twiml.Response {
	return twiml.Response{Verbs: []interface{}{
		twiml.Say{Text: retryApology},
		twiml.Redirect{Method: "POST", URL: PathInbound},
	}}
}

func replyAudioURL(callSID string) string {
	return PathReplyAudio + "?call=" + callSID
}
