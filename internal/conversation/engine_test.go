package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/audiocache"
	"github.com/warmline/warmline/server/internal/reply"
	"github.com/warmline/warmline/server/internal/speech"
)

// --- Fakes ---

type fakeGenerator struct {
	reply string
	err   error
	calls int
	last  string
}

func (f *fakeGenerator) Generate(ctx context.Context, p reply.Persona, userText string) (string, error) {
	f.calls++
	f.last = userText
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSynth struct {
	err   error
	calls int
	last  string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voiceID string) (speech.Audio, error) {
	f.calls++
	f.last = text
	if f.err != nil {
		return speech.Audio{}, f.err
	}
	return speech.Audio{Bytes: []byte("audio:" + text), ContentType: "audio/mpeg"}, nil
}

func newTestEngine(g *fakeGenerator, s *fakeSynth) (*Engine, *audiocache.Cache) {
	cache := audiocache.New(0)
	e := NewEngine(g, s, cache, "Hello, it's your companion calling.", time.Second, zerolog.Nop())
	return e, cache
}

func persona() Persona {
	return Persona{CompanionName: "June", CallerName: "Ada", Interests: "gardening", VoiceID: "voice-june"}
}

func render(t *testing.T, e *Engine, doc interface{ Render() (string, error) }) string {
	t.Helper()
	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestGreeting_CachesAndPlays(t *testing.T) {
	g := &fakeGenerator{reply: "hi"}
	s := &fakeSynth{}
	e, cache := newTestEngine(g, s)

	doc, outcome := e.Greeting(context.Background(), "CA1", persona())
	if outcome != OutcomeGreeted {
		t.Fatalf("outcome: %s", outcome)
	}
	out := render(t, e, doc)
	if !strings.Contains(out, "<Play>/audio/static-greeting</Play>") {
		t.Fatalf("greeting should play cached audio: %s", out)
	}
	if !strings.Contains(out, `action="/telephony/voice/turn"`) || !strings.Contains(out, `timeout="6"`) {
		t.Fatalf("gather attributes wrong: %s", out)
	}
	if !strings.Contains(out, `<Redirect method="POST">/telephony/voice/inbound</Redirect>`) {
		t.Fatalf("missing retry redirect: %s", out)
	}
	if _, ok := cache.Greeting(); !ok {
		t.Fatal("greeting audio not cached")
	}

	// Second call reuses the slot, no second synthesis.
	_, _ = e.Greeting(context.Background(), "CA2", persona())
	if s.calls != 1 {
		t.Fatalf("greeting synthesized %d times, want 1", s.calls)
	}
}

func TestGreeting_SynthFailureFallsBackToSay(t *testing.T) {
	g := &fakeGenerator{}
	s := &fakeSynth{err: errors.New("tts down")}
	e, _ := newTestEngine(g, s)

	doc, outcome := e.Greeting(context.Background(), "CA1", persona())
	if outcome != OutcomeGreetedNoAudio {
		t.Fatalf("outcome: %s", outcome)
	}
	out := render(t, e, doc)
	if strings.Contains(out, "<Play>") {
		t.Fatalf("must not reference missing audio: %s", out)
	}
	if !strings.Contains(out, "<Say>Hello, it") {
		t.Fatalf("expected spoken greeting fallback: %s", out)
	}
}

func TestTurn_EmptySpeechEmitsRetryNotGeneration(t *testing.T) {
	g := &fakeGenerator{reply: "should not be called"}
	s := &fakeSynth{}
	e, _ := newTestEngine(g, s)

	for _, in := range []string{"", "   ", "\t\n"} {
		doc, outcome := e.Turn(context.Background(), "CA1", in, persona())
		if outcome != OutcomeRetryPrompt {
			t.Fatalf("outcome for %q: %s", in, outcome)
		}
		out := render(t, e, doc)
		if !strings.Contains(out, "<Say>") || !strings.Contains(out, "/telephony/voice/inbound") {
			t.Fatalf("retry doc wrong: %s", out)
		}
	}
	if g.calls != 0 {
		t.Fatalf("generator called %d times on empty speech", g.calls)
	}
}

func TestTurn_HappyPath(t *testing.T) {
	g := &fakeGenerator{reply: "That sounds wonderful, Ada."}
	s := &fakeSynth{}
	e, cache := newTestEngine(g, s)

	doc, outcome := e.Turn(context.Background(), "CA1", "I repotted the ferns", persona())
	if outcome != OutcomeReplied {
		t.Fatalf("outcome: %s", outcome)
	}
	if g.last != "I repotted the ferns" {
		t.Fatalf("generator input: %q", g.last)
	}
	if s.last != "That sounds wonderful, Ada." {
		t.Fatalf("synthesizer input: %q", s.last)
	}

	audio, ok := cache.Reply("CA1")
	if !ok || string(audio.Bytes) != "audio:That sounds wonderful, Ada." {
		t.Fatalf("session reply not cached: ok=%v", ok)
	}

	out := render(t, e, doc)
	if !strings.Contains(out, "<Play>/audio/session-reply?call=CA1</Play>") {
		t.Fatalf("play url must be session-keyed: %s", out)
	}
	if strings.Index(out, "<Play>") > strings.Index(out, "<Gather") {
		t.Fatalf("play must precede gather: %s", out)
	}
}

func TestTurn_GeneratorFailureStillSynthesizesFallback(t *testing.T) {
	g := &fakeGenerator{err: errors.New("llm timeout")}
	s := &fakeSynth{}
	e, _ := newTestEngine(g, s)

	doc, outcome := e.Turn(context.Background(), "CA1", "hello there", persona())
	if outcome != OutcomeReplyFallback {
		t.Fatalf("outcome: %s", outcome)
	}
	if s.calls != 1 || s.last != reply.FallbackLine {
		t.Fatalf("fallback must be synthesized like any reply: calls=%d last=%q", s.calls, s.last)
	}
	out := render(t, e, doc)
	if !strings.Contains(out, "<Play>/audio/session-reply?call=CA1</Play>") {
		t.Fatalf("fallback path should still play audio: %s", out)
	}
}

func TestTurn_SynthFailureDegradesToPlatformSpeech(t *testing.T) {
	g := &fakeGenerator{reply: "Tom & Jerry say <hi>"}
	s := &fakeSynth{err: errors.New("tts 500")}
	e, cache := newTestEngine(g, s)

	doc, outcome := e.Turn(context.Background(), "CA1", "tell me a story", persona())
	if outcome != OutcomeSpeechFallback {
		t.Fatalf("outcome: %s", outcome)
	}
	out := render(t, e, doc)
	if strings.Contains(out, "<Play>") || strings.Contains(out, "<Gather") {
		t.Fatalf("degraded doc must not play or gather: %s", out)
	}
	if !strings.Contains(out, "Tom  Jerry say hi") {
		t.Fatalf("say text must be sanitized: %s", out)
	}
	if !strings.Contains(out, `<Redirect method="POST">/telephony/voice/inbound</Redirect>`) {
		t.Fatalf("must redirect back to greeting state: %s", out)
	}
	if _, ok := cache.Reply("CA1"); ok {
		t.Fatal("no audio should be cached when synthesis fails")
	}
}

func TestTurn_MissingSessionIDSpeaksDirectly(t *testing.T) {
	g := &fakeGenerator{reply: "Lovely to hear."}
	s := &fakeSynth{}
	e, cache := newTestEngine(g, s)

	doc, outcome := e.Turn(context.Background(), "", "hello", persona())
	if outcome != OutcomeRepliedNoAudio {
		t.Fatalf("outcome: %s", outcome)
	}
	if s.calls != 0 {
		t.Fatalf("synthesis is pointless without a session key, ran %d times", s.calls)
	}
	out := render(t, e, doc)
	if strings.Contains(out, "<Play>") {
		t.Fatalf("keyless turn must not reference session audio: %s", out)
	}
	if !strings.Contains(out, "<Say>Lovely to hear.</Say>") {
		t.Fatalf("reply should be spoken by the platform: %s", out)
	}
	if !strings.Contains(out, `action="/telephony/voice/turn"`) {
		t.Fatalf("conversation must keep gathering: %s", out)
	}
	if _, ok := cache.Reply(""); ok {
		t.Fatal("nothing may be cached under an empty session key")
	}
}

func TestTurn_ConcurrentCallsKeepSeparateAudio(t *testing.T) {
	g := &fakeGenerator{reply: "reply"}
	s := &fakeSynth{}
	e, cache := newTestEngine(g, s)

	_, _ = e.Turn(context.Background(), "CA1", "first caller", persona())
	g.reply = "different reply"
	_, _ = e.Turn(context.Background(), "CA2", "second caller", persona())

	a1, ok1 := cache.Reply("CA1")
	a2, ok2 := cache.Reply("CA2")
	if !ok1 || !ok2 {
		t.Fatal("both sessions should hold audio")
	}
	if string(a1.Bytes) == string(a2.Bytes) {
		t.Fatal("replies must not cross-deliver between concurrent calls")
	}
}
