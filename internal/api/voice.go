package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/api/respond"
	"github.com/warmline/warmline/server/internal/audiocache"
	"github.com/warmline/warmline/server/internal/conversation"
	"github.com/warmline/warmline/server/internal/store"
	"github.com/warmline/warmline/server/internal/twiml"
)

// emptyDoc is the last-resort response when rendering fails; the platform
// treats it as "do nothing", which ends the call cleanly instead of erroring.
const emptyDoc = `<?xml version="1.0" encoding="UTF-8"?><Response/>`

// VoiceHandler serves the telephony webhook loop and cached audio. Voice
// routes never return a non-200 status: an HTTP failure would break the call.
type VoiceHandler struct {
	engine  *conversation.Engine
	cache   *audiocache.Cache
	persona conversation.Persona
	users   store.Users
	log     zerolog.Logger
}

// NewVoiceHandler builds the telephony surface. persona is the fallback for
// callers whose number matches no user row; users may be nil in tests.
func NewVoiceHandler(engine *conversation.Engine, cache *audiocache.Cache, persona conversation.Persona, users store.Users, log zerolog.Logger) *VoiceHandler {
	return &VoiceHandler{engine: engine, cache: cache, persona: persona, users: users, log: log}
}

// personaFor resolves the caller's number to their stored profile. Any miss
// (no number, no users surface, no row) falls back to the configured default;
// an unknown caller still gets a working conversation.
func (h *VoiceHandler) personaFor(ctx context.Context, from string) conversation.Persona {
	if from == "" || h.users == nil {
		return h.persona
	}
	u, err := h.users.GetByPhone(ctx, from)
	if err != nil {
		return h.persona
	}
	p := h.persona
	p.CallerName = u.FirstName
	p.Interests = u.Interests
	if u.CompanionName != "" {
		p.CompanionName = u.CompanionName
	}
	if u.CompanionVoice != "" {
		p.VoiceID = u.CompanionVoice
	}
	return p
}

// Inbound handles GET|POST /telephony/voice/inbound: the Start state. The
// greeting slot is global and write-once, so its synthesis always uses the
// default voice regardless of who is calling.
func (h *VoiceHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	callSID := r.FormValue("CallSid")
	doc, outcome := h.engine.Greeting(r.Context(), callSID, h.persona)
	h.log.Info().Str("call_sid", callSID).Str("outcome", string(outcome)).Msg("inbound call")
	h.writeDoc(w, doc)
}

// Turn handles POST /telephony/voice/turn: one captured-speech callback.
func (h *VoiceHandler) Turn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.Warn().Err(err).Msg("turn form parse failed")
	}
	callSID := r.FormValue("CallSid")
	speechResult := r.FormValue("SpeechResult")
	persona := h.personaFor(r.Context(), r.FormValue("From"))

	doc, outcome := h.engine.Turn(r.Context(), callSID, speechResult, persona)
	h.log.Info().Str("call_sid", callSID).Str("outcome", string(outcome)).Msg("conversation turn")
	h.writeDoc(w, doc)
}

// Status handles GET|POST /telephony/voice/status: observability only, no
// state change, always plain-text ok.
func (h *VoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		h.log.Debug().
			Str("call_sid", r.FormValue("CallSid")).
			Str("call_status", r.FormValue("CallStatus")).
			Msg("status callback")
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GreetingAudio handles GET /audio/static-greeting.
func (h *VoiceHandler) GreetingAudio(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.cache.Greeting()
	if !ok {
		respond.WriteAudio(w, "audio/mpeg", nil)
		return
	}
	respond.WriteAudio(w, audio.ContentType, audio.Bytes)
}

// ReplyAudio handles GET /audio/session-reply?call=SID.
func (h *VoiceHandler) ReplyAudio(w http.ResponseWriter, r *http.Request) {
	callSID := r.URL.Query().Get("call")
	audio, ok := h.cache.Reply(callSID)
	if !ok {
		respond.WriteAudio(w, "audio/mpeg", nil)
		return
	}
	respond.WriteAudio(w, audio.ContentType, audio.Bytes)
}

func (h *VoiceHandler) writeDoc(w http.ResponseWriter, doc twiml.Response) {
	body, err := doc.Render()
	if err != nil {
		h.log.Error().Err(err).Msg("instruction document render failed")
		respond.WriteXML(w, emptyDoc)
		return
	}
	respond.WriteXML(w, body)
}
