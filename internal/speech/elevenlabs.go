package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ElevenLabsSynthesizer calls the ElevenLabs text-to-speech API.
type ElevenLabsSynthesizer struct {
	client *resty.Client
	model  string
}

// NewElevenLabsSynthesizer builds a synthesizer with a bounded client timeout.
func NewElevenLabsSynthesizer(baseURL, apiKey, model string, timeout time.Duration) *ElevenLabsSynthesizer {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("xi-api-key", apiKey).
		SetHeader("Accept", "audio/mpeg").
		SetTimeout(timeout)
	return &ElevenLabsSynthesizer{client: c, model: model}
}

type ttsRequest struct {
	Text          string       `json:"text"`
	ModelID       string       `json:"model_id"`
	VoiceSettings ttsVoiceOpts `json:"voice_settings"`
}

type ttsVoiceOpts struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize renders text with the given voice and returns mp3 bytes.
func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (Audio, error) {
	if text == "" {
		return Audio{}, fmt.Errorf("empty synthesis text")
	}
	if voiceID == "" {
		return Audio{}, fmt.Errorf("empty voice id")
	}

	req := ttsRequest{
		Text:          text,
		ModelID:       s.model,
		VoiceSettings: ttsVoiceOpts{Stability: 0.5, SimilarityBoost: 0.75},
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&req).
		Post(fmt.Sprintf("/v1/text-to-speech/%s", voiceID))
	if err != nil {
		return Audio{}, fmt.Errorf("text-to-speech: %w", err)
	}
	if resp.IsError() {
		return Audio{}, fmt.Errorf("text-to-speech status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return Audio{}, fmt.Errorf("text-to-speech: empty audio body")
	}
	ct := resp.Header().Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return Audio{Bytes: body, ContentType: ct}, nil
}
