package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIGenerator calls an OpenAI-compatible chat-completions endpoint.
type OpenAIGenerator struct {
	client *resty.Client
	model  string
}

// NewOpenAIGenerator builds a generator with a bounded client timeout so a
// hung upstream can never hold a phone call open.
func NewOpenAIGenerator(baseURL, apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(timeout)
	return &OpenAIGenerator{client: c, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func systemInstruction(p Persona) string {
	name := p.CompanionName
	if name == "" {
		name = "a friendly companion"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a warm phone companion on a check-in call", name)
	if p.CallerName != "" {
		fmt.Fprintf(&b, " with %s", p.CallerName)
	}
	b.WriteString(". Reply in one or two short spoken sentences, kind and conversational. Never give medical or financial advice.")
	if p.Interests != "" {
		fmt.Fprintf(&b, " The caller enjoys: %s.", p.Interests)
	}
	return b.String()
}

// Generate sends the fixed persona instruction plus the captured text as the
// only conversational turn.
func (g *OpenAIGenerator) Generate(ctx context.Context, p Persona, userText string) (string, error) {
	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction(p)},
			{Role: "user", Content: userText},
		},
		Temperature: 0.7,
	}

	var out chatResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat completion status %d", resp.StatusCode())
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat completion: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion: empty reply")
	}
	return text, nil
}
