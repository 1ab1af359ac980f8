package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tberndt/weft/internal/ir"
)

const (
	anthropicEndpoint     = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-sonnet-20240620"
	anthropicMaxTokens    = 4096
)

// Anthropic calls the messages API. The API key comes from
// ANTHROPIC_API_KEY.
type Anthropic struct {
	Client *http.Client
	APIKey string
}

func NewAnthropic(timeout time.Duration) *Anthropic {
	return &Anthropic{
		Client: &http.Client{Timeout: timeout},
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
	}
}

func (*Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Generate(ctx context.Context, prompt Prompt) (ir.Value, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("anthropic: ANTHROPIC_API_KEY not set")
	}
	model := prompt.Model
	if model == "" {
		model = anthropicDefaultModel
	}

	body, err := json.Marshal(map[string]any{
		"model":      model,
		"max_tokens": anthropicMaxTokens,
		"system":     systemBrief(prompt),
		"messages": []map[string]string{
			{"role": "user", "content": userPayload(prompt)},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return ParseReply(block.Text)
		}
	}
	return nil, fmt.Errorf("anthropic: no text content")
}
