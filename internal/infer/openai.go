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
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAI calls the chat completions API and expects a single JSON
// object back. The API key comes from OPENAI_API_KEY.
type OpenAI struct {
	Client *http.Client
	APIKey string
}

// NewOpenAI builds a provider with the ambient API key and a bounded
// client timeout.
func NewOpenAI(timeout time.Duration) *OpenAI {
	return &OpenAI{
		Client: &http.Client{Timeout: timeout},
		APIKey: os.Getenv("OPENAI_API_KEY"),
	}
}

func (*OpenAI) Name() string { return "openai" }

func (p *OpenAI) Generate(ctx context.Context, prompt Prompt) (ir.Value, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
	}
	model := prompt.Model
	if model == "" {
		model = openAIDefaultModel
	}

	body, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemBrief(prompt)},
			{"role": "user", "content": userPayload(prompt)},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}
	return ParseReply(parsed.Choices[0].Message.Content)
}

func systemBrief(p Prompt) string {
	schema := ir.MarshalCanonical(p.Schema)
	return "You produce a single JSON value conforming exactly to this schema, with no commentary:\n" + string(schema)
}

func userPayload(p Prompt) string {
	var b bytes.Buffer
	b.WriteString(p.Task)
	if p.Input != nil {
		b.WriteString("\n\nInput:\n")
		b.Write(ir.MarshalCanonical(p.Input))
	}
	return b.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
