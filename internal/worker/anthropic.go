package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-sonnet-20240229"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 2000
)

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Anthropic calls the Anthropic messages endpoint.
type Anthropic struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

// NewAnthropic builds an Anthropic backend. client may be nil. An API key
// is required.
func NewAnthropic(spec Spec, client *http.Client) (*Anthropic, error) {
	if spec.APIKey == "" {
		return nil, errors.New("anthropic backend requires an API key")
	}
	if client == nil {
		client = newHTTPClient(spec.Timeout)
	}
	model := spec.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		name:     spec.Name,
		endpoint: normalizeBaseURL(spec.BaseURL, defaultAnthropicBaseURL) + "/v1/messages",
		model:    model,
		apiKey:   spec.APIKey,
		http:     client,
	}, nil
}

func (a *Anthropic) Analyze(ctx context.Context, tl *temporal.Timeline) (Analysis, error) {
	prompt, err := BuildPrompt(tl)
	if err != nil {
		return Analysis{}, newError(KindDecode, a.name, err)
	}

	req := messagesRequest{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		System:    SystemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp messagesResponse
	if err := postJSON(ctx, a.http, a.name, a.endpoint, headers, req, &resp); err != nil {
		return Analysis{}, err
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return Analysis{}, newError(KindEmpty, a.name, errors.New("response has no text content"))
	}
	text := strings.Join(parts, "\n")

	model := resp.Model
	if model == "" {
		model = a.model
	}
	return Analysis{Text: text, Confidence: ParseConfidence(text), Model: model}, nil
}
