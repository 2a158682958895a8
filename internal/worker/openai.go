package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

// NewOpenAI builds an OpenAI backend. client may be nil.
func NewOpenAI(spec Spec, client *http.Client) (*OpenAI, error) {
	if client == nil {
		client = newHTTPClient(spec.Timeout)
	}
	model := spec.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		name:     spec.Name,
		endpoint: normalizeBaseURL(spec.BaseURL, defaultOpenAIBaseURL) + "/chat/completions",
		model:    model,
		apiKey:   spec.APIKey,
		http:     client,
	}, nil
}

func (o *OpenAI) Analyze(ctx context.Context, tl *temporal.Timeline) (Analysis, error) {
	prompt, err := BuildPrompt(tl)
	if err != nil {
		return Analysis{}, newError(KindDecode, o.name, err)
	}

	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	}
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	var resp chatCompletionResponse
	if err := postJSON(ctx, o.http, o.name, o.endpoint, headers, req, &resp); err != nil {
		return Analysis{}, err
	}
	if len(resp.Choices) == 0 {
		return Analysis{}, newError(KindEmpty, o.name, errors.New("response missing choices"))
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Analysis{}, newError(KindEmpty, o.name, errors.New("response empty"))
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return Analysis{Text: text, Confidence: ParseConfidence(text), Model: model}, nil
}
