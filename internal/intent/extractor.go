// Package intent turns free-text chat messages into structured action
// requests using an OpenAI-compatible chat-completions API. The core
// only depends on the Extractor interface.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/courtbot-app/courtbot/pkg/models"
)

// Extractor resolves a chat message into an action request.
type Extractor interface {
	Extract(ctx context.Context, message string) (models.ActionRequest, error)
}

const systemPromptTemplate = `You convert court-booking chat messages into JSON.
Today's date is %s.
Respond with ONLY a JSON object, no prose, of the form:
{"action":"query_times"|"book","sport":"tennis"|"pickleball","date":"YYYY-MM-DD","time":"H:MM AM/PM or empty"}
Resolve relative dates ("tomorrow", "next friday") against today's date.
If no sport is mentioned, default to "tennis".
If the user asks what is open/available, action is "query_times".
If the user asks to reserve/book a specific time, action is "book" and "time" is required.`

// OpenAIExtractor calls a chat-completions endpoint. Compatible with
// OpenAI and any API that speaks the same protocol.
type OpenAIExtractor struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// Option configures an OpenAIExtractor.
type Option func(*OpenAIExtractor)

// WithBaseURL points the extractor at an OpenAI-compatible API.
func WithBaseURL(baseURL string) Option {
	return func(e *OpenAIExtractor) {
		e.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(e *OpenAIExtractor) {
		e.model = model
	}
}

// WithClock overrides the clock used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *OpenAIExtractor) {
		e.now = now
	}
}

// NewOpenAIExtractor creates an extractor for the given API key.
func NewOpenAIExtractor(apiKey string, opts ...Option) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	e := &OpenAIExtractor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1",
		model:      "gpt-4o-mini",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract sends the message to the model and parses its JSON answer.
func (e *OpenAIExtractor) Extract(ctx context.Context, message string) (models.ActionRequest, error) {
	system := fmt.Sprintf(systemPromptTemplate, e.now().Format("2006-01-02 (Monday)"))

	reqBody := map[string]interface{}{
		"model": e.model,
		"messages": []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(message),
		},
		"temperature": 0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return models.ActionRequest{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := e.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return models.ActionRequest{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.ActionRequest{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.ActionRequest{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return models.ActionRequest{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return models.ActionRequest{}, fmt.Errorf("empty completion")
	}

	return ParseActionJSON(completion.Choices[0].Message.Content)
}

// ParseActionJSON parses the model's answer, tolerating markdown code
// fences around the JSON object.
func ParseActionJSON(content string) (models.ActionRequest, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var req models.ActionRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return models.ActionRequest{}, fmt.Errorf("model returned unparseable intent: %w", err)
	}
	return req, nil
}
