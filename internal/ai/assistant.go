package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/source"
)

const (
	defaultModel      = "claude-sonnet-4-5-20250929"
	defaultMaxTokens  = 1024
	classifyMaxTokens = 10
	defaultBaseURL    = "https://api.anthropic.com"
	messagesPath      = "/v1/messages"
	apiVersion        = "2023-06-01"
	basicAnswer       = "YES"
)

// Config selects the model endpoint and limits.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int

	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
}

// Assistant drafts replies and classifies messages using the Claude
// Messages API. Each call is a single-turn request with no retries.
type Assistant struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
	log       logger.Logger
}

// New creates a new Assistant with the given configuration.
func New(cfg Config, log logger.Logger) *Assistant {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Assistant{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + messagesPath,
		client:    &http.Client{},
		log:       log.With("component", "llm", "model", cfg.Model),
	}
}

// DraftReply returns a generated reply body for msg. Any API failure is
// returned to the caller.
func (a *Assistant) DraftReply(ctx context.Context, msg model.Message) (string, error) {
	text, err := a.complete(ctx, draftPrompt(msg), a.maxTokens)
	if err != nil {
		return "", fmt.Errorf("drafting reply for message %s: %w", msg.ID, err)
	}

	a.log.Debug("draft generated", "message", msg.ID, "chars", len(text))
	return text, nil
}

// IsBasic reports whether msg is safe to answer without review. Only an
// exact "YES" (after trimming and upper-casing) counts; a failed call is
// treated the same as "NO".
func (a *Assistant) IsBasic(ctx context.Context, msg model.Message) bool {
	text, err := a.complete(ctx, classifyPrompt(msg), classifyMaxTokens)
	if err != nil {
		a.log.Warn("classification failed; treating as not basic",
			"message", msg.ID, "error", err)
		return false
	}

	return isBasicAnswer(text)
}

func isBasicAnswer(text string) bool {
	return strings.ToUpper(strings.TrimSpace(text)) == basicAnswer
}

// complete makes a single request to the Claude Messages API and returns
// the text of the first content block.
func (a *Assistant) complete(
	ctx context.Context, prompt string, maxTokens int,
) (string, error) {
	reqBody := apiRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []apiMessage{
			{
				Role: "user",
				Content: []apiContentBlock{
					{Type: "text", Text: prompt},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, a.endpoint, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return "", &source.AuthError{Kind: source.KindLLM, Message: message}
		}
		return "", &source.UpstreamError{StatusCode: resp.StatusCode, Message: message}
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Content) == 0 || result.Content[0].Type != "text" {
		return "", nil
	}
	return result.Content[0].Text, nil
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
