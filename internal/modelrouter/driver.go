package modelrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentoven/llmguardian/pkg/apperror"
	"github.com/agentoven/llmguardian/pkg/models"
)

// ProviderDriver is the boundary to an upstream LLM provider. Kept as
// an interface rather than a concrete type so a second provider can be
// registered later without touching the Client or Router, even though
// only one driver is wired in today.
type ProviderDriver interface {
	Kind() string
	Supports(modelID string) bool
	Call(ctx context.Context, req *models.CompletionRequest) (*models.ProviderResponse, error)
	HealthCheck(ctx context.Context) error
}

// OpenAIConfig configures the built-in OpenAI-compatible driver.
type OpenAIConfig struct {
	Endpoint     string // defaults to https://api.openai.com/v1
	APIKey       string
	SupportedIDs map[string]bool // models this provider is known to serve
}

// OpenAIDriver calls an OpenAI-compatible chat completions endpoint,
// authenticating with a Bearer token.
type OpenAIDriver struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIDriver builds an OpenAIDriver with the given HTTP client
// (the caller controls per-attempt timeout via the client or context).
func NewOpenAIDriver(cfg OpenAIConfig, client *http.Client) *OpenAIDriver {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIDriver{cfg: cfg, client: client}
}

func (d *OpenAIDriver) Kind() string { return "openai" }

// Supports reports whether modelID is in this provider's supported set.
// An empty SupportedIDs set means "accept any model id" (wildcard).
func (d *OpenAIDriver) Supports(modelID string) bool {
	if len(d.cfg.SupportedIDs) == 0 {
		return true
	}
	return d.cfg.SupportedIDs[modelID]
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	N           *int                `json:"n,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Call performs one HTTP attempt against the chat completions
// endpoint. It does not retry — retry/backoff lives one layer up in
// Client, so classification of retryable failures lives in exactly
// one place.
func (d *OpenAIDriver) Call(ctx context.Context, req *models.CompletionRequest) (*models.ProviderResponse, error) {
	body, err := json.Marshal(openAIRequest{
		Model:       req.ModelID,
		Messages:    []openAIChatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		N:           req.N,
		Stop:        req.StopSequences,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "openai: marshal request", err)
	}

	url := d.cfg.Endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "openai: build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	start := time.Now()
	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeProviderConnection, "openai: read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(httpResp.StatusCode, respBody)
	}

	var oaiResp openAIResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, apperror.Wrap(apperror.CodeProviderServer, "openai: decode response", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, apperror.New(apperror.CodeProviderServer, "openai: empty choices")
	}

	choice := oaiResp.Choices[0]
	return &models.ProviderResponse{
		Text:          choice.Message.Content,
		ModelID:       req.ModelID,
		InputTokens:   oaiResp.Usage.PromptTokens,
		OutputTokens:  oaiResp.Usage.CompletionTokens,
		LatencyMillis: time.Since(start).Milliseconds(),
		FinishReason:  mapFinishReason(choice.FinishReason),
		Timestamp:     time.Now(),
	}, nil
}

func (d *OpenAIDriver) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.Endpoint+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("openai: health check status %d", resp.StatusCode)
	}
	return nil
}

func mapFinishReason(s string) models.FinishReason {
	switch s {
	case "stop":
		return models.FinishStop
	case "length":
		return models.FinishLength
	case "content_filter":
		return models.FinishContentFilter
	default:
		return models.FinishOther
	}
}

// classifyHTTPStatus maps an upstream HTTP status + body into the
// shared error-kind taxonomy apperror defines.
func classifyHTTPStatus(status int, body []byte) *apperror.Error {
	var parsed openAIErrorBody
	_ = json.Unmarshal(body, &parsed)
	msg := parsed.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperror.New(apperror.CodeProviderAuth, msg)
	case status == http.StatusTooManyRequests:
		return apperror.New(apperror.CodeProviderRateLimit, msg)
	case status == http.StatusBadRequest:
		return apperror.New(apperror.CodeProviderInvalidReq, msg)
	case status == http.StatusNotFound:
		return apperror.New(apperror.CodeProviderNotFound, msg)
	case status == http.StatusRequestTimeout:
		return apperror.New(apperror.CodeProviderTimeout, msg)
	case status == http.StatusServiceUnavailable:
		return apperror.New(apperror.CodeProviderUnavailable, msg)
	case status >= 500:
		return apperror.New(apperror.CodeProviderServer, msg)
	default:
		return apperror.New(apperror.CodeProviderInvalidReq, msg)
	}
}

// classifyTransportError maps net/http transport-level failures
// (connection refused, DNS failure, TLS error, context deadline) into
// the taxonomy's connection/timeout kinds.
func classifyTransportError(err error) *apperror.Error {
	if isTimeout(err) {
		return apperror.Wrap(apperror.CodeProviderTimeout, "openai: request timed out", err)
	}
	return apperror.Wrap(apperror.CodeProviderConnection, "openai: transport error", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
