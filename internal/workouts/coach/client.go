// Package coach asks an OpenAI-compatible chat completions API for advice on
// the day's training. Nothing returned here feeds back into logs or KPIs.
package coach

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	oneHour            = 60 * 60
	adviceCacheExpire  = oneHour
	maxResponseBody    = 1 << 20
	defaultMaxTokens   = 400
	defaultTemperature = 0.4
)

var ErrCoachUnavailable = errors.New("coach unavailable")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Params struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Metrics    *metrics.Manager
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	metrics    *metrics.Manager
	cache      *freecache.Cache
}

func NewClient(params Params) *Client {
	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	baseURL := strings.TrimRight(strings.TrimSpace(params.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(params.Model)
	if model == "" {
		model = DefaultModel
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(params.APIKey),
		model:      model,
		httpClient: httpClient,
		metrics:    params.Metrics,
		cache:      freecache.NewCache(cacheSize),
	}
}

// Advise returns the coach's answer to the prompt. Answers are cached by
// model and prompt for one hour. Every failure wraps ErrCoachUnavailable.
func (c *Client) Advise(ctx context.Context, prompt string) (advice string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coach.advise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := c.cacheKey(prompt)
	if cached, cacheErr := c.cache.Get(cacheKey); cacheErr == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.count("cached")
		return string(cached), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	advice, err = c.complete(ctx, prompt)
	if err != nil {
		c.count("error")
		return "", fmt.Errorf("%w: %w", ErrCoachUnavailable, err)
	}
	c.count("ok")

	if err := c.cache.Set(cacheKey, []byte(advice), adviceCacheExpire); err != nil {
		log.Errorf("coach: cache advice: %s", err)
	}

	return advice, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("api key not set")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var completion chatCompletionResponse
	unmarshalErr := json.Unmarshal(respBody, &completion)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(completion.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	if unmarshalErr != nil {
		return "", fmt.Errorf("unmarshal response: %w", unmarshalErr)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	advice := strings.TrimSpace(completion.Choices[0].Message.Content)
	if advice == "" {
		return "", errors.New("empty advice")
	}

	log.Debugf("coach: advice received, tokens prompt=%d completion=%d",
		completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	return advice, nil
}

func (c *Client) cacheKey(prompt string) []byte {
	sum := sha256.Sum256([]byte(c.model + "\x00" + prompt))
	return []byte("advice::" + hex.EncodeToString(sum[:]))
}

func (c *Client) count(result string) {
	if c.metrics != nil {
		c.metrics.CounterCoachCalls.WithLabelValues(result).Inc()
	}
}
