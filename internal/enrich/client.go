// internal/enrich/client.go
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/littleexplorer/atlas/internal/cache"
	"github.com/littleexplorer/atlas/internal/config"
	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultBaseURL is the OpenAI-compatible endpoint of the Gemini API
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	// DefaultModel is the model the journal was built against
	DefaultModel = "gemini-2.5-flash"

	// DefaultLanguage is the language every generated field is written in
	DefaultLanguage = "Simplified Chinese"

	// APIKeyEnv is read when no API key is configured
	APIKeyEnv = "ATLAS_ENRICH_API_KEY"

	maxErrorBody = 512
)

var (
	// ErrEnrichmentUnavailable covers transport failures, timeouts and non-2xx responses. Retryable.
	ErrEnrichmentUnavailable = errors.New("enrichment service unavailable")

	// ErrNoStructuredData is returned when the service answered without a usable record. Retryable.
	ErrNoStructuredData = errors.New("no structured data in enrichment response")

	// ErrEmptyInput is returned for blank text; no request is made
	ErrEmptyInput = errors.New("empty input")
)

// Client extracts structured travel records from free text through a chat-completions endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	language   string
	timeout    time.Duration

	cache    *cache.EnrichmentCache
	logger   *slog.Logger
	requests metric.Int64Counter
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for completions.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLanguage sets the output language named in the prompt.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = language
	}
}

// WithTimeout bounds each request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache reuses results for text that was already enriched.
func WithCache(ec *cache.EnrichmentCache) Option {
	return func(c *Client) {
		c.cache = ec
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a new enrichment client.
// If apiKey is empty, it will attempt to read from the ATLAS_ENRICH_API_KEY environment variable.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("enrichment API key is required (provide enrich.apiKey or %s)", APIKeyEnv)
	}

	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		language:   DefaultLanguage,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.logger == nil {
		c.logger = slog.Default()
	}

	requests, err := newRequestCounter()
	if err != nil {
		return nil, err
	}
	c.requests = requests
	return c, nil
}

// NewFromConfig creates a client from the enrich.* settings. Empty values keep the defaults.
func NewFromConfig(cfg config.EnrichConfig, opts ...Option) (*Client, error) {
	var base []Option
	if cfg.BaseURL != "" {
		base = append(base, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		base = append(base, WithModel(cfg.Model))
	}
	if cfg.Language != "" {
		base = append(base, WithLanguage(cfg.Language))
	}
	if cfg.Timeout > 0 {
		base = append(base, WithTimeout(cfg.Timeout))
	}
	return New(cfg.APIKey, append(base, opts...)...)
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// BaseURL returns the base URL being used.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// complete sends one non-streaming chat completion and returns the first choice's content.
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	reqBody := map[string]interface{}{
		"model":           c.model,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.4,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrEnrichmentUnavailable, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrEnrichmentUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", fmt.Errorf("%w: API request failed with status %d: %s", ErrEnrichmentUnavailable, resp.StatusCode, snippet)
	}

	var completion openai.ChatCompletion
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("%w: malformed completion: %v", ErrNoStructuredData, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", ErrNoStructuredData)
	}
	return completion.Choices[0].Message.Content, nil
}
