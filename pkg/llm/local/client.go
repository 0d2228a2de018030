// Package local implements the llm.Client contract against an
// OpenAI-compatible chat-completions endpoint, which covers LM Studio and
// vLLM servers. Calls are rate limited and retried on transient failures.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/FabioYanezRomero/kg-constructor/internal/resilience"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

const (
	backendName    = "local"
	defaultBaseURL = "http://localhost:1234/v1"
	defaultModel   = "local-model"
)

const extractSystem = `You extract knowledge graph triples from text. Return a JSON array where each element has "head", "relation", "tail", "inference" ("explicit" or "contextual"), optional "justification", and, when the fact is directly supported by a span of the input, "char_start", "char_end" (byte offsets) and "extraction_text" (the verbatim span). Return only JSON.`

const generateSystem = `You extract knowledge graph triples. Return a JSON array where each element has "head", "relation", "tail", "inference" and, for contextual triples, a short "justification". Return only JSON.`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls an OpenAI-compatible local server. It satisfies llm.Client.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the server base URL (e.g. a vLLM host).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithModel sets the model identifier requested from the server.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithRateLimit caps requests per second against the local server.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout overrides the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a local-server LM client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string { return c.model }

// ExtractGrounded performs the grounded extraction operation. Local servers
// rarely return reliable char offsets; grounding is requested but optional.
func (c *Client) ExtractGrounded(ctx context.Context, req llm.ExtractRequest) ([]llm.RawItem, error) {
	msgs := []chatMessage{{Role: "system", Content: joinSystem(extractSystem, req.Prompt, req.Schema)}}
	for _, ex := range req.Examples {
		msgs = append(msgs,
			chatMessage{Role: "user", Content: ex.Text},
			chatMessage{Role: "assistant", Content: llm.RenderExampleItems(ex.Items)},
		)
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Text})
	return c.complete(ctx, msgs, req.Temperature, req.MaxTokens)
}

// GenerateJSON performs the ungrounded JSON generation operation.
func (c *Client) GenerateJSON(ctx context.Context, req llm.GenerateRequest) ([]llm.RawItem, error) {
	msgs := []chatMessage{
		{Role: "system", Content: joinSystem(generateSystem, "", req.Schema)},
		{Role: "user", Content: req.Prompt},
	}
	return c.complete(ctx, msgs, req.Temperature, req.MaxTokens)
}

func (c *Client) complete(ctx context.Context, msgs []chatMessage, temperature float64, maxTokens int) ([]llm.RawItem, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, llm.NewClientError(llm.ErrKindCancelled, backendName, eris.Wrap(err, "local: rate limiter"))
		}
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: &temperature,
	}
	if maxTokens > 0 {
		body.MaxTokens = &maxTokens
	}

	content, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, c.wrapErr(ctx, err)
	}

	items, err := llm.ParseItems(content)
	if err != nil {
		return nil, llm.NewClientError(llm.ErrKindParse, backendName, err)
	}
	return items, nil
}

func (c *Client) post(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", eris.Wrap(err, "local: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "local: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "local: send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "local: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("local: status %d: %s", resp.StatusCode, truncate(string(data), 300)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", eris.Wrap(err, "local: decode response")
	}
	if len(parsed.Choices) == 0 {
		return "", eris.New("local: empty choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) wrapErr(ctx context.Context, err error) error {
	kind := llm.ClassifyCtx(ctx, llm.ErrKindHTTP)
	if kind == llm.ErrKindHTTP {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "status 401") || strings.Contains(msg, "status 403"):
			kind = llm.ErrKindAuth
		case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
			kind = llm.ErrKindTimeout
		}
	}
	return llm.NewClientError(kind, backendName, err)
}

func joinSystem(base, prompt string, schema *llm.Schema) string {
	parts := []string{base}
	if prompt != "" {
		parts = append(parts, prompt)
	}
	if schema != nil {
		if len(schema.EntityTypes) > 0 {
			parts = append(parts, "Allowed entity types: "+strings.Join(schema.EntityTypes, ", "))
		}
		if len(schema.RelationTypes) > 0 {
			parts = append(parts, "Allowed relation types: "+strings.Join(schema.RelationTypes, ", "))
		}
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
