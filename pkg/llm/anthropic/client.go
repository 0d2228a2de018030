// Package anthropic implements the llm.Client contract on top of the
// official anthropic-sdk-go messages API.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

const (
	backendName      = "anthropic"
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 4096
)

const groundingInstruction = `Return a JSON array of triples. Each triple has "head", "relation", "tail", "inference" ("explicit" or "contextual"), optional "justification", and, when the fact is directly supported by a span of the input, "char_start", "char_end" (byte offsets) and "extraction_text" (the verbatim span).`

const generateInstruction = `Return a JSON array of triples. Each triple has "head", "relation", "tail", "inference" and, for contextual triples, a short "justification". Return only JSON.`

// Client calls the Anthropic messages API. It satisfies llm.Client.
type Client struct {
	client sdk.Client
	model  string
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default model id.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates an Anthropic-backed LM client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string { return c.model }

// ExtractGrounded performs the grounded extraction operation. Few-shot
// examples are rendered as user/assistant demonstration turns ahead of the
// input text.
func (c *Client) ExtractGrounded(ctx context.Context, req llm.ExtractRequest) ([]llm.RawItem, error) {
	system := req.Prompt + "\n\n" + groundingInstruction
	if s := renderSchema(req.Schema); s != "" {
		system += "\n\n" + s
	}

	var msgs []sdk.MessageParam
	for _, ex := range req.Examples {
		msgs = append(msgs,
			sdk.NewUserMessage(sdk.NewTextBlock(ex.Text)),
			sdk.NewAssistantMessage(sdk.NewTextBlock(llm.RenderExampleItems(ex.Items))),
		)
	}
	msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(req.Text)))

	return c.complete(ctx, system, msgs, req.Temperature, req.MaxTokens)
}

// GenerateJSON performs the ungrounded JSON generation operation used for
// bridging prompts.
func (c *Client) GenerateJSON(ctx context.Context, req llm.GenerateRequest) ([]llm.RawItem, error) {
	system := generateInstruction
	if s := renderSchema(req.Schema); s != "" {
		system += "\n\n" + s
	}
	msgs := []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))}
	return c.complete(ctx, system, msgs, req.Temperature, req.MaxTokens)
}

func (c *Client) complete(ctx context.Context, system string, msgs []sdk.MessageParam, temperature float64, maxTokens int) ([]llm.RawItem, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(maxTokens),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages:    msgs,
		Temperature: sdk.Float(temperature),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.NewClientError(classify(ctx, err), backendName, eris.Wrap(err, "anthropic: create message"))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	items, err := llm.ParseItems(text.String())
	if err != nil {
		return nil, llm.NewClientError(llm.ErrKindParse, backendName, err)
	}
	return items, nil
}

func classify(ctx context.Context, err error) llm.ErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "authentication"):
		return llm.ErrKindAuth
	default:
		return llm.ClassifyCtx(ctx, llm.ErrKindHTTP)
	}
}

func renderSchema(s *llm.Schema) string {
	if s == nil || (len(s.EntityTypes) == 0 && len(s.RelationTypes) == 0) {
		return ""
	}
	var b strings.Builder
	if len(s.EntityTypes) > 0 {
		b.WriteString("Allowed entity types: " + strings.Join(s.EntityTypes, ", "))
	}
	if len(s.RelationTypes) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Allowed relation types: " + strings.Join(s.RelationTypes, ", "))
	}
	return b.String()
}
