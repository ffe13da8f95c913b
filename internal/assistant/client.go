// Package assistant produces chat replies from an OpenAI-compatible API,
// falling back to canned offline answers whenever the API is not configured
// or fails.
package assistant

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tiliavir/personal-assistant/internal/config"
	"github.com/Tiliavir/personal-assistant/internal/model"
)

// Client is safe for concurrent use.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	tokenLimit  int
	log         *slog.Logger

	counterOnce sync.Once
	counter     TokenCounter
}

// Option configures a Client.
type Option func(*Client)

// WithTokenCounter replaces the tiktoken counter used for history trimming.
func WithTokenCounter(c TokenCounter) Option {
	return func(cl *Client) { cl.counter = c }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// New builds a client from cfg. Without an API key or OAuth credentials the
// client only answers offline.
func New(ctx context.Context, cfg config.LLMConfig, opts ...Option) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout(),
		tokenLimit:  cfg.ContextTokenLimit,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.APIKey == "" && !cfg.OAuth.Enabled() {
		return c
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = httpClient(ctx, cfg)
	c.api = openai.NewClientWithConfig(oc)
	return c
}

func httpClient(ctx context.Context, cfg config.LLMConfig) *http.Client {
	if !cfg.OAuth.Enabled() {
		return &http.Client{Timeout: cfg.Timeout()}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TokenURL:     cfg.OAuth.TokenURL,
		Scopes:       cfg.OAuth.Scopes,
	}
	// Token requests use their own client with the same deadline.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout()})
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout()
	return client
}

// Online reports whether replies are requested from the API.
func (c *Client) Online() bool { return c.api != nil }

// Reply never fails: any API error degrades to OfflineReply.
func (c *Client) Reply(ctx context.Context, messages []model.ChatMessage) string {
	if c.api == nil {
		return OfflineReply(messages)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAI(trimHistory(messages, c.tokenLimit, c.tokens())),
		Temperature: c.temperature,
	})
	if err != nil {
		c.log.Warn("chat completion failed, answering offline", "error", err)
		return OfflineReply(messages)
	}
	if len(resp.Choices) == 0 {
		c.log.Warn("chat completion returned no choices, answering offline")
		return OfflineReply(messages)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func (c *Client) tokens() TokenCounter {
	c.counterOnce.Do(func() {
		if c.counter == nil {
			c.counter = NewTiktokenCounter(c.model)
		}
	})
	return c.counter
}

func toOpenAI(messages []model.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
