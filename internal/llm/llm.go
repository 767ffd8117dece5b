package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"aidaily/internal/config"
	"aidaily/internal/logger"
)

// ErrNoAPIKey is returned when chat is attempted without credentials.
var ErrNoAPIKey = errors.New("llm: api key not configured")

// thinkRe strips reasoning-model scratchpads from responses.
var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// Gateway is the single chat-completion entry point. All LLM stages go
// through it so retries, backoff and token accounting live in one place.
type Gateway struct {
	client     *openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	tokensUsed int64

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// New builds a gateway from API configuration. The DeepSeek endpoint
// speaks the OpenAI wire format, so base_url does all the routing.
func New(cfg config.API) *Gateway {
	clientCfg := openai.DefaultConfig(cfg.Key)
	if cfg.BaseURL != "" {
		// DeepSeek speaks the OpenAI wire format directly under its base URL.
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Gateway{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		sleep:      time.Sleep,
	}
}

// Configured reports whether chat calls can be made.
func (g *Gateway) Configured() bool {
	return g != nil && g.client != nil
}

// TokensUsed returns the cumulative total tokens consumed this run.
func (g *Gateway) TokensUsed() int64 {
	return atomic.LoadInt64(&g.tokensUsed)
}

// Chat sends a system+user prompt pair and returns the reply text with
// any <think> scratchpad removed. Retries with linear backoff; the last
// error is returned after the attempts are exhausted.
func (g *Gateway) Chat(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrNoAPIKey
	}

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: user,
	})

	attempts := g.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		reqCtx := ctx
		cancel := func() {}
		if g.timeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, g.timeout)
		}
		resp, err := g.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       g.model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		cancel()

		if err == nil && len(resp.Choices) > 0 {
			atomic.AddInt64(&g.tokensUsed, int64(resp.Usage.TotalTokens))
			content := thinkRe.ReplaceAllString(resp.Choices[0].Message.Content, "")
			return strings.TrimSpace(content), nil
		}
		if err == nil {
			err = errors.New("llm: empty choices in response")
		}
		lastErr = err
		logger.Warn("llm call failed", "attempt", attempt+1, "of", attempts, "error", err.Error())

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < attempts-1 {
			g.sleep(g.retryDelay * time.Duration(attempt+1))
		}
	}
	return "", lastErr
}

// StripThink removes a reasoning scratchpad from arbitrary text. Used by
// stages that post-process stored responses.
func StripThink(text string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
}
