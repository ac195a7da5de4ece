package qa

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type JudgeResult struct {
	Verdict   schemas.Verdict `json:"verdict"`
	Reasoning string          `json:"reasoning"`
	LatencyMS int64           `json:"latencyMs"`
}

type Options struct {
	APIKey   string
	BaseURL  string
	Provider string
	// RateLimit caps outbound calls per second; 0 means unlimited.
	RateLimit float64
}

type Invoker struct {
	client   ChatClient
	provider string
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewInvoker builds an OpenAI-backed invoker. A missing API key is not an
// error here; every Invoke reports it as errdefs.ErrConfiguration.
func NewInvoker(opts Options, log *zap.Logger) *Invoker {
	var client ChatClient
	if opts.APIKey != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		client = openai.NewClientWithConfig(cfg)
	}
	return newInvoker(client, opts, log)
}

func NewInvokerWithClient(client ChatClient, opts Options, log *zap.Logger) *Invoker {
	return newInvoker(client, opts, log)
}

func newInvoker(client ChatClient, opts Options, log *zap.Logger) *Invoker {
	inv := &Invoker{client: client, provider: opts.Provider, log: log}
	if inv.provider == "" {
		inv.provider = "openai"
	}
	if opts.RateLimit > 0 {
		inv.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return inv
}

func (i *Invoker) Provider() string { return i.provider }

// CheckConfig fails when no credential is available for the model provider.
func (i *Invoker) CheckConfig() error {
	if i.client == nil {
		return fmt.Errorf("%w: no %s API key found", errdefs.ErrConfiguration, i.provider)
	}
	return nil
}

// Invoke grades one answer at temperature zero. Provider failures are
// returned as *errdefs.InvocationError; malformed replies are not errors.
func (i *Invoker) Invoke(ctx context.Context, req Request) (*JudgeResult, error) {
	if err := i.CheckConfig(); err != nil {
		i.log.Error("judge invocation misconfigured", zap.Error(err))
		return nil, err
	}
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, &errdefs.InvocationError{Model: req.Model, Err: err}
		}
	}

	start := time.Now()
	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: BuildMessages(req),
		// temperature is omitempty in the client, so zero would fall back to the provider default
		Temperature: math.SmallestNonzeroFloat32,
	})
	latency := time.Since(start)
	if err != nil {
		return nil, &errdefs.InvocationError{Model: req.Model, Err: err}
	}

	text := "{}"
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		text = resp.Choices[0].Message.Content
	}
	v := ParseVerdict(text)

	i.log.Debug("judge replied",
		zap.String("model", req.Model),
		zap.String("verdict", string(v.Verdict)),
		zap.Duration("latency", latency),
	)
	return &JudgeResult{Verdict: v.Verdict, Reasoning: v.Reasoning, LatencyMS: latency.Milliseconds()}, nil
}
