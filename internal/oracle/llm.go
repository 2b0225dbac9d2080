package oracle

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/resilience"
	"github.com/sells-group/autoapply/pkg/anthropic"
)

// LLM is an Oracle backed by the Anthropic Messages API. It is safe for
// concurrent use by many sessions.
type LLM struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64

	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewLLM builds an LLM oracle from config.
func NewLLM(client anthropic.Client, ac config.AnthropicConfig, oc config.OracleConfig) *LLM {
	retry, bc := resilience.FromOracleConfig(oc)

	limit := rate.Inf
	if oc.RateLimit > 0 {
		limit = rate.Limit(oc.RateLimit)
	}
	maxTokens := ac.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &LLM{
		client:      client,
		model:       ac.Model,
		maxTokens:   maxTokens,
		temperature: ac.Temp,
		limiter:     rate.NewLimiter(limit, 1),
		retry:       retry,
		breaker:     resilience.NewBreaker(bc),
	}
}

// Resolve implements Oracle.
func (o *LLM) Resolve(ctx context.Context, profileSlice any, batch []model.FieldDescriptor, mode Mode) map[RequestKey]model.Value {
	empty := map[RequestKey]model.Value{}
	if len(batch) == 0 {
		return empty
	}
	log := zap.L().With(zap.String("mode", string(mode)), zap.Int("fields", len(batch)))

	user, err := UserPrompt(profileSlice, batch)
	if err != nil {
		log.Warn("oracle: build prompt", zap.Error(err))
		return empty
	}

	temp := o.temperature
	req := anthropic.MessageRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(Instruction(mode)),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return resilience.Execute(ctx, o.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return o.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		log.Warn("oracle: call failed", zap.Error(err))
		return empty
	}
	resp.Usage.LogCost(o.model, "oracle_"+string(mode))

	values, err := ParseAnswer(resp.Text())
	if err != nil {
		log.Warn("oracle: malformed answer", zap.Error(err))
		return empty
	}
	return values
}
