package modelrouter

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/pkg/apperror"
	"github.com/agentoven/llmguardian/pkg/metrics"
	"github.com/agentoven/llmguardian/pkg/models"
)

// ClientConfig controls the Provider Client's retry policy.
type ClientConfig struct {
	MaxRetries     int           // additional attempts after the first; 0 means "try once"
	BaseInterval   time.Duration // backoff base interval
	MaxInterval    time.Duration // backoff cap per attempt
	AttemptTimeout time.Duration // per-attempt deadline, distinct from the overall loop
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.BaseInterval <= 0 {
		c.BaseInterval = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	return c
}

// Client wraps a ProviderDriver with local validation, retry/backoff,
// and cost estimation. Retry arithmetic comes from cenkalti/backoff/v4
// rather than being hand-rolled, and classification of retryable vs
// non-retryable failures routes through apperror.Retryable so that
// policy lives in exactly one place.
type Client struct {
	driver   ProviderDriver
	registry *Registry
	cfg      ClientConfig
	mx       *metrics.Metrics
}

// NewClient builds a Client over a driver and the model registry used
// for cost-rate lookups.
func NewClient(driver ProviderDriver, registry *Registry, cfg ClientConfig) *Client {
	return &Client{driver: driver, registry: registry, cfg: cfg.withDefaults()}
}

// SetMetrics attaches a metrics recorder; safe to skip in tests.
func (c *Client) SetMetrics(mx *metrics.Metrics) {
	c.mx = mx
}

// Complete validates the request, then calls the driver with
// retry/backoff. It returns exactly one of (response, error); on
// exhaustion the last classified error is returned.
func (c *Client) Complete(ctx context.Context, req *models.CompletionRequest) (*models.ProviderResponse, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	var resp *models.ProviderResponse
	attempts := 0

	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()

		r, err := c.driver.Call(attemptCtx, req)
		if err != nil {
			appErr := asAppError(err)
			if !apperror.Retryable(appErr.Code) {
				return backoff.Permanent(appErr)
			}
			return appErr
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(c.retryPolicy(), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Int("attempt", attempts).Str("model_id", req.ModelID).
			Msg("provider call failed, retrying")
		if c.mx != nil {
			c.mx.ProviderRetriesTotal.WithLabelValues(req.ModelID).Inc()
		}
	})
	if err != nil {
		return nil, asAppError(err)
	}

	resp.EstimatedCost = c.estimateCost(req.ModelID, resp.InputTokens, resp.OutputTokens)
	return resp, nil
}

// retryPolicy builds an exponential-backoff-with-jitter policy capped
// at MaxRetries additional attempts (MaxRetries=0 disables retry).
func (c *Client) retryPolicy() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.BaseInterval
	exp.MaxInterval = c.cfg.MaxInterval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.5 // jitter: each wait drawn from ±50% of the current interval; no additive uniform(0, base) term
	exp.MaxElapsedTime = 0        // bounded by attempt count below, not wall-clock
	return backoff.WithMaxRetries(exp, uint64(c.cfg.MaxRetries))
}

// validate performs the request-shape checks the driver itself does
// not: non-empty prompt, a positive output budget, a model id known to
// both the registry and the driver actually dispatching the call.
func (c *Client) validate(req *models.CompletionRequest) error {
	if req.Prompt == "" {
		return apperror.New(apperror.CodeValidation, "prompt must not be empty")
	}
	if req.MaxOutputTokens <= 0 {
		return apperror.New(apperror.CodeValidation, "maxOutputTokens must be positive")
	}
	if _, ok := c.registry.Get(req.ModelID); !ok {
		return apperror.New(apperror.CodeValidation, "unknown model id: "+req.ModelID)
	}
	if !c.driver.Supports(req.ModelID) {
		return apperror.New(apperror.CodeValidation, "model id not supported by provider: "+req.ModelID)
	}
	return nil
}

func (c *Client) estimateCost(modelID string, inputTokens, outputTokens int64) float64 {
	profile, ok := c.registry.Get(modelID)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*profile.InputCostPer1k + float64(outputTokens)/1000*profile.OutputCostPer1k
}

// asAppError normalizes any error (including backoff's permanent
// wrapper) into *apperror.Error, defaulting foreign errors to internal.
func asAppError(err error) *apperror.Error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Wrap(apperror.CodeInternal, "provider call failed", err)
}
