package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/soyeahso/certagent/internal/llm"
	"github.com/soyeahso/certagent/internal/logging"
)

// FailoverClient walks the configured model chain, moving on to the next
// model when a provider fails with a retryable error.
type FailoverClient struct {
	registry  *llm.Registry
	primary   string
	fallbacks []string
	log       *logging.Logger
}

// NewFailoverClient creates a client that tries primary first and then each
// fallback in order.
func NewFailoverClient(registry *llm.Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	return &FailoverClient{
		registry:  registry,
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("failover"),
	}
}

// Complete runs a blocking completion with failover.
func (f *FailoverClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return failover(ctx, f, req, "complete", llm.Client.Complete)
}

// Stream opens a streaming completion with failover. Once a stream is open
// its errors arrive as events and are not retried.
func (f *FailoverClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
	return failover(ctx, f, req, "stream", llm.Client.Stream)
}

func failover[T any](
	ctx context.Context,
	f *FailoverClient,
	req llm.CompletionRequest,
	op string,
	call func(llm.Client, context.Context, llm.CompletionRequest) (T, error),
) (T, error) {
	var zero T
	var lastErr error

	for _, model := range f.models() {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		client, err := f.registry.Resolve(model)
		if err != nil {
			f.log.Debug().Str("model", model).Err(err).Msg("no provider for model, skipping")
			lastErr = err
			continue
		}

		req.Model = model
		out, err := call(client, ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}
		f.log.Warn().
			Str("op", op).
			Str("model", model).
			Err(err).
			Msg("retryable error, trying next model")
	}

	return zero, lastErr
}

func (f *FailoverClient) models() []string {
	return append([]string{f.primary}, f.fallbacks...)
}

// retryableStatus lists provider HTTP statuses worth a second model.
// 529 is the non-standard "overloaded" status some providers return.
var retryableStatus = map[int]bool{
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	529:                            true,
}

// isRetryable reports whether err suggests trying another model.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var provErr *llm.ProviderError
	if errors.As(err, &provErr) && retryableStatus[provErr.Code] {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"overloaded", "rate limit", "capacity", "timeout"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
