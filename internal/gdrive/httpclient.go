package gdrive

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/gdfetch/gdfetch/internal/logging"
)

// HTTPOption configures the retrying HTTP client.
type HTTPOption func(rc *retryablehttp.Client)

// WithRetryMax sets how often one request is retried below the per-file
// retry loop.
func WithRetryMax(retryMax int) HTTPOption {
	return func(rc *retryablehttp.Client) {
		rc.RetryMax = retryMax
	}
}

// WithRetryWait sets the backoff bounds between request retries.
func WithRetryWait(min, max time.Duration) HTTPOption {
	return func(rc *retryablehttp.Client) {
		rc.RetryWaitMin = min
		rc.RetryWaitMax = max
	}
}

// NewHTTPClient returns the client every Drive request goes through. It
// retries rate limiting, server errors and connection timeouts; the last
// failed response is handed back to the caller unchanged.
func NewHTTPClient(opts ...HTTPOption) *http.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = logging.StdLog()
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(rc)
	}
	return rc.StandardClient()
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "dial tcp") && strings.Contains(msg, "i/o timeout"):
			return true, err
		case strings.Contains(msg, "connection reset by peer"):
			return true, err
		// Anything else from the transport is left to the per-file retry.
		default:
			return false, err
		}
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
