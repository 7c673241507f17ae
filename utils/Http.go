package utils

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

// NewRetryableClient returns an HTTP client that retries on transport errors,
// rate limiting and server errors.
func NewRetryableClient(retryMax int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = retryMax
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			log.Debugf("Retrying HTTP request: %v", err)
			return true, nil
		}
		if resp == nil {
			return false, nil
		}
		if resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented) {
			log.Debugf("Retrying HTTP request, status %d", resp.StatusCode)
			return true, nil
		}
		return false, nil
	}
	return client
}
