package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// getter performs rate-limited GET requests with exponential backoff.
// Transport errors, 429 and 5xx are retried; other statuses are final.
type getter struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
	logger     zerolog.Logger
}

func newGetter(client *http.Client, logger zerolog.Logger) *getter {
	return &getter{
		client:     client,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		maxElapsed: 30 * time.Second,
		logger:     logger,
	}
}

func (g *getter) get(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(data))
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d, body: %s", resp.StatusCode, string(data)))
		}
		body = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = g.maxElapsed
	notify := func(err error, wait time.Duration) {
		g.logger.Warn().Err(err).Dur("retry_in", wait).Msg("request failed, retrying")
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}
