package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/logger"
)

// WarmUpPolicy bounds the health probe retries.
type WarmUpPolicy struct {
	Attempts    int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultWarmUpPolicy makes two attempts with a capped exponential delay.
func DefaultWarmUpPolicy() WarmUpPolicy {
	return WarmUpPolicy{
		Attempts:    constants.WarmUpAttempts,
		InitialWait: constants.WarmUpInitialWait,
		MaxWait:     constants.WarmUpMaxWait,
	}
}

// WarmUp pings the health endpoint so a sleeping server starts before the
// user submits a form. 4xx responses count as awake; transport errors and
// 5xx are retried.
func (c *Client) WarmUp(ctx context.Context, policy WarmUpPolicy) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialWait
	b.MaxInterval = policy.MaxWait
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0

	attempt := 0
	probe := func() error {
		attempt++
		err := c.ping(ctx)
		if err != nil {
			logger.Debug("Warm-up probe failed", "attempt", attempt, "error", err)
		}
		return err
	}

	policyWithContext := backoff.WithContext(backoff.WithMaxRetries(b, uint64(policy.Attempts-1)), ctx)
	if err := backoff.Retry(probe, policyWithContext); err != nil {
		return fmt.Errorf("warm-up failed after %d attempt(s): %w", attempt, err)
	}
	logger.Debug("Backend warmed up", "attempts", attempt)
	return nil
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building health request: %w", err))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Kind: classifyTransport(err), BaseURL: c.healthURL, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))

	if resp.StatusCode >= 500 {
		return &APIError{StatusCode: resp.StatusCode, Method: http.MethodGet, Path: c.healthURL}
	}
	return nil
}
