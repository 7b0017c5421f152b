package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// StatusError carries the HTTP status of a failed fetch alongside the categorizing sentinel
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "status " + e.Status
	}
	return fmt.Sprintf("status %d", e.Code)
}

// StatusCodeOf extracts the HTTP status code from a fetch error, or 0 when the failure happened below HTTP
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Response is a fully read HTTP response body
type Response struct {
	URL        string // Final URL after redirects
	StatusCode int
	Header     http.Header
	Body       []byte
}

// BodyFetcher fetches a URL and returns its body, applying the retry policy
type BodyFetcher interface {
	FetchBody(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error)
}

// Fetcher handles making HTTP requests with configured retry logic, using an underlying http.Client
type Fetcher struct {
	client  *http.Client
	cfg     *config.AppConfig
	limiter *HostLimiter // Optional politeness limiter; nil disables it
	log     *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, limiter *HostLimiter, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		log:     log,
	}
}

// FetchWithRetry performs an HTTP request associated with the provided context.
// 429 and 5xx responses are retried up to cfg.MaxAttempts total attempts with a linear backoff:
// attempt N waits RetryBackoffStep * (N-1). Every other failure, including transport errors, aborts immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, _, err := f.fetchWithRetry(ctx, req, 0)
	return resp, err
}

// fetchWithRetry bounds each attempt by attemptTimeout (0 = no bound) while backoff sleeps
// only observe ctx. The returned release func cancels the deadline of the attempt that
// produced resp; call it once the body has been consumed.
func (f *Fetcher) fetchWithRetry(ctx context.Context, req *http.Request, attemptTimeout time.Duration) (*http.Response, context.CancelFunc, error) {
	var lastErr error
	reqLog := f.log.WithField("url", req.URL.String())
	noop := func() {}

	maxAttempts := f.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, noop, fmt.Errorf("context cancelled (%v) during retry after error: %w", err, lastErr)
			}
			return nil, noop, fmt.Errorf("context cancelled before first attempt: %w", err)
		}

		if attempt > 1 {
			delay := f.cfg.RetryBackoffStep * time.Duration(attempt-1)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_attempts": maxAttempts, "delay": delay}).Warn("Retrying request...")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				reqLog.Warnf("Context cancelled during retry sleep: %v", ctx.Err())
				return nil, noop, fmt.Errorf("context cancelled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
			}
		}

		if err := f.limiter.Wait(ctx, req.URL.Hostname()); err != nil {
			return nil, noop, err
		}

		attemptCtx, release := ctx, noop
		if attemptTimeout > 0 {
			attemptCtx, release = context.WithTimeout(ctx, attemptTimeout)
		}

		resp, err := f.client.Do(req.WithContext(attemptCtx))
		if err != nil {
			release()
			// Transport-level failures (DNS, TCP, TLS, timeouts) are not retried
			reqLog.WithField("attempt", attempt).Warnf("Network error: %v", err)
			return nil, noop, err
		}

		statusCode := resp.StatusCode
		resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "attempt": attempt})
		statusErr := &StatusError{Code: statusCode, Status: resp.Status}

		switch {
		case statusCode >= 200 && statusCode < 300:
			resLog.Debug("Successfully fetched")
			return resp, release, nil

		case statusCode >= 500:
			resLog.Warn("Server error, retrying...")
			lastErr = fmt.Errorf("%w: %w", utils.ErrServerHTTPError, statusErr)
			drain(resp)
			release()
			continue

		case statusCode == http.StatusTooManyRequests:
			resLog.Warn("Received 429 Too Many Requests, retrying...")
			lastErr = fmt.Errorf("%w: %w", utils.ErrClientHTTPError, statusErr)
			drain(resp)
			release()
			continue

		case statusCode >= 400:
			resLog.Warn("Client error (4xx), not retrying")
			// *** Caller MUST close resp.Body in this case ***
			return resp, release, fmt.Errorf("%w: %w", utils.ErrClientHTTPError, statusErr)

		default:
			resLog.Warnf("Non-retryable/unexpected status: %d", statusCode)
			return resp, release, fmt.Errorf("%w: %w", utils.ErrOtherHTTPError, statusErr)
		}
	}

	reqLog.Errorf("All %d fetch attempts failed. Last error: %v", maxAttempts, lastErr)
	return nil, noop, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// FetchBody issues a GET for rawURL with the configured User-Agent and reads the body up to
// cfg.MaxBodyBytes. timeout bounds each attempt (request and body read), not the retry sequence.
func (f *Fetcher) FetchBody(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, rawURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, release, err := f.fetchWithRetry(ctx, req, timeout)
	defer release()
	if err != nil {
		if resp != nil {
			drain(resp)
		}
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.cfg.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.cfg.MaxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrResponseBodyRead, rawURL, err)
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
