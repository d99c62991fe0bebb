package httputil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/goldcurve/pkg/config"
	"github.com/wonny/goldcurve/pkg/logger"
	"github.com/wonny/goldcurve/pkg/redis"
)

// Client is an HTTP client wrapper with retry logic and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retryConfig  RetryConfig
	sharedPacer  *redis.SharedPacer
	pacingCfg    redis.PacingConfig
	localLimiter *rate.Limiter
}

// RetryConfig holds retry configuration
// 호출자가 명시적으로 넘기는 정책 (전역 상태 없음)
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// RetryFromConfig builds the retry policy for MCX requests.
// MCX_MAX_RETRIES=0 disables retry entirely.
func RetryFromConfig(mcx config.MCXConfig) RetryConfig {
	return RetryConfig{
		MaxRetries:   mcx.MaxRetries,
		InitialDelay: mcx.RetryDelay,
		MaxDelay:     30 * time.Second,
		Enabled:      mcx.MaxRetries > 0,
	}
}

// NewWithPolicy creates a client with an explicit timeout and retry policy
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func NewWithPolicy(log *logger.Logger, timeout time.Duration, retry RetryConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:      log,
		retryConfig: retry,
	}
}

// WithSharedPacer spaces requests through Redis so that every process
// talking to the same upstream shares one schedule
func (c *Client) WithSharedPacer(pacer *redis.SharedPacer, cfg redis.PacingConfig) *Client {
	c.sharedPacer = pacer
	c.pacingCfg = cfg
	return c
}

// WithLocalLimiter sets an in-process limiter used when Redis is unavailable
func (c *Client) WithLocalLimiter(limiter *rate.Limiter) *Client {
	c.localLimiter = limiter
	return c
}

// WithCookieJar enables cookie persistence (session-based endpoints)
func (c *Client) WithCookieJar() *Client {
	jar, _ := cookiejar.New(nil)
	c.httpClient.Jar = jar
	return c
}

// ResetCookies drops all session cookies
func (c *Client) ResetCookies() {
	if c.httpClient.Jar == nil {
		return
	}
	jar, _ := cookiejar.New(nil)
	c.httpClient.Jar = jar
}

// Cookies returns the cookies stored for u
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	if c.httpClient.Jar == nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(u)
}

// RetryPolicy returns the active retry policy
func (c *Client) RetryPolicy() RetryConfig {
	return c.retryConfig
}

// Do executes a prepared request (custom headers) through retry/rate limit
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req)
}

// do executes the request with retry logic and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	startTime := time.Now()
	url := req.URL.String()
	method := req.Method

	if err := c.wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
			"error":    err.Error(),
		}).Error("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// wait blocks on the shared limiter, falling back to the local one
func (c *Client) wait(ctx context.Context) error {
	if c.sharedPacer != nil && c.sharedPacer.Enabled() {
		return c.sharedPacer.Wait(ctx, c.pacingCfg)
	}
	if c.localLimiter != nil {
		return c.localLimiter.Wait(ctx)
	}
	return nil
}

// doWithRetry executes the request with exponential backoff retry
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			// POST body는 매 시도마다 새로 열어야 함
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = c.httpClient.Do(req)

		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		// 재시도 전 이전 응답 정리
		if err == nil {
			resp.Body.Close()
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"url":     req.URL.String(),
		}).Warn("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	return resp, err
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == 429
}
