package mcx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/goldcurve/pkg/httputil"
	"github.com/wonny/goldcurve/pkg/logger"
)

const (
	// DefaultBaseURL is the MCX India site root
	DefaultBaseURL = "https://www.mcxindia.com"

	bhavcopyPagePath = "/market-data/bhavcopy"
	bhavcopyAPIPath  = "/backpage.aspx/GetCommoditywiseBhavCopy"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client is one MCX bhavcopy session (cookie jar + headers)
// ⭐ SSOT: MCX API 호출은 이 클라이언트에서만
// 전역 세션 없음: 워커마다 하나씩 생성
type Client struct {
	httpClient     *httputil.Client
	logger         *logger.Logger
	baseURL        string
	instrumentName string
	requests       int // 현재 세션에서 보낸 API 요청 수
}

// NewClient creates a session-bound client. httpClient gets its own cookie jar.
func NewClient(httpClient *httputil.Client, baseURL, instrumentName string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if instrumentName == "" {
		instrumentName = "FUTCOM"
	}
	return &Client{
		httpClient:     httpClient.WithCookieJar(),
		logger:         log,
		baseURL:        strings.TrimRight(baseURL, "/"),
		instrumentName: instrumentName,
	}
}

// InitSession drops old cookies and visits the bhavcopy page to get new ones
func (c *Client) InitSession(ctx context.Context) error {
	c.httpClient.ResetCookies()
	c.requests = 0

	if _, err := c.fetchPage(ctx); err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	c.logger.Debug("MCX session initialized")
	return nil
}

// Requests returns the API requests sent since the last InitSession
func (c *Client) Requests() int {
	return c.requests
}

// BhavcopyPage returns the HTML of the bhavcopy page
func (c *Client) BhavcopyPage(ctx context.Context) (string, error) {
	return c.fetchPage(ctx)
}

func (c *Client) fetchPage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+bhavcopyPagePath, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// setAPIHeaders mirrors the browser XHR the bhavcopy page sends
func (c *Client) setAPIHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+bhavcopyPagePath)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}
