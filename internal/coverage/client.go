package coverage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/conveyorci/conveyor/internal/infrastructure/resilience"
)

// Upload is one coverage submission, keyed the way the service expects:
// commit, branch, and the matrix cell that produced it.
type Upload struct {
	Branch  string  `json:"branch"`
	SHA     string  `json:"sha"`
	Job     string  `json:"job"`
	Cell    string  `json:"cell,omitempty"`
	Percent float64 `json:"percent"`
}

// Config holds coverage service connection settings.
type Config struct {
	URL   string
	Token string
}

// Client ships coverage results to the external service.
type Client struct {
	cfg     Config
	resty   *resty.Client
	breaker *resilience.Breaker
}

// NewClient creates a coverage client with retrying transport and a
// circuit breaker. Uploads are best-effort; the caller decides whether
// a failure matters (it never fails a test cell).
func NewClient(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "conveyor-coverage/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("coverage", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	})

	return &Client{cfg: cfg, resty: restyClient, breaker: breaker}
}

// Enabled reports whether a coverage service is configured.
func (c *Client) Enabled() bool {
	return c.cfg.URL != ""
}

// Send uploads one coverage result.
func (c *Client) Send(ctx context.Context, up Upload) error {
	if !c.Enabled() {
		return nil
	}

	return c.breaker.Do(func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetAuthToken(c.cfg.Token).
			SetBody(up).
			Post(c.cfg.URL + "/upload")
		if err != nil {
			return fmt.Errorf("coverage upload: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("coverage upload: status %d", resp.StatusCode())
		}
		return nil
	})
}
