package release

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/conveyorci/conveyor/internal/infrastructure/resilience"
)

// IndexConfig holds package index connection settings.
type IndexConfig struct {
	URL        string
	Token      string
	Repository string
}

// IndexClient publishes release records and package artifacts.
type IndexClient struct {
	cfg     IndexConfig
	resty   *resty.Client
	breaker *resilience.Breaker
}

// NewIndexClient creates a package index client with retrying transport
// and a circuit breaker.
func NewIndexClient(cfg IndexConfig) *IndexClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(2 * time.Minute).
		SetHeader("User-Agent", "conveyor-publish/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("package-index", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	})

	return &IndexClient{cfg: cfg, resty: restyClient, breaker: breaker}
}

// Enabled reports whether a package index is configured.
func (c *IndexClient) Enabled() bool {
	return c.cfg.URL != ""
}

// CreateRelease records a release entry for the tag. This step is
// compensable: DeleteRelease removes the record.
func (c *IndexClient) CreateRelease(ctx context.Context, tag, notes string) error {
	if !c.Enabled() {
		return nil
	}
	return c.breaker.Do(func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetAuthToken(c.cfg.Token).
			SetBody(map[string]string{"tag": tag, "notes": notes}).
			Post(c.cfg.URL + "/releases")
		if err != nil {
			return fmt.Errorf("create release: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("create release: status %d", resp.StatusCode())
		}
		return nil
	})
}

// DeleteRelease removes a release record created in this run.
func (c *IndexClient) DeleteRelease(ctx context.Context, tag string) error {
	if !c.Enabled() {
		return nil
	}
	return c.breaker.Do(func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetAuthToken(c.cfg.Token).
			Delete(c.cfg.URL + "/releases/" + tag)
		if err != nil {
			return fmt.Errorf("delete release: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("delete release: status %d", resp.StatusCode())
		}
		return nil
	})
}

// UploadArtifact publishes the built package. This is the irreversible
// step: once the index accepts the file there is no rollback, which is
// why the saga sequences it last.
func (c *IndexClient) UploadArtifact(ctx context.Context, path string) error {
	if !c.Enabled() {
		return nil
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect artifact type: %w", err)
	}

	return c.breaker.Do(func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetAuthToken(c.cfg.Token).
			SetFile("content", path).
			SetFormData(map[string]string{
				"repository": c.cfg.Repository,
				"filetype":   mime.String(),
				"filename":   filepath.Base(path),
			}).
			Post(c.cfg.URL + "/upload")
		if err != nil {
			return fmt.Errorf("upload artifact: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("upload artifact: status %d", resp.StatusCode())
		}
		return nil
	})
}
