// Package youtube provides a video metadata client for the YouTube Data API.
package youtube

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/osa030/ytlounge/internal/app/metadata"
	"github.com/osa030/ytlounge/internal/domain/video"
)

// probeVideoID is a public video used to check that an API key works.
const probeVideoID = "oa__fLArsFk"

// Client is a YouTube Data API metadata client.
type Client struct {
	service    *ytapi.Service
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// Config represents YouTube client configuration.
type Config struct {
	APIKey     string
	Endpoint   string        // Overrides the API base URL
	Timeout    time.Duration // Per lookup timeout
	HTTPClient *http.Client
}

// New creates a new YouTube client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google api key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube service")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		service:    svc,
		timeout:    timeout,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}, nil
}

// NewFactory returns a metadata.Factory creating clients with cfg and the given key.
func NewFactory(cfg Config) metadata.Factory {
	return func(ctx context.Context, apiKey string) (metadata.Service, error) {
		c := cfg
		c.APIKey = apiKey
		client, err := New(ctx, c)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// NewValidatorFactory returns a factory of API key validators using cfg.
func NewValidatorFactory(cfg Config) func(ctx context.Context, apiKey string) (metadata.Validator, error) {
	return func(ctx context.Context, apiKey string) (metadata.Validator, error) {
		c := cfg
		c.APIKey = apiKey
		client, err := New(ctx, c)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Lookup retrieves the snippet of a video.
func (c *Client) Lookup(ctx context.Context, id string) (*video.Record, error) {
	var resp *ytapi.VideoListResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var err error
		resp, err = c.service.Videos.List([]string{"snippet"}).Id(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, errors.Wrapf(metadata.ErrNotFound, "id=%s", id)
	}

	snippet := resp.Items[0].Snippet
	return &video.Record{
		ID:           id,
		Title:        snippet.Title,
		Description:  snippet.Description,
		ChannelTitle: snippet.ChannelTitle,
	}, nil
}

// Validate checks that the API key is accepted.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.Lookup(ctx, probeVideoID)
	if err == nil || errors.Is(err, metadata.ErrNotFound) {
		return nil
	}
	return err
}

// withRetry executes fn with retries on server errors.
func (c *Client) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is a rate limit or server error.
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

// classify maps API errors to metadata errors.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
		return errors.Mark(errors.Wrap(err, "youtube api rejected the request"), metadata.ErrInvalidAPIKey)
	}
	return errors.Mark(errors.Wrap(err, "youtube api request failed"), metadata.ErrServiceUnavailable)
}
