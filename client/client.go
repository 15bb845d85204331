// Package client calls a remote durable server's decision endpoint.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/BDNK1/durable/runtime"
)

type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	RetryWaitMS int
	Debug       bool
}

var DefaultConfig = Config{
	Timeout:     30 * time.Second,
	MaxRetries:  2,
	RetryWaitMS: 100,
}

// Client decides orchestrations on a remote server.
type Client struct {
	client *resty.Client
}

type apiError struct {
	Message string `json:"message"`
}

func New(baseURL string) *Client {
	return NewWithConfig(baseURL, DefaultConfig)
}

func NewWithConfig(baseURL string, cfg Config) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(cfg.MaxRetries).
			SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
			SetDebug(cfg.Debug),
	}
}

// Decide posts a history payload (a bare event array or an object with
// "history", "instanceId" and "input") and returns the server's decision.
// A non-empty instanceID overrides the one in the payload.
func (c *Client) Decide(ctx context.Context, name string, payload []byte, instanceID string) (*runtime.Decision, error) {
	decision := &runtime.Decision{}
	failure := &apiError{}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParam("name", name).
		SetBody(payload).
		SetResult(decision).
		SetError(failure)
	if instanceID != "" {
		req.SetQueryParam("instanceId", instanceID)
	}

	resp, err := req.Post("/orchestrations/{name}/decide")
	if err != nil {
		return nil, fmt.Errorf("decide request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("decide %s: %s: %s", name, resp.Status(), failure.Message)
	}
	return decision, nil
}

// Orchestrations lists the names registered on the server.
func (c *Client) Orchestrations(ctx context.Context) ([]string, error) {
	var out struct {
		Orchestrations []string `json:"orchestrations"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/orchestrations")
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list orchestrations: %s", resp.Status())
	}
	return out.Orchestrations, nil
}
