package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
	"github.com/valyala/fasthttp"
)

var (
	ErrNotConfigured = errors.New("workflow webhook url is not configured")
)

const (
	ActionTrigger = "trigger"
	ActionTest    = "test"
)

const userAgent = "campaign-mailer/1.0"

type Config struct {
	WebhookURL     string
	TriggerTimeout time.Duration
	TestTimeout    time.Duration
	MaxConns       int
	// Dial replaces the network dialer, used by tests.
	Dial fasthttp.DialFunc
}

// Response is what the workflow engine answered.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// UpstreamError is a response outside 2xx.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("workflow webhook returned status %d", e.StatusCode)
}

// WorkflowClient posts to the external workflow engine webhook. Calls are
// fire-and-report: nothing here touches the queue.
type WorkflowClient struct {
	config *Config
	client *fasthttp.Client
}

func NewWorkflowClient(config *Config) (*WorkflowClient, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.TriggerTimeout <= 0 {
		config.TriggerTimeout = 30 * time.Second
	}
	if config.TestTimeout <= 0 {
		config.TestTimeout = 8 * time.Second
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 16
	}

	client := &fasthttp.Client{
		Name:                userAgent,
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         config.TriggerTimeout,
		WriteTimeout:        config.TriggerTimeout,
		MaxIdleConnDuration: 60 * time.Second,
		Dial:                config.Dial,
	}

	if config.WebhookURL == "" {
		logger.Warn("workflow webhook url is missing, trigger and test calls will fail")
	} else {
		logger.Info("workflow client initialized", "trigger_timeout", config.TriggerTimeout, "test_timeout", config.TestTimeout)
	}

	return &WorkflowClient{config: config, client: client}, nil
}

func (c *WorkflowClient) Configured() bool {
	return c.config.WebhookURL != ""
}

// Trigger forwards body to the webhook as is.
func (c *WorkflowClient) Trigger(ctx context.Context, body []byte) (*Response, error) {
	return c.post(ctx, ActionTrigger, body, c.config.TriggerTimeout)
}

// Test sends a probe payload with the shorter test timeout.
func (c *WorkflowClient) Test(ctx context.Context, body []byte) (*Response, error) {
	return c.post(ctx, ActionTest, body, c.config.TestTimeout)
}

func (c *WorkflowClient) post(ctx context.Context, action string, body []byte, timeout time.Duration) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.WebhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err := c.client.DoDeadline(req, resp, deadline)
	elapsed := time.Since(start)

	if err != nil {
		prom.AddWebhookCallDuration(elapsed.Seconds(), action, "unreachable")
		logger.Error("workflow webhook unreachable", "action", action, "elapsed", elapsed, "err", err)
		return nil, fmt.Errorf("workflow %s request failed: %w", action, err)
	}

	result := &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), resp.Body()...),
	}

	if result.StatusCode < 200 || result.StatusCode > 299 {
		prom.AddWebhookCallDuration(elapsed.Seconds(), action, "error")
		logger.Error("workflow webhook returned an error",
			"action", action,
			"status", result.StatusCode,
			"body", string(result.Body))
		return nil, &UpstreamError{StatusCode: result.StatusCode, Body: result.Body}
	}

	prom.AddWebhookCallDuration(elapsed.Seconds(), action, "ok")
	logger.Info("workflow webhook called", "action", action, "status", result.StatusCode, "elapsed", elapsed)
	return result, nil
}
