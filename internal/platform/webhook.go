// Package platform delivers workflow actions to the platform that owns the
// comments.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"commentguard/internal/models"
	"commentguard/internal/observability"
	"commentguard/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimeout bounds a webhook call when none is configured.
const DefaultTimeout = 5 * time.Second

// ActionRequest is the body POSTed for each action.
type ActionRequest struct {
	CommentID string            `json:"comment_id"`
	Action    models.ActionType `json:"action"`
}

// WebhookSink posts actions to a platform endpoint. Any non-2xx response is
// treated as a rejection.
type WebhookSink struct {
	url     string
	token   string
	timeout time.Duration
}

var _ workflow.ActionSink = (*WebhookSink)(nil)

// Option configures a WebhookSink.
type Option func(*WebhookSink)

// WithBearerToken sends token in the Authorization header.
func WithBearerToken(token string) Option {
	return func(s *WebhookSink) { s.token = token }
}

// NewWebhookSink returns a sink posting to url.
func NewWebhookSink(url string, timeout time.Duration, opts ...Option) (*WebhookSink, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("ACTION_WEBHOOK_URL must be an http(s) URL, got %q", url)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &WebhookSink{url: url, timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Execute implements workflow.ActionSink.
func (s *WebhookSink) Execute(ctx context.Context, commentID string, action models.ActionType) error {
	span, ctx := observability.NewSpan(ctx, "platform.Execute",
		attribute.String("comment.id", commentID),
		attribute.String("action", string(action)),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetError(err)
		return err
	}
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(s.url).
		JSON(ActionRequest{CommentID: commentID, Action: action}).
		Timeout(timeout)
	if s.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := fmt.Errorf("webhook %s: %w", action, errors.Join(errs...))
		span.SetError(err)
		return err
	}
	span.AddAttributes(attribute.Int("http.status_code", code))
	if code < 200 || code > 299 {
		err := fmt.Errorf("webhook %s: status %d: %s", action, code, truncate(string(body), 200))
		span.SetError(err)
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
