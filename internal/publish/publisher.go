// Package publish is the boundary to the destination platform APIs. The core
// only consumes success/failure; real platform SDKs live behind this interface.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

// Publisher attempts to publish a post to its destination platform.
type Publisher interface {
	Publish(ctx context.Context, post *domain.ScheduledPost) error
}

// request is the JSON body sent to a platform endpoint.
type request struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags,omitempty"`
	Media    []string `json:"media,omitempty"`
	UserID   string   `json:"user_id"`
}

// HTTPPublisher posts content to per-platform HTTP endpoints.
type HTTPPublisher struct {
	endpoints map[string]string // platform → base URL
	client    *http.Client
}

// NewHTTPPublisher creates a publisher for the given platform endpoint map.
func NewHTTPPublisher(endpoints map[string]string, timeout time.Duration) *HTTPPublisher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPPublisher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, post *domain.ScheduledPost) error {
	ctx, span := otel.Tracer("publisher").Start(ctx, "publisher.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("post.platform", post.Platform),
	)

	base, ok := p.endpoints[post.Platform]
	if !ok {
		err := fmt.Errorf("no publish endpoint configured for platform %q", post.Platform)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown platform")
		return err
	}

	body, err := json.Marshal(request{
		Content:  post.Content,
		Hashtags: post.Hashtags,
		Media:    post.Media,
		UserID:   post.UserID,
	})
	if err != nil {
		return fmt.Errorf("marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/posts", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request failed")
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http call failed")
		return fmt.Errorf("publish to %s: %w", post.Platform, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		err := errors.New("rate limited by " + post.Platform)
		span.RecordError(err)
		span.SetStatus(codes.Error, "platform rate limit")
		return err
	case resp.StatusCode >= http.StatusBadRequest:
		err := fmt.Errorf("platform %s returned status %d", post.Platform, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status code")
		return err
	}
	return nil
}
