package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/genai"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/pkg/retry"
)

// defaultPlatforms is used when the job payload does not name any.
var defaultPlatforms = []string{"tiktok", "youtube", "instagram"}

// trendPayload is the expected JSON structure in job.Payload.
type trendPayload struct {
	Platforms []string `json:"platforms"`
}

// trendEntry mirrors the JSON the completion model is asked to return.
type trendEntry struct {
	Topic string  `json:"topic"`
	Score float64 `json:"score"`
}

// TrendUpdateHandler refreshes the trending_topics table from the completion
// provider, one platform at a time.
type TrendUpdateHandler struct {
	ai        genai.Client
	trends    postgres.TrendRepository
	baseDelay time.Duration
}

// NewTrendUpdateHandler creates a TrendUpdateHandler.
func NewTrendUpdateHandler(ai genai.Client, trends postgres.TrendRepository) *TrendUpdateHandler {
	return &TrendUpdateHandler{ai: ai, trends: trends, baseDelay: time.Second}
}

func (h *TrendUpdateHandler) JobType() domain.JobType { return domain.JobTypeTrendUpdate }

func (h *TrendUpdateHandler) Handle(ctx context.Context, job *domain.Job) error {
	ctx, span := otel.Tracer("maintenance").Start(ctx, "handler.trend_update")
	defer span.End()

	platforms := defaultPlatforms
	if len(job.Payload) > 0 {
		var p trendPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid payload")
			return fmt.Errorf("invalid trend_update payload: %w", err)
		}
		if len(p.Platforms) > 0 {
			platforms = p.Platforms
		}
	}
	span.SetAttributes(attribute.StringSlice("trend.platforms", platforms))

	now := time.Now().UTC()
	for _, platform := range platforms {
		entries, err := h.fetchTrends(ctx, platform)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "trend fetch failed")
			return fmt.Errorf("fetch trends for %s: %w", platform, err)
		}
		for _, e := range entries {
			t := &postgres.TrendingTopic{
				Platform:    platform,
				Topic:       e.Topic,
				Score:       e.Score,
				RefreshedAt: now,
			}
			if err := h.trends.Upsert(ctx, t); err != nil {
				span.RecordError(err)
				return fmt.Errorf("store trend for %s: %w", platform, err)
			}
		}
	}
	return nil
}

func (h *TrendUpdateHandler) fetchTrends(ctx context.Context, platform string) ([]trendEntry, error) {
	prompt := fmt.Sprintf(
		`List the 10 currently trending content topics on %s as a JSON array of`+
			` objects with "topic" (string) and "score" (0-100 number). Return only JSON.`,
		platform,
	)

	var reply string
	err := retry.Do(ctx, retry.Config{MaxAttempts: 3, BaseDelay: h.baseDelay}, func() error {
		var callErr error
		reply, callErr = h.ai.Complete(ctx, prompt, genai.Options{Temperature: 0.4})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return parseTrends(reply), nil
}

// parseTrends extracts trend entries from a model reply. Models wrap the JSON
// in prose or code fences often enough that a parse failure falls back to a
// single generic entry rather than failing the whole refresh.
func parseTrends(reply string) []trendEntry {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start >= 0 && end > start {
		var entries []trendEntry
		if err := json.Unmarshal([]byte(reply[start:end+1]), &entries); err == nil && len(entries) > 0 {
			return entries
		}
	}
	return []trendEntry{{Topic: "general", Score: 50}}
}
