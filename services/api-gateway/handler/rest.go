package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/kafka"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/notify"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
	redisstore "github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/redis"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/pkg/telemetry"
)

const defaultListLimit = 20

// REST handles HTTP requests for the API Gateway.
type REST struct {
	posts         postgres.PostRepository
	jobs          postgres.JobRepository
	notifications postgres.NotificationRepository
	trends        postgres.TrendRepository
	store         redisstore.JobStateStore
	producer      kafka.Producer
	notifier      notify.Notifier
	logger        *slog.Logger
}

// NewREST creates a new REST handler.
func NewREST(
	posts postgres.PostRepository,
	jobs postgres.JobRepository,
	notifications postgres.NotificationRepository,
	trends postgres.TrendRepository,
	store redisstore.JobStateStore,
	producer kafka.Producer,
	logger *slog.Logger,
) *REST {
	return &REST{
		posts:         posts,
		jobs:          jobs,
		notifications: notifications,
		trends:        trends,
		store:         store,
		producer:      producer,
		notifier:      notify.NewStoreNotifier(notifications, logger),
		logger:        logger,
	}
}

// Routes mounts every handler on a chi router.
func (h *REST) Routes(r chi.Router) {
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/upcoming", h.ListUpcoming)
	r.Get("/posts/{id}", h.GetPost)
	r.Post("/posts/{id}/cancel", h.CancelPost)
	r.Post("/posts/{id}/reschedule", h.ReschedulePost)
	r.Get("/stats", h.GetStats)
	r.Post("/jobs", h.SubmitJob)
	r.Get("/jobs/{id}", h.GetJobStatus)
	r.Get("/notifications", h.ListNotifications)
	r.Post("/notifications/{id}/read", h.MarkNotificationRead)
	r.Get("/trends", h.ListTrends)
}

// CreatePostRequest is the JSON body for POST /api/v1/posts.
type CreatePostRequest struct {
	UserID        string     `json:"user_id"`
	Platform      string     `json:"platform"`
	Content       string     `json:"content"`
	Hashtags      []string   `json:"hashtags,omitempty"`
	Media         []string   `json:"media,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	ViralScore    *float64   `json:"viral_score,omitempty"`
}

// CreatePost handles POST /api/v1/posts. A post with a scheduled_time is
// created SCHEDULED and picked up by the dispatcher when due; without one it
// stays a DRAFT.
func (h *REST) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("api-gateway").Start(r.Context(), "api_gateway.create_post")
	defer span.End()

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "field 'user_id' is required")
		return
	}
	if strings.TrimSpace(req.Platform) == "" {
		writeError(w, http.StatusBadRequest, "field 'platform' is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "field 'content' is required")
		return
	}

	now := time.Now().UTC()
	post := &domain.ScheduledPost{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		Platform:   req.Platform,
		Content:    req.Content,
		Hashtags:   req.Hashtags,
		Media:      req.Media,
		Status:     domain.PostStatusDraft,
		ViralScore: req.ViralScore,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.ScheduledTime != nil {
		if req.ScheduledTime.Before(now) {
			writeError(w, http.StatusBadRequest, "scheduled_time must be in the future")
			return
		}
		post.ScheduledTime = req.ScheduledTime.UTC()
		post.Status = domain.PostStatusScheduled
	}

	span.SetAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("post.platform", post.Platform),
	)

	if err := h.posts.Create(ctx, post); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "post insert failed")
		h.logger.Error("create post", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	telemetry.APIPostsCreated.WithLabelValues(post.Platform, string(post.Status)).Inc()
	h.logger.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("platform", post.Platform),
		slog.String("status", string(post.Status)),
	)

	writeJSON(w, http.StatusCreated, post)
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *REST) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writePostError(w, err, "retrieve post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ListUpcoming handles GET /api/v1/posts/upcoming?user_id=&limit=.
func (h *REST) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'user_id' is required")
		return
	}

	posts, err := h.posts.ListUpcoming(r.Context(), userID, time.Now().UTC(), queryLimit(r))
	if err != nil {
		h.logger.Error("list upcoming", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if posts == nil {
		posts = []*domain.ScheduledPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// ownerRequest carries the acting user for cancel/reschedule.
type ownerRequest struct {
	UserID        string     `json:"user_id"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
}

// CancelPost handles POST /api/v1/posts/{id}/cancel. The post returns to
// drafts; only its owner may cancel it.
func (h *REST) CancelPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "field 'user_id' is required")
		return
	}

	if err := h.posts.Cancel(r.Context(), postID, req.UserID); err != nil {
		h.writePostError(w, err, "cancel post")
		return
	}
	_ = h.notifier.Send(r.Context(), notify.PostCancelled(postID, req.UserID))
	h.logger.Info("post cancelled", slog.String("post_id", postID), slog.String("user_id", req.UserID))
	writeJSON(w, http.StatusOK, map[string]string{"post_id": postID, "status": string(domain.PostStatusDraft)})
}

// ReschedulePost handles POST /api/v1/posts/{id}/reschedule. Failed posts
// may be rescheduled; they go back to SCHEDULED and run again when due.
func (h *REST) ReschedulePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "field 'user_id' is required")
		return
	}
	if req.ScheduledTime == nil {
		writeError(w, http.StatusBadRequest, "field 'scheduled_time' is required")
		return
	}

	if err := h.posts.Reschedule(r.Context(), postID, req.UserID, req.ScheduledTime.UTC()); err != nil {
		h.writePostError(w, err, "reschedule post")
		return
	}
	_ = h.notifier.Send(r.Context(), notify.PostRescheduled(postID, req.UserID, req.ScheduledTime.UTC()))
	h.logger.Info("post rescheduled",
		slog.String("post_id", postID),
		slog.Time("scheduled_time", *req.ScheduledTime),
	)
	writeJSON(w, http.StatusOK, map[string]string{"post_id": postID, "status": string(domain.PostStatusScheduled)})
}

// GetStats handles GET /api/v1/stats?user_id=.
func (h *REST) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'user_id' is required")
		return
	}

	stats, err := h.posts.Stats(r.Context(), userID)
	if err != nil {
		h.logger.Error("post stats", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// SubmitJobRequest is the JSON body for POST /api/v1/jobs.
type SubmitJobRequest struct {
	Type    domain.JobType  `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubmitJobResponse is the 202 response body.
type SubmitJobResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitJob handles POST /api/v1/jobs. The request is published to Kafka;
// the maintenance service consumes it and enqueues the job. The gateway
// mints the job ID so the caller can poll GET /api/v1/jobs/{id} right away.
func (h *REST) SubmitJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("api-gateway").Start(r.Context(), "api_gateway.submit_job")
	defer span.End()

	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(string(req.Type)) == "" {
		writeError(w, http.StatusBadRequest, "field 'type' is required")
		return
	}

	jobID := uuid.New().String()
	now := time.Now().UTC()
	span.SetAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.type", string(req.Type)),
	)

	// Mirror PENDING into Redis so status reads work before the maintenance
	// service has consumed the request.
	job := &domain.Job{
		ID:        jobID,
		Type:      req.Type,
		Status:    domain.JobStatusPending,
		Payload:   req.Payload,
		CreatedAt: now,
	}
	if err := h.store.SetStatus(ctx, jobID, domain.JobStatusPending); err != nil {
		h.logger.Error("job status write", slog.String("job_id", jobID), slog.String("error", err.Error()))
	}
	if err := h.store.SetJobMeta(ctx, job); err != nil {
		h.logger.Error("job meta write", slog.String("job_id", jobID), slog.String("error", err.Error()))
	}

	value, err := json.Marshal(domain.JobRequest{ID: jobID, Type: req.Type, Payload: req.Payload})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to serialize job request")
		return
	}
	if err := h.producer.Publish(ctx, kafka.TopicJobRequests, jobID, value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		h.logger.Error("publish job request", slog.String("job_id", jobID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	telemetry.APIJobsSubmitted.WithLabelValues(string(req.Type)).Inc()
	h.logger.Info("job submitted",
		slog.String("job_id", jobID),
		slog.String("job_type", string(req.Type)),
	)

	writeJSON(w, http.StatusAccepted, SubmitJobResponse{
		JobID:     jobID,
		Status:    string(domain.JobStatusPending),
		CreatedAt: now,
	})
}

// GetJobStatus handles GET /api/v1/jobs/{id}: Redis fast path, Postgres
// fallback once the Redis keys expire.
func (h *REST) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	ctx := r.Context()

	job, err := h.store.GetJobMeta(ctx, jobID)
	if err != nil {
		var notFound *domain.JobNotFoundError
		if !errors.As(err, &notFound) {
			h.logger.Error("redis error", slog.String("job_id", jobID), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to retrieve job")
			return
		}

		job, err = h.jobs.GetByID(ctx, jobID)
		if err != nil {
			if errors.As(err, &notFound) {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			h.logger.Error("postgres error", slog.String("job_id", jobID), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to retrieve job")
			return
		}
	}

	// The queue may have advanced the status after the meta snapshot.
	if status, err := h.store.GetStatus(ctx, jobID); err == nil {
		job.Status = status
	}

	writeJSON(w, http.StatusOK, job)
}

// ListNotifications handles GET /api/v1/notifications?user_id=&limit=.
func (h *REST) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'user_id' is required")
		return
	}

	notifications, err := h.notifications.ListByUser(r.Context(), userID, queryLimit(r))
	if err != nil {
		h.logger.Error("list notifications", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /api/v1/notifications/{id}/read.
func (h *REST) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "field 'user_id' is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.notifications.MarkRead(r.Context(), id, req.UserID); err != nil {
		h.logger.Error("mark notification read", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "read"})
}

// ListTrends handles GET /api/v1/trends?platform=&limit=.
func (h *REST) ListTrends(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'platform' is required")
		return
	}

	trends, err := h.trends.ListByPlatform(r.Context(), platform, queryLimit(r))
	if err != nil {
		h.logger.Error("list trends", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trends")
		return
	}
	if trends == nil {
		trends = []*postgres.TrendingTopic{}
	}
	writeJSON(w, http.StatusOK, trends)
}

// Healthz handles GET /healthz.
func (h *REST) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz — checks Redis connectivity.
func (h *REST) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.store.GetStatus(ctx, "__readyz__"); err != nil {
		var notFound *domain.JobNotFoundError
		if !errors.As(err, &notFound) {
			writeError(w, http.StatusServiceUnavailable, "redis not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writePostError maps repository errors to HTTP status codes.
func (h *REST) writePostError(w http.ResponseWriter, err error, op string) {
	var notFound *domain.PostNotFoundError
	var notOwned *domain.PostNotOwnedError
	var badState *domain.InvalidPostStateError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.As(err, &notOwned):
		writeError(w, http.StatusForbidden, "post belongs to another user")
	case errors.As(err, &badState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return defaultListLimit
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
