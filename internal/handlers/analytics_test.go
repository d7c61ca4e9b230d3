package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

func TestAnalyticsUpdate_SendsSummary(t *testing.T) {
	posts := &fakePostRepo{stats: &domain.PostStats{
		Total:      7,
		ByStatus:   map[string]int{"POSTED": 5, "FAILED": 2},
		ByPlatform: map[string]int{"tiktok": 7},
	}}
	notifier := &fakeNotifier{}
	h := NewAnalyticsUpdateHandler(posts, notifier)

	payload, _ := json.Marshal(map[string]string{"user_id": "user-1"})
	job := &domain.Job{ID: "j1", Type: domain.JobTypeAnalyticsUpdate, Payload: payload}

	require.NoError(t, h.Handle(context.Background(), job))
	require.Len(t, notifier.sent, 1)

	n := notifier.sent[0]
	assert.Equal(t, domain.NotifyAnalyticsReady, n.Type)
	assert.Equal(t, "user-1", n.UserID)

	var got domain.PostStats
	require.NoError(t, json.Unmarshal(n.Data, &got))
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 5, got.ByStatus["POSTED"])
}

func TestAnalyticsUpdate_MissingUserID(t *testing.T) {
	h := NewAnalyticsUpdateHandler(&fakePostRepo{}, &fakeNotifier{})

	job := &domain.Job{ID: "j2", Type: domain.JobTypeAnalyticsUpdate, Payload: []byte(`{}`)}
	require.Error(t, h.Handle(context.Background(), job))
}

func TestAnalyticsUpdate_StatsError(t *testing.T) {
	posts := &fakePostRepo{statsErr: assert.AnError}
	h := NewAnalyticsUpdateHandler(posts, &fakeNotifier{})

	payload, _ := json.Marshal(map[string]string{"user_id": "user-2"})
	job := &domain.Job{ID: "j3", Type: domain.JobTypeAnalyticsUpdate, Payload: payload}
	require.Error(t, h.Handle(context.Background(), job))
}
