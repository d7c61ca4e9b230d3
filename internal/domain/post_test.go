package domain_test

import (
	"testing"
	"time"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

func TestPostStatusConstants(t *testing.T) {
	tests := []struct {
		status domain.PostStatus
		want   string
	}{
		{domain.PostStatusDraft, "DRAFT"},
		{domain.PostStatusScheduled, "SCHEDULED"},
		{domain.PostStatusPublishing, "PUBLISHING"},
		{domain.PostStatusPosted, "POSTED"},
		{domain.PostStatusFailed, "FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if string(tt.status) != tt.want {
				t.Errorf("PostStatus value = %q, want %q", tt.status, tt.want)
			}
		})
	}
}

func TestPostStatusIsTerminal(t *testing.T) {
	for _, s := range []domain.PostStatus{domain.PostStatusPosted, domain.PostStatusFailed} {
		t.Run(string(s), func(t *testing.T) {
			if !s.IsTerminal() {
				t.Errorf("IsTerminal(%q) = false, want true", s)
			}
		})
	}
	for _, s := range []domain.PostStatus{
		domain.PostStatusDraft, domain.PostStatusScheduled, domain.PostStatusPublishing,
	} {
		t.Run(string(s), func(t *testing.T) {
			if s.IsTerminal() {
				t.Errorf("IsTerminal(%q) = true, want false", s)
			}
		})
	}
}

func TestDue(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		status    domain.PostStatus
		scheduled time.Time
		want      bool
	}{
		{"scheduled and past", domain.PostStatusScheduled, now.Add(-time.Minute), true},
		{"scheduled exactly now", domain.PostStatusScheduled, now, true},
		{"scheduled in future", domain.PostStatusScheduled, now.Add(time.Minute), false},
		{"draft and past", domain.PostStatusDraft, now.Add(-time.Minute), false},
		{"failed and past", domain.PostStatusFailed, now.Add(-time.Minute), false},
		{"publishing and past", domain.PostStatusPublishing, now.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.ScheduledPost{Status: tt.status, ScheduledTime: tt.scheduled}
			if got := p.Due(now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}
