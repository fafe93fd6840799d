package clientapp

import (
	"testing"

	"relique/internal/store"
)

func TestJobHandleStatus(t *testing.T) {
	h := newJobHandle("uuid-1", "etc")

	if got := h.Status(); got != store.JobStatusPending {
		t.Fatalf("new handle status = %v, want Pending", got)
	}

	h.setStatus(store.JobStatusActive)
	if got := h.Status(); got != store.JobStatusActive {
		t.Fatalf("status after setStatus = %v, want Active", got)
	}
}

func TestAnyScheduleActive(t *testing.T) {
	active := map[string]bool{"business-hours": true}

	t.Run("module references an active schedule", func(t *testing.T) {
		if !anyScheduleActive([]string{"nights", "business-hours"}, active) {
			t.Fatal("expected true")
		}
	})

	t.Run("module references no active schedule", func(t *testing.T) {
		if anyScheduleActive([]string{"nights"}, active) {
			t.Fatal("expected false")
		}
	})

	t.Run("module has no schedules at all", func(t *testing.T) {
		if anyScheduleActive(nil, active) {
			t.Fatal("expected false")
		}
	})
}
