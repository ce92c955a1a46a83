package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("advice")
	if job.ID == "" {
		t.Error("expected job ID")
	}
	if job.Status != StatusPending {
		t.Errorf("expected pending, got %s", job.Status)
	}

	retrieved, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != job.ID {
		t.Error("IDs don't match")
	}
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("advice")

	err := store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, _ := store.Get(job.ID)
	if retrieved.Status != StatusRunning {
		t.Errorf("expected running, got %s", retrieved.Status)
	}
	if retrieved.Progress != 50 {
		t.Errorf("expected 50, got %d", retrieved.Progress)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("advice")

	got, _ := store.Get(job.ID)
	got.Status = StatusFailed

	again, _ := store.Get(job.ID)
	assert.Equal(t, StatusPending, again.Status)
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1 := store.Create("advice")
	store.Create("advice")
	store.Create("advice") // Should evict job1

	_, err := store.Get(job1.ID)
	if err == nil {
		t.Error("expected job1 to be evicted")
	}
	assert.Len(t, store.List(), 2)
}

func TestStore_ExpiresFinishedJobs(t *testing.T) {
	store := NewStore(100, time.Hour)
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("advice")
	require.NoError(t, store.Update(done.ID, func(j *Job) { j.Status = StatusComplete }))
	running := store.Create("advice")
	require.NoError(t, store.Update(running.ID, func(j *Job) { j.Status = StatusRunning }))

	now = now.Add(2 * time.Hour)
	store.Create("advice")

	_, err := store.Get(done.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.Get(running.ID)
	assert.NoError(t, err)
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, store.Update("nonexistent", func(*Job) {}), core.ErrNotFound)
}

func TestStore_ListAndActive(t *testing.T) {
	store := NewStore(100, time.Hour)
	a := store.Create("advice")
	store.Create("quotes")
	store.Create("advice")
	store.Update(a.ID, func(j *Job) { j.Status = StatusFailed })

	jobs := store.List()
	if len(jobs) != 3 {
		t.Errorf("expected 3 jobs, got %d", len(jobs))
	}
	assert.Equal(t, a.ID, jobs[0].ID)
	assert.Equal(t, 1, store.Active("advice"))
	assert.Equal(t, 1, store.Active("quotes"))
}
