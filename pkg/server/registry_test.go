package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(0, 0)
	id, ctx := r.Create(context.Background(), "https://example.com/sitemap.xml")

	entry, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, RunStatusPending, entry.Status)
	assert.False(t, entry.StartedAt.IsZero())

	r.Observe(id, models.NewProgress(42, "Analyzing"))
	r.Observe(id, models.NewStats(models.Stats{Total: 3}))
	entry, _ = r.Get(id)
	assert.Equal(t, RunStatusRunning, entry.Status)
	assert.Equal(t, 42, entry.Progress)
	require.NotNil(t, entry.Stats)
	assert.Equal(t, 3, entry.Stats.Total)

	r.Finish(id, nil)
	entry, _ = r.Get(id)
	assert.Equal(t, RunStatusCompleted, entry.Status)
	assert.False(t, entry.CompletedAt.IsZero())
	assert.Error(t, ctx.Err(), "finishing releases the run context")

	r.Observe(id, models.NewProgress(99, "late"))
	entry, _ = r.Get(id)
	assert.Equal(t, 42, entry.Progress, "finished runs ignore events")
	assert.False(t, r.Cancel(id))
}

func TestRegistry_FinishWithError(t *testing.T) {
	r := NewRegistry(0, 0)
	id, _ := r.Create(context.Background(), "https://example.com/sitemap.xml")

	r.Finish(id, errors.New("boom"))
	entry, _ := r.Get(id)
	assert.Equal(t, RunStatusFailed, entry.Status)
	assert.Equal(t, "boom", entry.ErrorMessage)
}

func TestRegistry_CancelAll(t *testing.T) {
	r := NewRegistry(0, 0)
	id1, ctx1 := r.Create(context.Background(), "a")
	id2, ctx2 := r.Create(context.Background(), "b")
	r.Finish(id2, nil)

	r.CancelAll()
	e1, _ := r.Get(id1)
	e2, _ := r.Get(id2)
	assert.Equal(t, RunStatusCancelled, e1.Status)
	assert.Equal(t, RunStatusCompleted, e2.Status)
	assert.Error(t, ctx1.Err())
	assert.Error(t, ctx2.Err())
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, ok := NewRegistry(0, 0).Get("missing")
	assert.False(t, ok)
	assert.Empty(t, NewRegistry(0, 0).List())
}

func TestRegistry_DropsExpiredRuns(t *testing.T) {
	r := NewRegistry(time.Hour, 0)
	clock := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	done, _ := r.Create(context.Background(), "https://a.example/sitemap.xml")
	r.Finish(done, nil)
	running, _ := r.Create(context.Background(), "https://b.example/sitemap.xml")

	clock = clock.Add(59 * time.Minute)
	assert.Len(t, r.List(), 2)

	clock = clock.Add(time.Minute)
	entries := r.List()
	require.Len(t, entries, 1)
	assert.Equal(t, running, entries[0].ID, "unfinished runs are never dropped")
	_, ok := r.Get(done)
	assert.False(t, ok)
}

func TestRegistry_CapsFinishedRuns(t *testing.T) {
	r := NewRegistry(0, 2)
	clock := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	var ids []string
	for i := 0; i < 3; i++ {
		clock = clock.Add(time.Second)
		id, _ := r.Create(context.Background(), "https://example.com/sitemap.xml")
		r.Finish(id, nil)
		ids = append(ids, id)
	}

	_, ok := r.Get(ids[0])
	assert.False(t, ok, "oldest finished run is dropped")
	for _, id := range ids[1:] {
		_, ok := r.Get(id)
		assert.True(t, ok)
	}
}
