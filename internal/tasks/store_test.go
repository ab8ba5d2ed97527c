package tasks

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/job-hunter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore()
	created := store.Create()

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.FinishedAt)
	assert.NotEqual(t, created.ID, store.Create().ID)
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := NewStore().Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Complete(t *testing.T) {
	store := NewStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	rec := store.Create()

	store.now = func() time.Time { return base.Add(time.Minute) }
	result := &types.CrewResult{InterviewPrep: "prep"}
	require.NoError(t, store.Complete(rec.ID, result))

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Same(t, result, got.Result)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, base.Add(time.Minute), *got.FinishedAt)
	assert.Equal(t, base, got.CreatedAt)
}

func TestStore_Fail(t *testing.T) {
	store := NewStore()
	rec := store.Create()

	require.NoError(t, store.Fail(rec.ID, "stage search failed: boom"))

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Nil(t, got.Result)
	assert.Equal(t, "stage search failed: boom", got.Error)
}

func TestStore_TerminalTransitionHappensOnce(t *testing.T) {
	store := NewStore()
	completed := store.Create()
	failed := store.Create()
	require.NoError(t, store.Complete(completed.ID, &types.CrewResult{}))
	require.NoError(t, store.Fail(failed.ID, "x"))

	assert.ErrorIs(t, store.Complete(completed.ID, &types.CrewResult{}), ErrAlreadyTerminal)
	assert.ErrorIs(t, store.Fail(completed.ID, "late"), ErrAlreadyTerminal)
	assert.ErrorIs(t, store.Complete(failed.ID, &types.CrewResult{}), ErrAlreadyTerminal)

	got, err := store.Get(completed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Empty(t, got.Error)

	got, err = store.Get(failed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Nil(t, got.Result)
}

func TestStore_FinishUnknown(t *testing.T) {
	store := NewStore()
	assert.ErrorIs(t, store.Complete("nope", nil), ErrNotFound)
	assert.ErrorIs(t, store.Fail("nope", "x"), ErrNotFound)
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	store := NewStore()
	rec := store.Create()

	snapshot, err := store.Get(rec.ID)
	require.NoError(t, err)
	snapshot.Status = StatusFailed

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
}

func TestStore_List(t *testing.T) {
	store := NewStore()
	a := store.Create()
	b := store.Create()
	require.NoError(t, store.Fail(b.ID, "x"))

	assert.Equal(t, map[string]Status{a.ID: StatusRunning, b.ID: StatusFailed}, store.List())
}

func TestStore_Concurrent(t *testing.T) {
	store := NewStore()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := store.Create()
			ids <- rec.ID
			_, _ = store.Get(rec.ID)
			_ = store.List()
			if i%2 == 0 {
				_ = store.Complete(rec.ID, &types.CrewResult{})
			} else {
				_ = store.Fail(rec.ID, fmt.Sprintf("run %d", i))
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	statuses := store.List()
	assert.Len(t, statuses, n)
	for id := range ids {
		assert.True(t, statuses[id].IsTerminal(), id)
	}
}
