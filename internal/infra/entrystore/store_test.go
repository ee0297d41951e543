package entrystore

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data", "entries.yaml"))
}

func entry(screenID string) Entry {
	return Entry{
		Title:  "Living Room",
		Driver: "simulator",
		Auth: map[string]any{
			"screen_id":       screenID,
			"lounge_id_token": "token-" + screenID,
		},
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newStore(t)
	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_AddAndLoad(t *testing.T) {
	s := newStore(t)

	added, err := s.Add(entry("screen-1"))
	require.NoError(t, err)
	_, err = uuid.Parse(added.ID)
	require.NoError(t, err, "id should be a uuid")

	_, err = s.Add(entry("screen-2"))
	require.NoError(t, err)

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, added.ID, entries[0].ID)
	assert.Equal(t, "screen-1", entries[0].ScreenID())
	assert.Equal(t, "token-screen-1", entries[0].Auth["lounge_id_token"])

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_AddDuplicateScreen(t *testing.T) {
	s := newStore(t)
	_, err := s.Add(entry("screen-1"))
	require.NoError(t, err)

	_, err = s.Add(entry("screen-1"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStore_FindGetUpdateRemove(t *testing.T) {
	s := newStore(t)
	added, err := s.Add(entry("screen-1"))
	require.NoError(t, err)

	found, err := s.FindByScreenID("screen-1")
	require.NoError(t, err)
	assert.Equal(t, added.ID, found.ID)

	_, err = s.FindByScreenID("other")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByScreenID("")
	assert.ErrorIs(t, err, ErrNotFound)

	found.GoogleAPIKey = "key"
	require.NoError(t, s.Update(*found))
	got, err := s.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, "key", got.GoogleAPIKey)

	assert.ErrorIs(t, s.Update(Entry{ID: uuid.NewString()}), ErrNotFound)

	require.NoError(t, s.Remove(added.ID))
	_, err = s.Get(added.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Remove(added.ID), ErrNotFound)
}

func TestStore_LoadRejectsInvalidID(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("entries:\n  - id: nope\n    title: x\n"), 0o600))

	_, err := s.Load()
	assert.Error(t, err)
}

func TestStore_Watch(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 50*time.Millisecond, func() { changes.Add(1) })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	_, err := s.Add(entry("screen-1"))
	require.NoError(t, err)
	_, err = s.Add(entry("screen-2"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
