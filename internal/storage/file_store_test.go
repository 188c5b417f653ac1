package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marsh-chat/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "data"), filepath.Join(dir, "public"), slog.Default())
	require.NoError(t, err)
	return store
}

func TestUsersRoundTrip(t *testing.T) {
	store := newTestStore(t)

	assert.Empty(t, store.LoadUsers(), "missing file degrades to empty")

	users := []*models.User{
		{Username: "alice", PasswordHash: "$2a$10$x", DisplayName: "Alice", CreatedAt: time.Now().UTC()},
	}
	require.NoError(t, store.SaveUsers(users))

	loaded := store.LoadUsers()
	require.Len(t, loaded, 1)
	assert.Equal(t, "alice", loaded[0].Username)
	assert.Equal(t, "$2a$10$x", loaded[0].PasswordHash)
}

func TestConversationsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	conversations := map[string]*models.Conversation{
		"alice-bob": {
			Participants: []string{"alice", "bob"},
			Messages: []*models.Message{
				{
					ID:        models.NewMessageID(now),
					Sender:    "alice",
					Text:      "hi",
					Timestamp: now,
					Type:      models.MessageTypeText,
					ReadBy:    []string{},
				},
			},
			LastActivity: now,
		},
	}
	require.NoError(t, store.SaveConversations(conversations))

	loaded := store.LoadConversations()
	require.Contains(t, loaded, "alice-bob")
	require.Len(t, loaded["alice-bob"].Messages, 1)
	assert.Equal(t, "hi", loaded["alice-bob"].Messages[0].Text)
	assert.NotNil(t, loaded["alice-bob"].Messages[0].ReadBy)
}

func TestLastSeenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveLastSeen(map[string]time.Time{"bob": now}))
	assert.Equal(t, now, store.LoadLastSeen()["bob"])
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store, err := NewFileStore(dataDir, filepath.Join(dir, "public"), slog.Default())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "users.json"), []byte("{not json"), 0o644))
	assert.Empty(t, store.LoadUsers())
}

func TestRemoveMediaBlob(t *testing.T) {
	store := newTestStore(t)

	blob := filepath.Join(store.UploadDir(), "123-1.png")
	require.NoError(t, os.WriteFile(blob, []byte("png"), 0o644))

	store.RemoveMediaBlob(&models.Media{Path: "/uploads/123-1.png", OriginalName: "cat.png"})
	_, err := os.Stat(blob)
	assert.True(t, os.IsNotExist(err))

	// Missing blob and nil media must both be silent no-ops.
	store.RemoveMediaBlob(&models.Media{Path: "/uploads/gone.png"})
	store.RemoveMediaBlob(nil)
}
