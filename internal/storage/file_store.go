// Package storage is the persistence adapter: three independently persisted
// JSON collections (users, conversations, last-seen), each rewritten
// wholesale on mutation, plus best-effort media blob removal.
package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"marsh-chat/internal/models"
)

const (
	usersFile         = "users.json"
	conversationsFile = "conversations.json"
	lastSeenFile      = "last_seen.json"
)

// FileStore owns the durable files under dataDir and the blob tree under
// publicDir. Callers serialize access (one actor per collection); the store
// itself holds no locks.
type FileStore struct {
	dataDir   string
	publicDir string
	logger    *slog.Logger
}

func NewFileStore(dataDir, publicDir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(publicDir, "uploads"), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dataDir: dataDir, publicDir: publicDir, logger: logger}, nil
}

// UploadDir returns the directory uploaded blobs are written to.
func (s *FileStore) UploadDir() string {
	return filepath.Join(s.publicDir, "uploads")
}

// PublicDir returns the static file root.
func (s *FileStore) PublicDir() string {
	return s.publicDir
}

// DataDir returns the directory holding the durable collections.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// LoadUsers reads the users collection. A missing file yields the empty
// collection; a corrupt or unreadable file is logged and degrades to empty
// rather than failing startup.
func (s *FileStore) LoadUsers() []*models.User {
	users := []*models.User{}
	s.load(usersFile, &users)
	return users
}

func (s *FileStore) SaveUsers(users []*models.User) error {
	return s.save(usersFile, users)
}

// LoadConversations reads the conversations collection keyed by sorted-pair id.
func (s *FileStore) LoadConversations() map[string]*models.Conversation {
	conversations := map[string]*models.Conversation{}
	s.load(conversationsFile, &conversations)
	return conversations
}

func (s *FileStore) SaveConversations(conversations map[string]*models.Conversation) error {
	return s.save(conversationsFile, conversations)
}

// LoadLastSeen reads the username -> timestamp map.
func (s *FileStore) LoadLastSeen() map[string]time.Time {
	lastSeen := map[string]time.Time{}
	s.load(lastSeenFile, &lastSeen)
	return lastSeen
}

func (s *FileStore) SaveLastSeen(lastSeen map[string]time.Time) error {
	return s.save(lastSeenFile, lastSeen)
}

// RemoveMediaBlob deletes the blob a message referenced. Best-effort: a
// failure is logged and swallowed so it never blocks removal of the message
// record. Leaked files are the accepted tradeoff over orphaned references.
func (s *FileStore) RemoveMediaBlob(media *models.Media) {
	if media == nil || media.Path == "" {
		return
	}
	path := filepath.Join(s.publicDir, filepath.FromSlash(media.Path))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete media blob", "path", path, "error", err)
	}
}

func (s *FileStore) load(name string, out any) {
	path := filepath.Join(s.dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read collection, starting empty", "file", name, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Error("failed to parse collection, starting empty", "file", name, "error", err)
	}
}

func (s *FileStore) save(name string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode collection", "file", name, "error", err)
		return err
	}
	path := filepath.Join(s.dataDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("failed to write collection", "file", name, "error", err)
		return err
	}
	return nil
}
