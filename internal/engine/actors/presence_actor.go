package actors

import (
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
)

// Message types for PresenceActor
type (
	AttachMsg struct {
		ConnID   string
		Username string
	}

	DetachMsg struct {
		ConnID string
	}

	IsOnlineMsg struct {
		Username string
	}

	// ConnectionForMsg resolves a username to one live connection id, or ""
	// when offline. A user with multiple presence entries gets the first one
	// found; which one is deliberately unspecified.
	ConnectionForMsg struct {
		Username string
	}

	LastSeenMsg struct {
		Username string
	}

	PresenceSnapshotMsg struct{}

	FlushLastSeenMsg struct{}
)

type (
	DetachResult struct {
		Username string
		Existed  bool
		LastSeen time.Time
	}

	// PresenceSnapshot is a point-in-time copy for user-list assembly.
	PresenceSnapshot struct {
		Online   map[string]bool
		LastSeen map[string]time.Time
	}
)

type presenceEntry struct {
	Username string
	Status   string
}

// PresenceActor owns the ephemeral connection-id -> identity map and the
// durable last-seen collection. A second authentication for an already-online
// user registers a second entry without evicting the first.
type PresenceActor struct {
	entries  map[string]*presenceEntry
	lastSeen map[string]time.Time
	store    *storage.FileStore
	metrics  *utils.MetricsCollector
	logger   *slog.Logger
}

func NewPresenceActor(store *storage.FileStore, metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	return &PresenceActor{
		entries:  make(map[string]*presenceEntry),
		lastSeen: store.LoadLastSeen(),
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

func (a *PresenceActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *AttachMsg:
		a.entries[msg.ConnID] = &presenceEntry{Username: msg.Username, Status: "online"}
		a.touch(msg.Username)
		a.logger.Info("user authenticated", "username", msg.Username, "conn", msg.ConnID)
		context.Respond(true)

	case *DetachMsg:
		entry, existed := a.entries[msg.ConnID]
		delete(a.entries, msg.ConnID)
		if !existed {
			context.Respond(&DetachResult{})
			return
		}
		a.touch(entry.Username)
		a.logger.Info("user disconnected", "username", entry.Username, "conn", msg.ConnID)
		context.Respond(&DetachResult{
			Username: entry.Username,
			Existed:  true,
			LastSeen: a.lastSeen[entry.Username],
		})

	case *IsOnlineMsg:
		context.Respond(a.connectionFor(msg.Username) != "")

	case *ConnectionForMsg:
		context.Respond(a.connectionFor(msg.Username))

	case *LastSeenMsg:
		context.Respond(a.lastSeen[msg.Username])

	case *PresenceSnapshotMsg:
		context.Respond(a.snapshot())

	case *FlushLastSeenMsg:
		context.Respond(a.store.SaveLastSeen(a.lastSeen) == nil)
	}
}

func (a *PresenceActor) connectionFor(username string) string {
	for connID, entry := range a.entries {
		if entry.Username == username {
			return connID
		}
	}
	return ""
}

func (a *PresenceActor) snapshot() *PresenceSnapshot {
	snap := &PresenceSnapshot{
		Online:   make(map[string]bool, len(a.entries)),
		LastSeen: make(map[string]time.Time, len(a.lastSeen)),
	}
	for _, entry := range a.entries {
		snap.Online[entry.Username] = true
	}
	for username, ts := range a.lastSeen {
		snap.LastSeen[username] = ts
	}
	return snap
}

// touch updates the durable last-seen timestamp for a username.
func (a *PresenceActor) touch(username string) {
	a.lastSeen[username] = time.Now()
	if err := a.store.SaveLastSeen(a.lastSeen); err != nil {
		a.metrics.IncrementErrors()
	}
}
