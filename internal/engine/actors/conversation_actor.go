package actors

import (
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/samber/lo"

	"marsh-chat/internal/models"
	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
)

// Message types for ConversationActor
type (
	GetConversationMsg struct {
		UserA string
		UserB string
	}

	// AppendMessageMsg appends a new message to the pair's conversation.
	// AutoReadBy carries the recipient's username when they have a live
	// connection, so auto-read-on-delivery happens inside the same handler
	// invocation as the append and no other mutation can interleave.
	AppendMessageMsg struct {
		Sender     string
		Recipient  string
		Text       string
		Media      *models.Media
		Type       string
		AutoReadBy string
	}

	MarkReadMsg struct {
		ConversationID string
		Reader         string
	}

	LoadHistoryMsg struct {
		Self  string
		Other string
	}

	SweepExpiredMsg struct {
		Now time.Time
	}

	GetConversationCountMsg struct{}

	FlushConversationsMsg struct{}
)

// Response types
type (
	AppendResult struct {
		ConversationID string
		Message        *models.Message
	}

	MarkReadResult struct {
		Changed bool
		Other   string // the participant to notify, not the reader
	}

	HistoryResult struct {
		ConversationID string
		Messages       []*models.Message
		Other          string
		ReadChanged    bool
	}

	SweepResult struct {
		Removed int
	}
)

// ConversationActor owns the per-pair message logs and the full message
// lifecycle: append, read-receipt bookkeeping, and the expiry sweep. The
// conversation map is rewritten to disk wholesale after every mutation.
type ConversationActor struct {
	conversations map[string]*models.Conversation
	store         *storage.FileStore
	ttl           time.Duration
	metrics       *utils.MetricsCollector
	logger        *slog.Logger
}

func NewConversationActor(store *storage.FileStore, ttl time.Duration, metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	conversations := store.LoadConversations()
	logger.Info("loaded conversations", "count", len(conversations))
	return &ConversationActor{
		conversations: conversations,
		store:         store,
		ttl:           ttl,
		metrics:       metrics,
		logger:        logger,
	}
}

func (a *ConversationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *GetConversationMsg:
		_, conv := a.getOrCreate(msg.UserA, msg.UserB)
		context.Respond(cloneConversation(conv))
	case *AppendMessageMsg:
		a.handleAppend(context, msg)
	case *MarkReadMsg:
		context.Respond(a.markRead(msg.ConversationID, msg.Reader))
	case *LoadHistoryMsg:
		a.handleLoadHistory(context, msg)
	case *SweepExpiredMsg:
		a.handleSweep(context, msg)
	case *GetConversationCountMsg:
		context.Respond(len(a.conversations))
	case *FlushConversationsMsg:
		context.Respond(a.store.SaveConversations(a.conversations) == nil)
	}
}

func (a *ConversationActor) handleAppend(context actor.Context, msg *AppendMessageMsg) {
	startTime := time.Now()

	if msg.Text == "" && msg.Media == nil {
		context.Respond(utils.NewValidationError("message needs text or media"))
		return
	}

	msgType := msg.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	now := time.Now()
	message := &models.Message{
		ID:        models.NewMessageID(now),
		Sender:    msg.Sender,
		Text:      msg.Text,
		Media:     msg.Media,
		Timestamp: now,
		Type:      msgType,
		ReadBy:    []string{},
	}
	// Auto-read-on-delivery for live recipients. The sender is never a
	// member of its own message's readBy set.
	if msg.AutoReadBy != "" && msg.AutoReadBy != msg.Sender {
		message.ReadBy = append(message.ReadBy, msg.AutoReadBy)
	}

	convID, conv := a.getOrCreate(msg.Sender, msg.Recipient)
	conv.Messages = append(conv.Messages, message)
	conv.LastActivity = message.Timestamp
	a.persist()

	a.logger.Info("message sent", "from", msg.Sender, "to", msg.Recipient, "type", msgType)
	a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	context.Respond(&AppendResult{ConversationID: convID, Message: cloneMessage(message)})
}

// cloneMessage copies a message so responses never share state with the
// actor's live conversation map. Callers marshal responses on other
// goroutines while this actor keeps mutating readBy sets.
func cloneMessage(m *models.Message) *models.Message {
	clone := *m
	clone.ReadBy = append([]string{}, m.ReadBy...)
	return &clone
}

func cloneConversation(conv *models.Conversation) *models.Conversation {
	clone := *conv
	clone.Messages = make([]*models.Message, len(conv.Messages))
	for i, m := range conv.Messages {
		clone.Messages[i] = cloneMessage(m)
	}
	return &clone
}

func (a *ConversationActor) handleLoadHistory(context actor.Context, msg *LoadHistoryMsg) {
	convID, conv := a.getOrCreate(msg.Self, msg.Other)

	// Snapshot before the read-marking side effect so the loader sees the
	// history as it stood when they asked for it.
	snapshot := make([]*models.Message, len(conv.Messages))
	for i, m := range conv.Messages {
		snapshot[i] = cloneMessage(m)
	}

	result := a.markRead(convID, msg.Self)
	context.Respond(&HistoryResult{
		ConversationID: convID,
		Messages:       snapshot,
		Other:          msg.Other,
		ReadChanged:    result.Changed,
	})
}

// markRead adds reader to the readBy set of every message the reader did not
// send. Idempotent: when nothing changes there is no write and no
// notification target.
func (a *ConversationActor) markRead(convID, reader string) *MarkReadResult {
	conv, exists := a.conversations[convID]
	if !exists {
		return &MarkReadResult{}
	}

	changed := false
	for _, message := range conv.Messages {
		if message.Sender != reader && !lo.Contains(message.ReadBy, reader) {
			message.ReadBy = append(message.ReadBy, reader)
			changed = true
		}
	}

	if !changed {
		return &MarkReadResult{Other: conv.Other(reader)}
	}

	a.persist()
	return &MarkReadResult{Changed: true, Other: conv.Other(reader)}
}

func (a *ConversationActor) handleSweep(context actor.Context, msg *SweepExpiredMsg) {
	startTime := time.Now()
	totalRemoved := 0

	for _, conv := range a.conversations {
		surviving := conv.Messages[:0:0]
		for _, message := range conv.Messages {
			if msg.Now.Sub(message.Timestamp) >= a.ttl {
				a.store.RemoveMediaBlob(message.Media)
				totalRemoved++
				continue
			}
			surviving = append(surviving, message)
		}
		if len(surviving) == len(conv.Messages) {
			continue
		}
		conv.Messages = surviving
		// When the sweep empties a conversation, lastActivity keeps its
		// previous value.
		if len(surviving) > 0 {
			conv.LastActivity = surviving[len(surviving)-1].Timestamp
		}
	}

	if totalRemoved > 0 {
		a.persist()
		a.logger.Info("removed expired messages", "count", totalRemoved)
	}

	a.metrics.AddOperationLatency("sweep_expired", time.Since(startTime))
	context.Respond(&SweepResult{Removed: totalRemoved})
}

// getOrCreate resolves the sorted-pair id and lazily creates an empty
// conversation. Creation alone is not persisted; the first mutation is.
func (a *ConversationActor) getOrCreate(userA, userB string) (string, *models.Conversation) {
	convID := models.ConversationID(userA, userB)
	conv, exists := a.conversations[convID]
	if !exists {
		conv = &models.Conversation{
			Participants: []string{userA, userB},
			Messages:     []*models.Message{},
			LastActivity: time.Now(),
		}
		a.conversations[convID] = conv
	}
	return convID, conv
}

func (a *ConversationActor) persist() {
	if err := a.store.SaveConversations(a.conversations); err != nil {
		a.metrics.IncrementErrors()
	}
}
