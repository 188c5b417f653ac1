// Package gateway binds live connections to the conversation, identity and
// presence actors: it decodes client event frames, orchestrates the message
// flows, and emits server events back to one or more connections.
package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/samber/lo"

	"marsh-chat/internal/engine"
	"marsh-chat/internal/engine/actors"
	"marsh-chat/internal/models"
	"marsh-chat/internal/utils"
)

// Emitter delivers encoded frames to connections. The websocket hub
// implements it; tests substitute a recording double.
type Emitter interface {
	SendTo(connID string, payload []byte) bool
	BroadcastAll(payload []byte)
}

// Gateway owns the connection-id -> username session map and the event
// dispatch table. Events on one connection are handled in arrival order;
// each handler runs its actor round-trips to completion before the next
// frame from that connection is dispatched.
type Gateway struct {
	root    *actor.RootContext
	engine  *engine.Engine
	emitter Emitter
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]string
}

func New(root *actor.RootContext, eng *engine.Engine, emitter Emitter, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		root:     root,
		engine:   eng,
		emitter:  emitter,
		timeout:  timeout,
		logger:   logger,
		sessions: make(map[string]string),
	}
}

// Dispatch decodes one inbound frame and routes it. Events from connections
// without a session are silently ignored, except authenticate.
func (g *Gateway) Dispatch(connID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.logger.Warn("unparseable frame", "conn", connID, "error", err)
		return
	}

	if env.Event == EventAuthenticate {
		var username string
		if err := json.Unmarshal(env.Data, &username); err != nil {
			g.logger.Warn("bad authenticate payload", "conn", connID, "error", err)
			return
		}
		g.handleAuthenticate(connID, username)
		return
	}

	username := g.session(connID)
	if username == "" {
		return
	}

	switch env.Event {
	case EventRequestUserList:
		g.handleUserList(connID, username)

	case EventLoadConversation:
		var other string
		if err := json.Unmarshal(env.Data, &other); err != nil {
			return
		}
		g.handleLoadConversation(connID, username, other)

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		g.handleSendMessage(connID, username, &payload)

	case EventTyping:
		var payload TypingPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		g.handleTyping(username, &payload)

	case EventMarkAsRead:
		var payload MarkAsReadPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		g.handleMarkRead(username, &payload)

	default:
		g.logger.Warn("unknown event", "conn", connID, "event", env.Event)
	}
}

// Disconnect tears down the session for a closed connection and broadcasts
// the status change when a presence entry existed. A write already committed
// by an in-flight handler is not rolled back.
func (g *Gateway) Disconnect(connID string) {
	g.mu.Lock()
	delete(g.sessions, connID)
	g.mu.Unlock()

	result, err := g.request(g.engine.GetPresenceActor(), &actors.DetachMsg{ConnID: connID})
	if err != nil {
		return
	}
	detach, ok := result.(*actors.DetachResult)
	if !ok || !detach.Existed {
		return
	}

	lastSeen := detach.LastSeen
	g.emitter.BroadcastAll(Encode(EventUserStatusChanged, &UserStatusPayload{
		Username: detach.Username,
		Online:   false,
		LastSeen: &lastSeen,
	}))
}

func (g *Gateway) handleAuthenticate(connID, username string) {
	result, err := g.request(g.engine.GetIdentityActor(), &actors.FindUserMsg{Username: username})
	if err != nil {
		g.emitter.SendTo(connID, Encode(EventAuthFailed, nil))
		return
	}
	user, _ := result.(*models.User)
	if user == nil {
		g.emitter.SendTo(connID, Encode(EventAuthFailed, nil))
		return
	}

	if _, err := g.request(g.engine.GetPresenceActor(), &actors.AttachMsg{ConnID: connID, Username: user.Username}); err != nil {
		g.emitter.SendTo(connID, Encode(EventAuthFailed, nil))
		return
	}

	g.mu.Lock()
	g.sessions[connID] = user.Username
	g.mu.Unlock()

	g.emitter.BroadcastAll(Encode(EventUserStatusChanged, &UserStatusPayload{
		Username: user.Username,
		Online:   true,
	}))
}

func (g *Gateway) handleUserList(connID, self string) {
	usersResult, err := g.request(g.engine.GetIdentityActor(), &actors.ListUsersMsg{Exclude: self})
	if err != nil {
		return
	}
	users, _ := usersResult.([]*models.User)

	snapResult, err := g.request(g.engine.GetPresenceActor(), &actors.PresenceSnapshotMsg{})
	if err != nil {
		return
	}
	snap := snapResult.(*actors.PresenceSnapshot)

	summaries := lo.Map(users, func(u *models.User, _ int) models.UserSummary {
		return BuildUserSummary(u, snap, time.Now())
	})
	g.emitter.SendTo(connID, Encode(EventUserList, summaries))
}

func (g *Gateway) handleLoadConversation(connID, self, other string) {
	result, err := g.request(g.engine.GetConversationActor(), &actors.LoadHistoryMsg{Self: self, Other: other})
	if err != nil {
		return
	}
	history := result.(*actors.HistoryResult)

	g.emitter.SendTo(connID, Encode(EventConversationLoaded, &ConversationLoadedPayload{
		ConversationID: history.ConversationID,
		Messages:       history.Messages,
		OtherUser:      other,
	}))

	if !history.ReadChanged {
		return
	}
	if otherConn := g.connectionFor(other); otherConn != "" {
		g.emitter.SendTo(otherConn, Encode(EventMessagesRead, &MessagesReadPayload{
			ConversationID: history.ConversationID,
			Reader:         self,
		}))
	}
}

func (g *Gateway) handleSendMessage(connID, self string, payload *SendMessagePayload) {
	// Resolve the recipient's connection first: a live recipient gets the
	// message marked read within the same append.
	recipientConn := g.connectionFor(payload.Recipient)
	autoReadBy := ""
	if recipientConn != "" {
		autoReadBy = payload.Recipient
	}

	result, err := g.request(g.engine.GetConversationActor(), &actors.AppendMessageMsg{
		Sender:     self,
		Recipient:  payload.Recipient,
		Text:       payload.Text,
		Media:      payload.Media,
		Type:       payload.Type,
		AutoReadBy: autoReadBy,
	})
	if err != nil {
		return
	}
	if appErr, ok := result.(*utils.AppError); ok {
		// The protocol has no error event for a bad send; drop it.
		g.logger.Warn("rejected message", "from", self, "error", appErr.Message)
		return
	}
	appended := result.(*actors.AppendResult)

	// Sender's acknowledgment goes out before the recipient's delivery.
	g.emitter.SendTo(connID, Encode(EventMessageSent, &MessageSentPayload{
		ConversationID: appended.ConversationID,
		Message:        appended.Message,
	}))

	if recipientConn == "" {
		return
	}
	g.emitter.SendTo(recipientConn, Encode(EventNewMessage, &NewMessagePayload{
		ConversationID: appended.ConversationID,
		Message:        appended.Message,
		From:           self,
	}))
	g.emitter.SendTo(connID, Encode(EventMessagesRead, &MessagesReadPayload{
		ConversationID: appended.ConversationID,
		Reader:         payload.Recipient,
	}))
}

func (g *Gateway) handleTyping(self string, payload *TypingPayload) {
	// Pure signal relay; nothing is stored.
	recipientConn := g.connectionFor(payload.Recipient)
	if recipientConn == "" {
		return
	}
	g.emitter.SendTo(recipientConn, Encode(EventUserTyping, &UserTypingPayload{
		From:     self,
		IsTyping: payload.IsTyping,
	}))
}

func (g *Gateway) handleMarkRead(self string, payload *MarkAsReadPayload) {
	result, err := g.request(g.engine.GetConversationActor(), &actors.MarkReadMsg{
		ConversationID: payload.ConversationID,
		Reader:         self,
	})
	if err != nil {
		return
	}
	marked := result.(*actors.MarkReadResult)
	if !marked.Changed || marked.Other == "" {
		return
	}

	if otherConn := g.connectionFor(marked.Other); otherConn != "" {
		g.emitter.SendTo(otherConn, Encode(EventMessagesRead, &MessagesReadPayload{
			ConversationID: payload.ConversationID,
			Reader:         self,
		}))
	}
}

// BuildUserSummary derives the user-list entry for one user from a presence
// snapshot. Last-seen text is a presentation concern, so the bucketing
// happens here rather than in the presence actor.
func BuildUserSummary(u *models.User, snap *actors.PresenceSnapshot, now time.Time) models.UserSummary {
	summary := models.UserSummary{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Online:      snap.Online[u.Username],
	}
	if lastSeen, ok := snap.LastSeen[u.Username]; ok {
		ts := lastSeen
		summary.LastSeen = &ts
		if !summary.Online {
			summary.LastSeenText = models.LastSeenLabel(lastSeen, now)
		}
	}
	return summary
}

func (g *Gateway) session(connID string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessions[connID]
}

func (g *Gateway) connectionFor(username string) string {
	result, err := g.request(g.engine.GetPresenceActor(), &actors.ConnectionForMsg{Username: username})
	if err != nil {
		return ""
	}
	connID, _ := result.(string)
	return connID
}

func (g *Gateway) request(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := g.root.RequestFuture(pid, msg, g.timeout)
	result, err := future.Result()
	if err != nil {
		g.logger.Error("actor request failed", "error", err)
		return nil, utils.NewActorTimeoutError(pid.String())
	}
	return result, nil
}
