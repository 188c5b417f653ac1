package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeMedia = "media"
)

// User is a registered account. PasswordHash is persisted to the users file
// but never serialized into API responses.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Media is a reference to an uploaded blob. Path is relative to the public
// root (e.g. "/uploads/1712345678901-42.png").
type Media struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
}

// Message is a single entry in a conversation. ReadBy holds the usernames
// that have seen the message and never contains the sender.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Media     *Media    `json:"media,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	ReadBy    []string  `json:"readBy"`
}

// Conversation is the canonical message log for one unordered pair of users.
// Messages are kept in insertion order, which is chronological order.
type Conversation struct {
	Participants []string   `json:"participants"`
	Messages     []*Message `json:"messages"`
	LastActivity time.Time  `json:"lastActivity"`
}

// Other returns the participant that is not the given username.
func (c *Conversation) Other(username string) string {
	for _, p := range c.Participants {
		if p != username {
			return p
		}
	}
	return ""
}

// UserSummary is the user-list payload shape shared by the HTTP user list
// and the realtime user_list event.
type UserSummary struct {
	Username     string     `json:"username"`
	DisplayName  string     `json:"displayName"`
	Online       bool       `json:"online"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	LastSeenText string     `json:"lastSeenText,omitempty"`
}

// ConversationID derives the deterministic key for an unordered username
// pair: both orders of the same pair resolve to the same id.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "-")
}

// NewMessageID returns a message id that sorts by creation time and stays
// unique across rapid sends: a zero-padded unix-millisecond prefix plus a
// short random suffix.
func NewMessageID(now time.Time) string {
	return fmt.Sprintf("%013d-%s", now.UnixMilli(), shortuuid.New()[:10])
}

// LastSeenLabel buckets a last-seen timestamp into the display string used
// for offline users.
func LastSeenLabel(lastSeen, now time.Time) string {
	diff := now.Sub(lastSeen)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}
