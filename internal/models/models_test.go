package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDIsOrderIndependent(t *testing.T) {
	assert.Equal(t, ConversationID("alice", "bob"), ConversationID("bob", "alice"))
	assert.Equal(t, "alice-bob", ConversationID("bob", "alice"))
	assert.NotEqual(t, ConversationID("alice", "bob"), ConversationID("alice", "carol"))
}

func TestNewMessageIDSortsByTime(t *testing.T) {
	t0 := time.Now()
	id1 := NewMessageID(t0)
	id2 := NewMessageID(t0.Add(5 * time.Millisecond))

	assert.Less(t, id1, id2)
	assert.NotEqual(t, NewMessageID(t0), NewMessageID(t0), "same-instant ids must not collide")
}

func TestConversationOther(t *testing.T) {
	conv := &Conversation{Participants: []string{"alice", "bob"}}
	assert.Equal(t, "bob", conv.Other("alice"))
	assert.Equal(t, "alice", conv.Other("bob"))
}

func TestLastSeenLabel(t *testing.T) {
	now := time.Now()

	cases := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{25 * time.Hour, "yesterday"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LastSeenLabel(now.Add(-tc.age), now))
	}
}
