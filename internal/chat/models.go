// Package chat implements the two-phase messaging handshake: a greeting
// that must be accepted before either side can send free-form messages.
package chat

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StatePendingGreeting State = "pending_greeting"
	StateActive          State = "active"
	StateRejected        State = "rejected"
	StateClosed          State = "closed"
)

type Chat struct {
	ChatID        uuid.UUID
	InitiatorID   int64
	ResponderID   int64
	State         State
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

type Message struct {
	MessageID  int64
	ChatID     uuid.UUID
	SenderID   int64
	Body       string
	IsGreeting bool
	CreatedAt  time.Time
	ReadAt     *time.Time
}

// ChatSummary is the shape list_chats returns: a chat plus the last
// message preview and unread count.
type ChatSummary struct {
	Chat        Chat
	LastMessage *Message
	UnreadCount int
}
