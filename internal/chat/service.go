package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/syncx"
)

// repo is the persistence seam Service needs, narrowed from *Store so unit
// tests can supply a fake instead of a database.
type repo interface {
	FindOpenChat(ctx context.Context, a, b int64) (*Chat, error)
	CreateChat(ctx context.Context, q queryer, initiator, responder int64, now time.Time) (uuid.UUID, error)
	GetChat(ctx context.Context, chatID uuid.UUID) (*Chat, error)
	TransitionState(ctx context.Context, chatID uuid.UUID, fromState, toState State) (bool, error)
	TouchLastMessage(ctx context.Context, q queryer, chatID uuid.UUID, now time.Time) error
	AppendMessage(ctx context.Context, q queryer, chatID uuid.UUID, senderID int64, body string, isGreeting bool, now time.Time) (int64, error)
	ListPending(ctx context.Context, responder int64) ([]Chat, error)
	ListChats(ctx context.Context, user int64) ([]Chat, error)
	LastMessage(ctx context.Context, chatID uuid.UUID) (*Message, error)
	UnreadCount(ctx context.Context, chatID uuid.UUID, user int64) (int, error)
	GetMessages(ctx context.Context, chatID uuid.UUID, afterMs, afterID int64, limit int) ([]Message, error)
	MarkRead(ctx context.Context, chatID uuid.UUID, reader int64, now time.Time) error
}

// txRepo additionally exposes WithTx; the real *Store composes CreateChat
// and the first AppendMessage atomically, while fakes in tests can just
// invoke fn directly since they don't need real transactional isolation.
type txRepo interface {
	repo
	WithTx(ctx context.Context, fn func(q queryer) error) error
}

// LikeChecker reports whether sender has swiped target with direction=like,
// the precondition send_greeting places on the swipe store.
type LikeChecker interface {
	HasLiked(ctx context.Context, sender, target int64) (bool, error)
}

// BlockChecker reports whether blocker has blocked blocked, consulted by
// send_greeting's "sender is not blocked by recipient" precondition.
type BlockChecker interface {
	IsBlocked(ctx context.Context, blocker, blocked int64) (bool, error)
}

type Service struct {
	Store  txRepo
	Clock  clock.Clock
	Likes  LikeChecker
	Blocks BlockChecker
}

func NewService(store txRepo, c clock.Clock, likes LikeChecker, blocks BlockChecker) *Service {
	return &Service{Store: store, Clock: c, Likes: likes, Blocks: blocks}
}

func (s *Service) SendGreeting(ctx context.Context, sender, recipient int64, body string) (Chat, error) {
	if sender == recipient {
		return Chat{}, apperr.New(apperr.InvalidArgument, "cannot greet yourself")
	}

	if s.Blocks != nil {
		blocked, err := s.Blocks.IsBlocked(ctx, recipient, sender)
		if err != nil {
			return Chat{}, err
		}
		if blocked {
			return Chat{}, apperr.New(apperr.Forbidden, "recipient has blocked sender")
		}
	}

	existing, err := s.Store.FindOpenChat(ctx, sender, recipient)
	if err != nil {
		return Chat{}, err
	}
	if existing != nil {
		return Chat{}, apperr.Duplicate("a chat between these users is already open")
	}

	if s.Likes != nil {
		liked, err := s.Likes.HasLiked(ctx, sender, recipient)
		if err != nil {
			return Chat{}, err
		}
		if !liked {
			return Chat{}, apperr.New(apperr.Forbidden, "sender must have liked recipient before greeting")
		}
	}

	now := s.Clock.Now()

	var chatID uuid.UUID
	err = s.Store.WithTx(ctx, func(q queryer) error {
		id, err := s.Store.CreateChat(ctx, q, sender, recipient, now)
		if err != nil {
			return err
		}
		chatID = id
		if _, err := s.Store.AppendMessage(ctx, q, chatID, sender, body, true, now); err != nil {
			return err
		}
		return s.Store.TouchLastMessage(ctx, q, chatID, now)
	})
	if err != nil {
		return Chat{}, err
	}

	return Chat{
		ChatID:        chatID,
		InitiatorID:   sender,
		ResponderID:   recipient,
		State:         StatePendingGreeting,
		CreatedAt:     now,
		LastMessageAt: &now,
	}, nil
}

// RespondGreeting transitions a chat out of pending_greeting. The
// conditional UPDATE in Store.TransitionState is what makes exactly one of
// two concurrent callers win; the loser gets StateInvalid.
func (s *Service) RespondGreeting(ctx context.Context, responder int64, chatID uuid.UUID, accept bool) (Chat, error) {
	chat, err := s.Store.GetChat(ctx, chatID)
	if err != nil {
		return Chat{}, err
	}
	if chat.ResponderID != responder {
		return Chat{}, apperr.New(apperr.Forbidden, "only the chat's responder may respond to its greeting")
	}
	if chat.State != StatePendingGreeting {
		return Chat{}, apperr.StateInvalid("chat is not awaiting a greeting response")
	}

	target := StateRejected
	if accept {
		target = StateActive
	}

	ok, err := s.Store.TransitionState(ctx, chatID, StatePendingGreeting, target)
	if err != nil {
		return Chat{}, err
	}
	if !ok {
		return Chat{}, apperr.StateInvalid("chat greeting was already answered")
	}

	chat.State = target
	return *chat, nil
}

func (s *Service) SendMessage(ctx context.Context, sender int64, chatID uuid.UUID, body string) (Message, error) {
	chat, err := s.Store.GetChat(ctx, chatID)
	if err != nil {
		return Message{}, err
	}
	if chat.InitiatorID != sender && chat.ResponderID != sender {
		return Message{}, apperr.New(apperr.Forbidden, "sender is not a party to this chat")
	}
	if chat.State != StateActive {
		return Message{}, apperr.StateInvalid("chat is not active")
	}

	now := s.Clock.Now()

	var id int64
	err = s.Store.WithTx(ctx, func(q queryer) error {
		mid, err := s.Store.AppendMessage(ctx, q, chatID, sender, body, false, now)
		if err != nil {
			return err
		}
		id = mid
		return s.Store.TouchLastMessage(ctx, q, chatID, now)
	})
	if err != nil {
		return Message{}, err
	}

	return Message{MessageID: id, ChatID: chatID, SenderID: sender, Body: body, IsGreeting: false, CreatedAt: now}, nil
}

func (s *Service) ListPending(ctx context.Context, user int64) ([]Chat, error) {
	return s.Store.ListPending(ctx, user)
}

func (s *Service) ListChats(ctx context.Context, user int64) ([]ChatSummary, error) {
	chats, err := s.Store.ListChats(ctx, user)
	if err != nil {
		return nil, err
	}

	out := make([]ChatSummary, 0, len(chats))
	for _, c := range chats {
		last, err := s.Store.LastMessage(ctx, c.ChatID)
		if err != nil {
			return nil, err
		}
		unread, err := s.Store.UnreadCount(ctx, c.ChatID, user)
		if err != nil {
			return nil, err
		}
		out = append(out, ChatSummary{Chat: c, LastMessage: last, UnreadCount: unread})
	}
	return out, nil
}

// GetMessages returns the page of messages after cursor and marks every
// message not authored by user as read, get_messages' side effect.
func (s *Service) GetMessages(ctx context.Context, user int64, chatID uuid.UUID, cursor string, limit int) ([]Message, string, error) {
	chat, err := s.Store.GetChat(ctx, chatID)
	if err != nil {
		return nil, "", err
	}
	if chat.InitiatorID != user && chat.ResponderID != user {
		return nil, "", apperr.New(apperr.Forbidden, "user is not a party to this chat")
	}

	var afterMs, afterID int64
	if c, ok := syncx.DecodeCursor(cursor); ok {
		afterMs, afterID = c.Ms, c.MessageID
	}

	msgs, err := s.Store.GetMessages(ctx, chatID, afterMs, afterID, limit)
	if err != nil {
		return nil, "", err
	}

	if err := s.Store.MarkRead(ctx, chatID, user, s.Clock.Now()); err != nil {
		return nil, "", err
	}

	var next string
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		next = syncx.EncodeCursor(syncx.Cursor{Ms: last.CreatedAt.UnixMilli(), MessageID: last.MessageID})
	}

	return msgs, next, nil
}
