package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var _ txRepo = (*Store)(nil)

var ErrNotFound = errors.New("chat: not found")

// queryer abstracts over *pgxpool.Pool and pgx.Tx, the same seam
// internal/identity uses to compose multi-statement transactions.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error fn returns, the same shape internal/identity's Store
// uses to compose multi-statement writes atomically.
func (s *Store) WithTx(ctx context.Context, fn func(q queryer) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindOpenChat returns the chat in {pending_greeting, active} between the
// unordered pair (a, b), if any, enforcing the "exactly one chat per
// unordered pair while state in {pending_greeting, active}" invariant.
func (s *Store) FindOpenChat(ctx context.Context, a, b int64) (*Chat, error) {
	var c Chat
	err := s.DB.QueryRow(ctx, `
		SELECT chat_id, initiator_id, responder_id, state, created_at, last_message_at
		FROM chats
		WHERE LEAST(initiator_id, responder_id) = LEAST($1, $2)
		  AND GREATEST(initiator_id, responder_id) = GREATEST($1, $2)
		  AND state IN ('pending_greeting', 'active')
	`, a, b).Scan(&c.ChatID, &c.InitiatorID, &c.ResponderID, &c.State, &c.CreatedAt, &c.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateChat(ctx context.Context, q queryer, initiator, responder int64, now time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := q.Exec(ctx, `
		INSERT INTO chats (chat_id, initiator_id, responder_id, state, created_at)
		VALUES ($1, $2, $3, 'pending_greeting', $4)
	`, id, initiator, responder, now)
	return id, err
}

func (s *Store) GetChat(ctx context.Context, chatID uuid.UUID) (*Chat, error) {
	var c Chat
	err := s.DB.QueryRow(ctx, `
		SELECT chat_id, initiator_id, responder_id, state, created_at, last_message_at
		FROM chats WHERE chat_id = $1
	`, chatID).Scan(&c.ChatID, &c.InitiatorID, &c.ResponderID, &c.State, &c.CreatedAt, &c.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TransitionState moves a chat from fromState to toState iff it is still
// in fromState, returning whether the transition actually happened. This
// is the serialisation point ensuring two concurrent respond_greeting
// calls serialise such that exactly one transitions the state; the
// loser sees StateInvalid — the conditional
// UPDATE's row lock makes exactly one caller's RowsAffected() > 0.
func (s *Store) TransitionState(ctx context.Context, chatID uuid.UUID, fromState, toState State) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE chats SET state = $3 WHERE chat_id = $1 AND state = $2
	`, chatID, fromState, toState)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) TouchLastMessage(ctx context.Context, q queryer, chatID uuid.UUID, now time.Time) error {
	_, err := q.Exec(ctx, `UPDATE chats SET last_message_at = $2 WHERE chat_id = $1`, chatID, now)
	return err
}

func (s *Store) AppendMessage(ctx context.Context, q queryer, chatID uuid.UUID, senderID int64, body string, isGreeting bool, now time.Time) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO chat_messages (chat_id, sender_id, body, is_greeting, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING message_id
	`, chatID, senderID, body, isGreeting, now).Scan(&id)
	return id, err
}

func (s *Store) ListPending(ctx context.Context, responder int64) ([]Chat, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT chat_id, initiator_id, responder_id, state, created_at, last_message_at
		FROM chats WHERE responder_id = $1 AND state = 'pending_greeting'
		ORDER BY created_at DESC
	`, responder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ChatID, &c.InitiatorID, &c.ResponderID, &c.State, &c.CreatedAt, &c.LastMessageAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListChats(ctx context.Context, user int64) ([]Chat, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT chat_id, initiator_id, responder_id, state, created_at, last_message_at
		FROM chats WHERE initiator_id = $1 OR responder_id = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ChatID, &c.InitiatorID, &c.ResponderID, &c.State, &c.CreatedAt, &c.LastMessageAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) LastMessage(ctx context.Context, chatID uuid.UUID) (*Message, error) {
	var m Message
	err := s.DB.QueryRow(ctx, `
		SELECT message_id, chat_id, sender_id, body, is_greeting, created_at, read_at
		FROM chat_messages WHERE chat_id = $1 ORDER BY created_at DESC, message_id DESC LIMIT 1
	`, chatID).Scan(&m.MessageID, &m.ChatID, &m.SenderID, &m.Body, &m.IsGreeting, &m.CreatedAt, &m.ReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) UnreadCount(ctx context.Context, chatID uuid.UUID, user int64) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
		SELECT count(*) FROM chat_messages WHERE chat_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`, chatID, user).Scan(&n)
	return n, err
}

// GetMessages returns messages after cursor in ascending order (oldest to
// newest) up to limit, the pagination contract get_messages needs.
func (s *Store) GetMessages(ctx context.Context, chatID uuid.UUID, afterMs int64, afterID int64, limit int) ([]Message, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT message_id, chat_id, sender_id, body, is_greeting, created_at, read_at
		FROM chat_messages
		WHERE chat_id = $1
		  AND (EXTRACT(EPOCH FROM created_at) * 1000 > $2
		       OR (EXTRACT(EPOCH FROM created_at) * 1000 = $2 AND message_id > $3))
		ORDER BY created_at ASC, message_id ASC
		LIMIT $4
	`, chatID, afterMs, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.MessageID, &m.ChatID, &m.SenderID, &m.Body, &m.IsGreeting, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead sets read_at=now on every message in chatID not authored by
// reader that is still unread, the get_messages side effect.
func (s *Store) MarkRead(ctx context.Context, chatID uuid.UUID, reader int64, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE chat_messages SET read_at = $3
		WHERE chat_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`, chatID, reader, now)
	return err
}
