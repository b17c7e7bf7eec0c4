package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"healthscribe/pkg"
)

// Repository wraps database operations for sessions and their messages.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateSession inserts a fresh session with an empty conversation context.
func (r *Repository) CreateSession(ctx context.Context) (*pkg.Session, error) {
	sess := &pkg.Session{ID: uuid.NewString(), Context: pkg.NewConversationContext()}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO sessions (id, stage)
         VALUES ($1, $2)
         RETURNING created_at, updated_at`,
		sess.ID, string(sess.Context.Stage),
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetSession loads a session with its conversation context.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*pkg.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, pkg.ErrSessionNotFound
	}
	var (
		s     pkg.Session
		stage string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, stage, detected, history, created_at, updated_at
         FROM sessions
         WHERE id = $1`,
		sessionID,
	).Scan(&s.ID, &stage, pq.Array(&s.Context.Detected), pq.Array(&s.Context.History), &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	s.Context.Stage = pkg.Stage(stage)
	return &s, nil
}

// AppendMessage stores a message at the end of the session's transcript.
func (r *Repository) AppendMessage(ctx context.Context, sessionID string, m pkg.Message) (*pkg.Message, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, pkg.ErrSessionNotFound
	}
	kind := m.Kind
	if kind == "" {
		kind = pkg.KindText
	}
	out := m
	out.SessionID = sessionID
	out.Kind = kind
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO messages (session_id, sender, content, kind, image_ref)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		sessionID, string(m.Sender), m.Content, string(kind), m.ImageRef,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, pkg.ErrSessionNotFound
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &out, nil
}

// GetTranscript returns all messages of a session in the order they were
// appended.
func (r *Repository) GetTranscript(ctx context.Context, sessionID string) ([]pkg.Message, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, pkg.ErrSessionNotFound
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, session_id, sender, content, kind, image_ref, created_at
         FROM messages
         WHERE session_id = $1
         ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()
	var transcript []pkg.Message
	for rows.Next() {
		var m pkg.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.Kind, &m.ImageRef, &m.CreatedAt); err != nil {
			return nil, err
		}
		transcript = append(transcript, m)
	}
	return transcript, rows.Err()
}

// CountUserMessages counts patient messages for message-cap enforcement.
func (r *Repository) CountUserMessages(ctx context.Context, sessionID string) (int, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return 0, pkg.ErrSessionNotFound
	}
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*)
         FROM messages
         WHERE session_id = $1
           AND sender = 'user'`,
		sessionID,
	).Scan(&count)
	return count, err
}

// SaveContext replaces the stored conversation context of a session.
func (r *Repository) SaveContext(ctx context.Context, sessionID string, c pkg.ConversationContext) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return pkg.ErrSessionNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE sessions
         SET stage = $2, detected = $3, history = $4, updated_at = NOW()
         WHERE id = $1`,
		sessionID, string(c.Stage), pq.Array(nonNil(c.Detected)), pq.Array(nonNil(c.History)),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return expectOneRow(res)
}

// ResetSession drops the transcript and restores the initial context.
func (r *Repository) ResetSession(ctx context.Context, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return pkg.ErrSessionNotFound
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions
         SET stage = $2, detected = '{}', history = '{}', updated_at = NOW()
         WHERE id = $1`,
		sessionID, string(pkg.StageInitial),
	)
	if err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return tx.Commit()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pkg.ErrSessionNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
