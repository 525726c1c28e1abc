// Package postgres implements store.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/store"
)

// foreignKeyViolation is the SQLSTATE raised when a referenced row is missing.
const foreignKeyViolation = "23503"

// DB abstracts the pgx methods used by Store. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is the subset shared by DB and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists workspaces and chat transcripts in PostgreSQL.
// Thread safety is provided by the connection pool.
type Store struct {
	db   DB
	pool *pgxpool.Pool
	now  func() time.Time
}

// New wraps an existing connection pool or mock. Close does not close db.
func New(db DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	s := New(pool)
	s.pool = pool
	return s, nil
}

// Close releases the pool when it was opened by Open.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SessionForWorkspace returns the workspace's session, or nil when none exists.
func (s *Store) SessionForWorkspace(ctx context.Context, workspaceID uuid.UUID) (*store.Session, error) {
	var sess store.Session
	err := s.db.QueryRow(ctx,
		`SELECT id, jd_set_id, created_at FROM chat_sessions WHERE jd_set_id = $1 ORDER BY created_at LIMIT 1`,
		workspaceID,
	).Scan(&sess.ID, &sess.WorkspaceID, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: session for workspace: %w", err)
	}
	return &sess, nil
}

// CreateSession inserts the workspace's session. A concurrent insert for the
// same workspace is absorbed by the unique index and the winner is returned.
func (s *Store) CreateSession(ctx context.Context, workspaceID uuid.UUID) (*store.Session, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, jd_set_id) VALUES ($1, $2) ON CONFLICT (jd_set_id) DO NOTHING`,
		uuid.New(), workspaceID,
	)
	if isForeignKeyViolation(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: create session: %w", err)
	}

	sess, err := s.SessionForWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, store.ErrNotFound
	}
	return sess, nil
}

// AppendMessage records one turn in the session.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, role ai.Role, content string) (*store.ChatMessage, error) {
	msg := store.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		msg.ID, sessionID, string(role), content,
	).Scan(&msg.CreatedAt)
	if isForeignKeyViolation(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: append message: %w", err)
	}
	return &msg, nil
}

// CreateWorkspace inserts an empty workspace.
func (s *Store) CreateWorkspace(ctx context.Context, name string) (*store.WorkspaceDetail, error) {
	ws := store.Workspace{ID: uuid.New(), Name: store.NormalizeName(name)}
	err := s.db.QueryRow(ctx,
		`INSERT INTO jd_sets (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		ws.ID, ws.Name,
	).Scan(&ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create workspace: %w", err)
	}
	return &store.WorkspaceDetail{Workspace: ws, Items: []store.Item{}, ChatMessages: []store.ChatMessage{}}, nil
}

// GetWorkspace loads the workspace with its items and transcript.
func (s *Store) GetWorkspace(ctx context.Context, id uuid.UUID) (*store.WorkspaceDetail, error) {
	var d store.WorkspaceDetail
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, created_at, updated_at FROM jd_sets WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.UserID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get workspace: %w", err)
	}

	if d.Items, err = loadItems(ctx, s.db, id); err != nil {
		return nil, err
	}
	if d.ChatMessages, err = s.loadMessages(ctx, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// RenameWorkspace sets the name when name is non-nil.
func (s *Store) RenameWorkspace(ctx context.Context, id uuid.UUID, name *string) (*store.WorkspaceDetail, error) {
	if name != nil {
		tag, err := s.db.Exec(ctx,
			`UPDATE jd_sets SET name = $2, updated_at = $3 WHERE id = $1`,
			id, *name, s.now(),
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: rename workspace: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.GetWorkspace(ctx, id)
}

// DeleteWorkspace removes the workspace; foreign keys cascade the rest.
func (s *Store) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM jd_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete workspace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SyncItems replaces the workspace's items in one transaction and touches
// the workspace's updated_at.
func (s *Store) SyncItems(ctx context.Context, id uuid.UUID, inputs []store.ItemInput) ([]store.Item, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: sync begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM jd_sets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: sync lock workspace: %w", err)
	}

	existing, err := loadItems(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	synced := store.ApplySync(id, existing, inputs, now)

	if removed := store.Removed(existing, synced); len(removed) > 0 {
		ids := make([]string, len(removed))
		for i, r := range removed {
			ids[i] = r.String()
		}
		if _, err := tx.Exec(ctx, `DELETE FROM jd_items WHERE jd_set_id = $1 AND id = ANY($2::uuid[])`, id, ids); err != nil {
			return nil, fmt.Errorf("postgres: sync delete items: %w", err)
		}
	}

	for i := range synced {
		if err := upsertItem(ctx, tx, &synced[i]); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE jd_sets SET updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return nil, fmt.Errorf("postgres: sync touch workspace: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: sync commit tx: %w", err)
	}
	return synced, nil
}

const upsertItemSQL = `INSERT INTO jd_items
	(id, jd_set_id, raw_text, label_title, label_company, is_muted, sort_order, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		raw_text = EXCLUDED.raw_text,
		label_title = EXCLUDED.label_title,
		label_company = EXCLUDED.label_company,
		is_muted = EXCLUDED.is_muted,
		sort_order = EXCLUDED.sort_order,
		updated_at = EXCLUDED.updated_at
	WHERE jd_items.jd_set_id = EXCLUDED.jd_set_id`

// upsertItem writes one synced item. Item ids are unique across all
// workspaces, so an id already owned by another workspace matches no row;
// the item is then stored under a fresh id, which is written back to item.
func upsertItem(ctx context.Context, tx pgx.Tx, item *store.Item) error {
	for attempt := 0; attempt < 2; attempt++ {
		tag, err := tx.Exec(ctx, upsertItemSQL,
			item.ID, item.WorkspaceID, item.RawText, item.Title, item.Company,
			item.Muted, item.SortOrder, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: sync upsert item: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		item.ID = uuid.New()
		item.CreatedAt = item.UpdatedAt
	}
	return fmt.Errorf("postgres: sync upsert item %s: no row written", item.ID)
}

func loadItems(ctx context.Context, q querier, workspaceID uuid.UUID) ([]store.Item, error) {
	rows, err := q.Query(ctx, `SELECT id, jd_set_id, raw_text, label_title, label_company, is_muted, sort_order, created_at, updated_at
		FROM jd_items WHERE jd_set_id = $1 ORDER BY sort_order ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load items: %w", err)
	}
	defer rows.Close()

	items := []store.Item{}
	for rows.Next() {
		var item store.Item
		if err := rows.Scan(
			&item.ID, &item.WorkspaceID, &item.RawText, &item.Title, &item.Company,
			&item.Muted, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load items: %w", err)
	}
	return items, nil
}

func (s *Store) loadMessages(ctx context.Context, workspaceID uuid.UUID) ([]store.ChatMessage, error) {
	rows, err := s.db.Query(ctx, `SELECT m.id, m.session_id, m.role, m.content, m.token_count, m.created_at
		FROM chat_messages m JOIN chat_sessions s ON s.id = m.session_id
		WHERE s.jd_set_id = $1 ORDER BY m.created_at ASC, m.seq ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load messages: %w", err)
	}
	defer rows.Close()

	messages := []store.ChatMessage{}
	for rows.Next() {
		var msg store.ChatMessage
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.TokenCount, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		msg.Role = ai.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load messages: %w", err)
	}
	return messages, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

var _ store.Store = (*Store)(nil)
