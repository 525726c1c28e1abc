package postgres

import (
	"context"
	"fmt"
)

// schema lists the DDL statements run by EnsureSchema, in order.
// chat_sessions.jd_set_id is unique so that concurrent first turns on a
// workspace converge on a single session.
var schema = []struct {
	name string
	sql  string
}{
	{"jd_sets", `CREATE TABLE IF NOT EXISTS jd_sets (
    id         UUID PRIMARY KEY,
    user_id    UUID,
    name       VARCHAR(255) NOT NULL DEFAULT 'Untitled Workspace',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"jd_items", `CREATE TABLE IF NOT EXISTS jd_items (
    id            UUID PRIMARY KEY,
    jd_set_id     UUID NOT NULL REFERENCES jd_sets(id) ON DELETE CASCADE,
    raw_text      TEXT NOT NULL,
    label_title   VARCHAR(255),
    label_company VARCHAR(255),
    is_muted      BOOLEAN NOT NULL DEFAULT FALSE,
    sort_order    INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"chat_sessions", `CREATE TABLE IF NOT EXISTS chat_sessions (
    id         UUID PRIMARY KEY,
    jd_set_id  UUID NOT NULL REFERENCES jd_sets(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"chat_messages", `CREATE TABLE IF NOT EXISTS chat_messages (
    id          UUID PRIMARY KEY,
    seq         BIGSERIAL NOT NULL,
    session_id  UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    role        VARCHAR(20) NOT NULL,
    content     TEXT NOT NULL,
    token_count INTEGER,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"ix_jd_items_jd_set_id", `CREATE INDEX IF NOT EXISTS ix_jd_items_jd_set_id ON jd_items (jd_set_id)`},
	{"ux_chat_sessions_jd_set_id", `CREATE UNIQUE INDEX IF NOT EXISTS ux_chat_sessions_jd_set_id ON chat_sessions (jd_set_id)`},
	{"ix_chat_messages_session_id", `CREATE INDEX IF NOT EXISTS ix_chat_messages_session_id ON chat_messages (session_id, seq)`},
}

// EnsureSchema creates the tables and indexes if they do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("postgres: create %s: %w", stmt.name, err)
		}
	}
	return nil
}
