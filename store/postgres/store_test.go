package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := New(mock)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func ptr(s string) *string { return &s }

var itemColumns = []string{"id", "jd_set_id", "raw_text", "label_title", "label_company", "is_muted", "sort_order", "created_at", "updated_at"}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS jd_sets",
		"CREATE TABLE IF NOT EXISTS jd_items",
		"CREATE TABLE IF NOT EXISTS chat_sessions",
		"CREATE TABLE IF NOT EXISTS chat_messages",
		"CREATE INDEX IF NOT EXISTS ix_jd_items_jd_set_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_chat_sessions_jd_set_id",
		"CREATE INDEX IF NOT EXISTS ix_chat_messages_session_id",
	} {
		mock.ExpectExec(stmt).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jd_sets").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jd_items").WillReturnError(errors.New("permission denied"))

	err := s.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create jd_items")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionForWorkspaceNone(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectQuery("SELECT id, jd_set_id, created_at FROM chat_sessions").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id", "jd_set_id", "created_at"}))

	sess, err := s.SessionForWorkspace(context.Background(), wsID)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSessionReturnsWinner(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()
	existing := uuid.New()

	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs(pgxmock.AnyArg(), wsID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT id, jd_set_id, created_at FROM chat_sessions").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id", "jd_set_id", "created_at"}).AddRow(existing, wsID, fixedNow))

	sess, err := s.CreateSession(context.Background(), wsID)
	require.NoError(t, err)
	assert.Equal(t, existing, sess.ID)
	assert.Equal(t, wsID, sess.WorkspaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSessionUnknownWorkspace(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs(pgxmock.AnyArg(), wsID).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

	_, err := s.CreateSession(context.Background(), wsID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage(t *testing.T) {
	s, mock := newMockStore(t)
	sessID := uuid.New()

	mock.ExpectQuery("INSERT INTO chat_messages").
		WithArgs(pgxmock.AnyArg(), sessID, "assistant", "t1t2").
		WillReturnRows(mock.NewRows([]string{"created_at"}).AddRow(fixedNow))

	msg, err := s.AppendMessage(context.Background(), sessID, ai.RoleAssistant, "t1t2")
	require.NoError(t, err)
	assert.Equal(t, ai.RoleAssistant, msg.Role)
	assert.Equal(t, "t1t2", msg.Content)
	assert.Equal(t, fixedNow, msg.CreatedAt)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessageError(t *testing.T) {
	s, mock := newMockStore(t)
	sessID := uuid.New()

	mock.ExpectQuery("INSERT INTO chat_messages").
		WithArgs(pgxmock.AnyArg(), sessID, "user", "hi").
		WillReturnError(errors.New("connection reset"))

	_, err := s.AppendMessage(context.Background(), sessID, ai.RoleUser, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append message")
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestCreateWorkspaceDefaultName(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO jd_sets").
		WithArgs(pgxmock.AnyArg(), store.DefaultWorkspaceName).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).AddRow(fixedNow, fixedNow))

	ws, err := s.CreateWorkspace(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultWorkspaceName, ws.Name)
	assert.Empty(t, ws.Items)
	assert.Empty(t, ws.ChatMessages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWorkspace(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()
	sessID := uuid.New()
	itemID := uuid.New()
	tokens := 12

	mock.ExpectQuery("SELECT id, user_id, name, created_at, updated_at FROM jd_sets").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "name", "created_at", "updated_at"}).
			AddRow(wsID, nil, "Backend roles", fixedNow, fixedNow))
	mock.ExpectQuery("FROM jd_items WHERE jd_set_id").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows(itemColumns).
			AddRow(itemID, wsID, "JD text", ptr("Senior Engineer"), nil, false, 0, fixedNow, fixedNow))
	mock.ExpectQuery("FROM chat_messages m JOIN chat_sessions s").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id", "session_id", "role", "content", "token_count", "created_at"}).
			AddRow(uuid.New(), sessID, "user", "question", nil, fixedNow).
			AddRow(uuid.New(), sessID, "assistant", "answer", &tokens, fixedNow.Add(time.Second)))

	d, err := s.GetWorkspace(context.Background(), wsID)
	require.NoError(t, err)
	assert.Equal(t, "Backend roles", d.Name)
	assert.Nil(t, d.UserID)

	require.Len(t, d.Items, 1)
	assert.Equal(t, itemID, d.Items[0].ID)
	assert.Equal(t, "Senior Engineer", *d.Items[0].Title)
	assert.Nil(t, d.Items[0].Company)

	require.Len(t, d.ChatMessages, 2)
	assert.Equal(t, ai.RoleUser, d.ChatMessages[0].Role)
	assert.Nil(t, d.ChatMessages[0].TokenCount)
	assert.Equal(t, ai.RoleAssistant, d.ChatMessages[1].Role)
	require.NotNil(t, d.ChatMessages[1].TokenCount)
	assert.Equal(t, 12, *d.ChatMessages[1].TokenCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWorkspaceNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectQuery("SELECT id, user_id, name, created_at, updated_at FROM jd_sets").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "name", "created_at", "updated_at"}))

	_, err := s.GetWorkspace(context.Background(), wsID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenameWorkspaceNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectExec("UPDATE jd_sets SET name").
		WithArgs(wsID, "New name", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := s.RenameWorkspace(context.Background(), wsID, ptr("New name"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteWorkspace(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectExec("DELETE FROM jd_sets").WithArgs(wsID).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM jd_sets").WithArgs(wsID).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteWorkspace(context.Background(), wsID))
	assert.ErrorIs(t, s.DeleteWorkspace(context.Background(), wsID), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncItems(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()
	keepID := uuid.New()
	dropID := uuid.New()
	created := fixedNow.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM jd_sets WHERE id = .+ FOR UPDATE").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(wsID))
	mock.ExpectQuery("FROM jd_items WHERE jd_set_id").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows(itemColumns).
			AddRow(keepID, wsID, "old", nil, nil, false, 0, created, created).
			AddRow(dropID, wsID, "gone", nil, nil, false, 1, created, created))
	mock.ExpectExec("DELETE FROM jd_items").
		WithArgs(wsID, []string{dropID.String()}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(keepID, wsID, "updated", ptr("Engineer"), (*string)(nil), true, 0, created, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(pgxmock.AnyArg(), wsID, "brand new", (*string)(nil), (*string)(nil), false, 1, fixedNow, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE jd_sets SET updated_at").
		WithArgs(wsID, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	items, err := s.SyncItems(context.Background(), wsID, []store.ItemInput{
		{ID: keepID.String(), RawText: "updated", Title: ptr("Engineer"), Muted: true},
		{ID: "", RawText: "brand new"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, keepID, items[0].ID)
	assert.Equal(t, created, items[0].CreatedAt)
	assert.Equal(t, 1, items[1].SortOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncItemsUnknownWorkspace(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM jd_sets WHERE id = .+ FOR UPDATE").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.SyncItems(context.Background(), wsID, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncItemsRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM jd_sets WHERE id = .+ FOR UPDATE").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(wsID))
	mock.ExpectQuery("FROM jd_items WHERE jd_set_id").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows(itemColumns))
	any9 := make([]any, 9)
	for i := range any9 {
		any9[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(any9...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.SyncItems(context.Background(), wsID, []store.ItemInput{{RawText: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncItemsReassignsForeignID(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()
	foreignID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM jd_sets WHERE id = .+ FOR UPDATE").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(wsID))
	mock.ExpectQuery("FROM jd_items WHERE jd_set_id").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows(itemColumns))
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(foreignID, wsID, "copied", (*string)(nil), (*string)(nil), false, 0, fixedNow, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(pgxmock.AnyArg(), wsID, "copied", (*string)(nil), (*string)(nil), false, 0, fixedNow, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE jd_sets SET updated_at").
		WithArgs(wsID, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	items, err := s.SyncItems(context.Background(), wsID, []store.ItemInput{
		{ID: foreignID.String(), RawText: "copied"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEqual(t, foreignID, items[0].ID)
	assert.NotEqual(t, uuid.Nil, items[0].ID)
	assert.Equal(t, wsID, items[0].WorkspaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncItemsFailsWhenNoRowWritten(t *testing.T) {
	s, mock := newMockStore(t)
	wsID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM jd_sets WHERE id = .+ FOR UPDATE").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(wsID))
	mock.ExpectQuery("FROM jd_items WHERE jd_set_id").
		WithArgs(wsID).
		WillReturnRows(mock.NewRows(itemColumns))
	any9 := make([]any, 9)
	for i := range any9 {
		any9[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(any9...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("INSERT INTO jd_items").
		WithArgs(any9...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	_, err := s.SyncItems(context.Background(), wsID, []store.ItemInput{{RawText: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no row written")
	assert.NoError(t, mock.ExpectationsWereMet())
}
