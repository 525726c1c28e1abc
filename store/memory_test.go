package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/jdcompare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAndGetWorkspace(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.CreateWorkspace(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkspaceName, created.Name)
	assert.Empty(t, created.Items)
	assert.NotNil(t, created.ChatMessages)

	got, err := m.GetWorkspace(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Workspace, got.Workspace)

	_, err = m.GetWorkspace(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_RenameWorkspace(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws, err := m.CreateWorkspace(ctx, "First")
	require.NoError(t, err)

	got, err := m.RenameWorkspace(ctx, ws.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)

	got, err = m.RenameWorkspace(ctx, ws.ID, ptr("Second"))
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)

	_, err = m.RenameWorkspace(ctx, uuid.New(), ptr("x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws, err := m.CreateWorkspace(ctx, "w")
	require.NoError(t, err)

	s, err := m.SessionForWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = m.CreateSession(ctx, ws.ID)
	require.NoError(t, err)
	require.NotNil(t, s)

	again, err := m.CreateSession(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)

	found, err := m.SessionForWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)

	_, err = m.CreateSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ConcurrentCreateSession(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws, err := m.CreateWorkspace(ctx, "w")
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.CreateSession(ctx, ws.ID)
			assert.NoError(t, err)
			ids[i] = s.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMemory_MessagesInWorkspaceDetail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	ws, err := m.CreateWorkspace(ctx, "w")
	require.NoError(t, err)
	s, err := m.CreateSession(ctx, ws.ID)
	require.NoError(t, err)

	_, err = m.AppendMessage(ctx, s.ID, ai.RoleUser, "question")
	require.NoError(t, err)
	_, err = m.AppendMessage(ctx, s.ID, ai.RoleAssistant, "answer")
	require.NoError(t, err)

	d, err := m.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, d.ChatMessages, 2)
	assert.Equal(t, ai.RoleUser, d.ChatMessages[0].Role)
	assert.Equal(t, "question", d.ChatMessages[0].Content)
	assert.Equal(t, ai.RoleAssistant, d.ChatMessages[1].Role)
	assert.True(t, d.ChatMessages[0].CreatedAt.Before(d.ChatMessages[1].CreatedAt))

	_, err = m.AppendMessage(ctx, uuid.New(), ai.RoleUser, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SyncItems(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws, err := m.CreateWorkspace(ctx, "w")
	require.NoError(t, err)

	first, err := m.SyncItems(ctx, ws.ID, []ItemInput{
		{RawText: "one"},
		{RawText: "two"},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := m.SyncItems(ctx, ws.ID, []ItemInput{
		{ID: first[1].ID.String(), RawText: "two edited"},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[1].ID, second[0].ID)
	assert.Equal(t, 0, second[0].SortOrder)

	d, err := m.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "two edited", d.Items[0].RawText)
	assert.False(t, d.UpdatedAt.Before(ws.UpdatedAt))

	_, err = m.SyncItems(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SyncItemsTouchesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	ws, err := m.CreateWorkspace(ctx, "w")
	require.NoError(t, err)
	_, err = m.SyncItems(ctx, ws.ID, nil)
	require.NoError(t, err)

	d, err := m.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.True(t, d.UpdatedAt.After(ws.UpdatedAt))
}

func TestMemory_DeleteWorkspaceCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws, err := m.CreateWorkspace(ctx, "w")
	require.NoError(t, err)
	s, err := m.CreateSession(ctx, ws.ID)
	require.NoError(t, err)
	_, err = m.AppendMessage(ctx, s.ID, ai.RoleUser, "hi")
	require.NoError(t, err)
	_, err = m.SyncItems(ctx, ws.ID, []ItemInput{{RawText: "jd"}})
	require.NoError(t, err)

	require.NoError(t, m.DeleteWorkspace(ctx, ws.ID))

	_, err = m.GetWorkspace(ctx, ws.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	found, err := m.SessionForWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
	_, err = m.AppendMessage(ctx, s.ID, ai.RoleAssistant, "late")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.DeleteWorkspace(ctx, ws.ID), ErrNotFound)
}
