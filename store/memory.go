package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/jdcompare"
)

// Memory is a thread-safe in-process Store. Data is lost on restart.
type Memory struct {
	mu         sync.RWMutex
	now        func() time.Time
	workspaces map[uuid.UUID]Workspace
	items      map[uuid.UUID][]Item        // by workspace, in sort order
	sessions   map[uuid.UUID]Session       // by workspace
	messages   map[uuid.UUID][]ChatMessage // by session, in append order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		workspaces: make(map[uuid.UUID]Workspace),
		items:      make(map[uuid.UUID][]Item),
		sessions:   make(map[uuid.UUID]Session),
		messages:   make(map[uuid.UUID][]ChatMessage),
	}
}

// SessionForWorkspace returns the workspace's session, or nil when none exists.
func (m *Memory) SessionForWorkspace(_ context.Context, workspaceID uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[workspaceID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// CreateSession creates the workspace's session, or returns the existing one.
func (m *Memory) CreateSession(_ context.Context, workspaceID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[workspaceID]; !ok {
		return nil, ErrNotFound
	}
	if s, ok := m.sessions[workspaceID]; ok {
		return &s, nil
	}
	s := Session{ID: uuid.New(), WorkspaceID: workspaceID, CreatedAt: m.now()}
	m.sessions[workspaceID] = s
	return &s, nil
}

// AppendMessage records one turn in the session.
func (m *Memory) AppendMessage(_ context.Context, sessionID uuid.UUID, role ai.Role, content string) (*ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSession(sessionID) {
		return nil, ErrNotFound
	}
	msg := ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return &msg, nil
}

func (m *Memory) hasSession(id uuid.UUID) bool {
	for _, s := range m.sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

// CreateWorkspace creates an empty workspace.
func (m *Memory) CreateWorkspace(_ context.Context, name string) (*WorkspaceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	ws := Workspace{ID: uuid.New(), Name: NormalizeName(name), CreatedAt: now, UpdatedAt: now}
	m.workspaces[ws.ID] = ws
	return &WorkspaceDetail{Workspace: ws, Items: []Item{}, ChatMessages: []ChatMessage{}}, nil
}

// GetWorkspace returns the workspace with its items and transcript.
func (m *Memory) GetWorkspace(_ context.Context, id uuid.UUID) (*WorkspaceDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detail(id)
}

// RenameWorkspace sets the workspace name when name is non-nil.
func (m *Memory) RenameWorkspace(_ context.Context, id uuid.UUID, name *string) (*WorkspaceDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	if name != nil {
		ws.Name = *name
		ws.UpdatedAt = m.now()
		m.workspaces[id] = ws
	}
	return m.detail(id)
}

// DeleteWorkspace removes the workspace and everything recorded against it.
func (m *Memory) DeleteWorkspace(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[id]; !ok {
		return ErrNotFound
	}
	if s, ok := m.sessions[id]; ok {
		delete(m.messages, s.ID)
		delete(m.sessions, id)
	}
	delete(m.items, id)
	delete(m.workspaces, id)
	return nil
}

// SyncItems replaces the workspace's items and touches its update time.
func (m *Memory) SyncItems(_ context.Context, id uuid.UUID, inputs []ItemInput) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	synced := ApplySync(id, m.items[id], inputs, now)
	m.items[id] = synced
	ws.UpdatedAt = now
	m.workspaces[id] = ws
	return slices.Clone(synced), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// detail must be called with m.mu held.
func (m *Memory) detail(id uuid.UUID) (*WorkspaceDetail, error) {
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	d := &WorkspaceDetail{
		Workspace:    ws,
		Items:        slices.Clone(m.items[id]),
		ChatMessages: []ChatMessage{},
	}
	if d.Items == nil {
		d.Items = []Item{}
	}
	if s, ok := m.sessions[id]; ok {
		d.ChatMessages = append(d.ChatMessages, m.messages[s.ID]...)
	}
	slices.SortStableFunc(d.ChatMessages, func(a, b ChatMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	slices.SortStableFunc(d.Items, func(a, b Item) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return d, nil
}

var _ Store = (*Memory)(nil)
