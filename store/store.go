// Package store persists workspaces, their job description items, and the
// chat transcript recorded against them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/jdcompare"
)

// ErrNotFound is returned when a workspace or session does not exist.
var ErrNotFound = errors.New("not found")

// DefaultWorkspaceName is used when a workspace is created without a name.
const DefaultWorkspaceName = "Untitled Workspace"

// Workspace groups a set of job descriptions and one chat session.
type Workspace struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Item is one job description stored in a workspace.
type Item struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"jd_set_id"`
	RawText     string    `json:"raw_text"`
	Title       *string   `json:"label_title"`
	Company     *string   `json:"label_company"`
	Muted       bool      `json:"is_muted"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session is the conversation attached to a workspace.
type Session struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"jd_set_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatMessage is one recorded turn. Messages are append-only.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Role       ai.Role   `json:"role"`
	Content    string    `json:"content"`
	TokenCount *int      `json:"token_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// WorkspaceDetail is a workspace with its items ordered by sort order and
// its chat messages ordered by creation time.
type WorkspaceDetail struct {
	Workspace
	Items        []Item        `json:"items"`
	ChatMessages []ChatMessage `json:"chat_messages"`
}

// ItemInput is one card in a bulk sync request. ID may be empty or
// malformed, in which case a new identifier is assigned.
type ItemInput struct {
	ID      string  `json:"id"`
	RawText string  `json:"raw_text"`
	Title   *string `json:"label_title"`
	Company *string `json:"label_company"`
	Muted   bool    `json:"is_muted"`
}

// Conversations records chat turns against a workspace.
type Conversations interface {
	// SessionForWorkspace returns the workspace's session, or nil when none
	// exists yet.
	SessionForWorkspace(ctx context.Context, workspaceID uuid.UUID) (*Session, error)

	// CreateSession creates the workspace's session. If one already exists
	// it is returned instead.
	CreateSession(ctx context.Context, workspaceID uuid.UUID) (*Session, error)

	// AppendMessage records one turn.
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role ai.Role, content string) (*ChatMessage, error)
}

// Workspaces manages workspaces and their items.
type Workspaces interface {
	CreateWorkspace(ctx context.Context, name string) (*WorkspaceDetail, error)
	GetWorkspace(ctx context.Context, id uuid.UUID) (*WorkspaceDetail, error)

	// RenameWorkspace sets the name when name is non-nil and returns the
	// updated workspace.
	RenameWorkspace(ctx context.Context, id uuid.UUID, name *string) (*WorkspaceDetail, error)

	// DeleteWorkspace removes the workspace with its items, sessions and
	// messages.
	DeleteWorkspace(ctx context.Context, id uuid.UUID) error

	// SyncItems replaces the workspace's items with the given list and
	// marks the workspace as modified.
	SyncItems(ctx context.Context, id uuid.UUID, items []ItemInput) ([]Item, error)
}

// Store is a complete persistence backend.
type Store interface {
	Conversations
	Workspaces
	Close() error
}

// NormalizeName returns name, or DefaultWorkspaceName when it is empty.
func NormalizeName(name string) string {
	if name == "" {
		return DefaultWorkspaceName
	}
	return name
}

// ApplySync computes the item list that results from syncing inputs onto
// existing. Items whose ID matches an existing item are updated in place and
// keep their creation time; other inputs become new items, keeping a valid
// client-supplied ID. Sort order is the input position. Existing items not
// present in inputs are absent from the result.
func ApplySync(workspaceID uuid.UUID, existing []Item, inputs []ItemInput, now time.Time) []Item {
	byID := make(map[uuid.UUID]Item, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	seen := make(map[uuid.UUID]bool, len(inputs))
	out := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		id, err := uuid.Parse(in.ID)
		if err != nil || seen[id] {
			id = uuid.New()
		}
		seen[id] = true

		item, ok := byID[id]
		if !ok {
			item = Item{ID: id, WorkspaceID: workspaceID, CreatedAt: now}
		}
		item.RawText = in.RawText
		item.Title = in.Title
		item.Company = in.Company
		item.Muted = in.Muted
		item.SortOrder = i
		item.UpdatedAt = now
		out = append(out, item)
	}
	return out
}

// Removed returns the IDs of items in existing that are absent from synced.
func Removed(existing, synced []Item) []uuid.UUID {
	keep := make(map[uuid.UUID]bool, len(synced))
	for _, item := range synced {
		keep[item.ID] = true
	}
	var out []uuid.UUID
	for _, item := range existing {
		if !keep[item.ID] {
			out = append(out, item.ID)
		}
	}
	return out
}
