// Package bolt implements store.Store on a single bbolt file, for
// deployments without a PostgreSQL server.
package bolt

import (
	"cmp"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/store"
	bolt "go.etcd.io/bbolt"
)

// Top-level buckets. items and messages hold one nested bucket per
// workspace and per session respectively.
var (
	bucketWorkspaces = []byte("workspaces")
	bucketItems      = []byte("items")
	bucketSessions   = []byte("sessions") // keyed by workspace id
	bucketMessages   = []byte("messages")
)

// Store persists workspaces and chat transcripts as JSON records in bbolt.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketWorkspaces, bucketItems, bucketSessions, bucketMessages} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id uuid.UUID) []byte { return []byte(id.String()) }

func get[T any](b *bolt.Bucket, k []byte) (*T, error) {
	v := b.Get(k)
	if v == nil {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("bolt: decode %s: %w", k, err)
	}
	return &out, nil
}

func put(b *bolt.Bucket, k []byte, v any) error {
	enc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(k, enc)
}

// SessionForWorkspace returns the workspace's session, or nil when none exists.
func (s *Store) SessionForWorkspace(_ context.Context, workspaceID uuid.UUID) (*store.Session, error) {
	var sess *store.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		sess, err = get[store.Session](tx.Bucket(bucketSessions), key(workspaceID))
		return err
	})
	return sess, err
}

// CreateSession creates the workspace's session, or returns the existing one.
func (s *Store) CreateSession(_ context.Context, workspaceID uuid.UUID) (*store.Session, error) {
	var sess *store.Session
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketWorkspaces).Get(key(workspaceID)) == nil {
			return store.ErrNotFound
		}
		sessions := tx.Bucket(bucketSessions)
		existing, err := get[store.Session](sessions, key(workspaceID))
		if err != nil {
			return err
		}
		if existing != nil {
			sess = existing
			return nil
		}

		sess = &store.Session{ID: uuid.New(), WorkspaceID: workspaceID, CreatedAt: s.now()}
		if err := put(sessions, key(workspaceID), sess); err != nil {
			return err
		}
		_, err = tx.Bucket(bucketMessages).CreateBucket(key(sess.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// AppendMessage records one turn. Messages are keyed by a per-session
// sequence so iteration returns them in append order.
func (s *Store) AppendMessage(_ context.Context, sessionID uuid.UUID, role ai.Role, content string) (*store.ChatMessage, error) {
	msg := &store.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessages).Bucket(key(sessionID))
		if b == nil {
			return store.ErrNotFound
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		k := make([]byte, 8)
		binary.BigEndian.PutUint64(k, seq)
		return put(b, k, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateWorkspace stores an empty workspace.
func (s *Store) CreateWorkspace(_ context.Context, name string) (*store.WorkspaceDetail, error) {
	now := s.now()
	ws := store.Workspace{ID: uuid.New(), Name: store.NormalizeName(name), CreatedAt: now, UpdatedAt: now}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketWorkspaces), key(ws.ID), ws)
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: create workspace: %w", err)
	}
	return &store.WorkspaceDetail{Workspace: ws, Items: []store.Item{}, ChatMessages: []store.ChatMessage{}}, nil
}

// GetWorkspace loads the workspace with its items and transcript.
func (s *Store) GetWorkspace(_ context.Context, id uuid.UUID) (*store.WorkspaceDetail, error) {
	var d *store.WorkspaceDetail
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		d, err = detail(tx, id)
		return err
	})
	return d, err
}

// RenameWorkspace sets the name when name is non-nil.
func (s *Store) RenameWorkspace(_ context.Context, id uuid.UUID, name *string) (*store.WorkspaceDetail, error) {
	var d *store.WorkspaceDetail
	err := s.db.Update(func(tx *bolt.Tx) error {
		workspaces := tx.Bucket(bucketWorkspaces)
		ws, err := get[store.Workspace](workspaces, key(id))
		if err != nil {
			return err
		}
		if ws == nil {
			return store.ErrNotFound
		}
		if name != nil {
			ws.Name = *name
			ws.UpdatedAt = s.now()
			if err := put(workspaces, key(id), ws); err != nil {
				return err
			}
		}
		d, err = detail(tx, id)
		return err
	})
	return d, err
}

// DeleteWorkspace removes the workspace with its items, session and messages.
func (s *Store) DeleteWorkspace(_ context.Context, id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		workspaces := tx.Bucket(bucketWorkspaces)
		if workspaces.Get(key(id)) == nil {
			return store.ErrNotFound
		}
		sessions := tx.Bucket(bucketSessions)
		sess, err := get[store.Session](sessions, key(id))
		if err != nil {
			return err
		}
		if sess != nil {
			if err := deleteBucketIfExists(tx.Bucket(bucketMessages), key(sess.ID)); err != nil {
				return err
			}
			if err := sessions.Delete(key(id)); err != nil {
				return err
			}
		}
		if err := deleteBucketIfExists(tx.Bucket(bucketItems), key(id)); err != nil {
			return err
		}
		return workspaces.Delete(key(id))
	})
}

// SyncItems replaces the workspace's items and touches its update time.
func (s *Store) SyncItems(_ context.Context, id uuid.UUID, inputs []store.ItemInput) ([]store.Item, error) {
	var synced []store.Item
	err := s.db.Update(func(tx *bolt.Tx) error {
		workspaces := tx.Bucket(bucketWorkspaces)
		ws, err := get[store.Workspace](workspaces, key(id))
		if err != nil {
			return err
		}
		if ws == nil {
			return store.ErrNotFound
		}

		existing, err := loadItems(tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		synced = store.ApplySync(id, existing, inputs, now)

		// Recreate the bucket to reflect the synced list exactly.
		items := tx.Bucket(bucketItems)
		if err := deleteBucketIfExists(items, key(id)); err != nil {
			return err
		}
		b, err := items.CreateBucket(key(id))
		if err != nil {
			return err
		}
		for _, item := range synced {
			if err := put(b, key(item.ID), item); err != nil {
				return err
			}
		}

		ws.UpdatedAt = now
		return put(workspaces, key(id), ws)
	})
	if err != nil {
		return nil, err
	}
	return synced, nil
}

func deleteBucketIfExists(parent *bolt.Bucket, name []byte) error {
	if parent.Bucket(name) == nil {
		return nil
	}
	return parent.DeleteBucket(name)
}

func detail(tx *bolt.Tx, id uuid.UUID) (*store.WorkspaceDetail, error) {
	ws, err := get[store.Workspace](tx.Bucket(bucketWorkspaces), key(id))
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, store.ErrNotFound
	}

	d := &store.WorkspaceDetail{Workspace: *ws, ChatMessages: []store.ChatMessage{}}
	if d.Items, err = loadItems(tx, id); err != nil {
		return nil, err
	}

	sess, err := get[store.Session](tx.Bucket(bucketSessions), key(id))
	if err != nil {
		return nil, err
	}
	if sess != nil {
		if b := tx.Bucket(bucketMessages).Bucket(key(sess.ID)); b != nil {
			err := b.ForEach(func(_, v []byte) error {
				var msg store.ChatMessage
				if err := json.Unmarshal(v, &msg); err != nil {
					return err
				}
				d.ChatMessages = append(d.ChatMessages, msg)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("bolt: decode messages: %w", err)
			}
		}
	}
	slices.SortStableFunc(d.ChatMessages, func(a, b store.ChatMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return d, nil
}

func loadItems(tx *bolt.Tx, workspaceID uuid.UUID) ([]store.Item, error) {
	items := []store.Item{}
	b := tx.Bucket(bucketItems).Bucket(key(workspaceID))
	if b == nil {
		return items, nil
	}
	err := b.ForEach(func(_, v []byte) error {
		var item store.Item
		if err := json.Unmarshal(v, &item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: decode items: %w", err)
	}
	slices.SortFunc(items, func(a, b store.Item) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return items, nil
}

var _ store.Store = (*Store)(nil)
