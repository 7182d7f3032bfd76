// Package memstore is an in-process implementation of database.Store.
// It serves the "memory" database driver and the service level tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"fylr/internal/database"
	"fylr/internal/models"
)

type Store struct {
	mu sync.Mutex
	st *state
}

var _ database.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// ExecTx serialises transactions and restores the previous state when fn fails.
func (s *Store) ExecTx(ctx context.Context, fn func(database.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.st); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Nodes returns a copy of every stored row, for inspection in tests.
func (s *Store) Nodes() []models.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]models.Node, 0, len(s.st.nodes))
	for _, n := range s.st.nodes {
		nodes = append(nodes, copyNode(n))
	}
	sortNodes(nodes)
	return nodes
}

func (s *Store) CreateNode(ctx context.Context, arg database.CreateNodeParams) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateNode(ctx, arg)
}

func (s *Store) GetNodeByID(ctx context.Context, id string, ownerID string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetNodeByID(ctx, id, ownerID)
}

func (s *Store) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListChildren(ctx, ownerID, parentID)
}

func (s *Store) ListChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListChildrenOf(ctx, ownerID, parentIDs)
}

func (s *Store) ListTrash(ctx context.Context, ownerID string) ([]models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListTrash(ctx, ownerID)
}

func (s *Store) ListStarred(ctx context.Context, ownerID string) ([]models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListStarred(ctx, ownerID)
}

func (s *Store) SetTrash(ctx context.Context, id string, ownerID string, isTrash bool) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SetTrash(ctx, id, ownerID, isTrash)
}

func (s *Store) SetTrashBulk(ctx context.Context, ownerID string, ids []string, isTrash bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SetTrashBulk(ctx, ownerID, ids, isTrash)
}

func (s *Store) SetStarred(ctx context.Context, id string, ownerID string, isStarred bool) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SetStarred(ctx, id, ownerID, isStarred)
}

func (s *Store) RenameNode(ctx context.Context, id string, ownerID string, name string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.RenameNode(ctx, id, ownerID, name)
}

func (s *Store) MoveNode(ctx context.Context, id string, ownerID string, parentID *string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.MoveNode(ctx, id, ownerID, parentID)
}

func (s *Store) DeleteNode(ctx context.Context, id string, ownerID string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteNode(ctx, id, ownerID)
}

func (s *Store) DeleteTrashed(ctx context.Context, ownerID string) ([]models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteTrashed(ctx, ownerID)
}

func (s *Store) LogEvent(ctx context.Context, ownerID string, eventType string, payload interface{}) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.LogEvent(ctx, ownerID, eventType, payload)
}

func (s *Store) GetEventsSince(ctx context.Context, ownerID string, sinceID int64) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetEventsSince(ctx, ownerID, sinceID)
}

// state holds the rows. Its methods assume the caller holds Store.mu.
type state struct {
	nodes       map[string]models.Node
	events      []models.Event
	nextEventID int64
}

func newState() *state {
	return &state{nodes: make(map[string]models.Node)}
}

func (st *state) clone() *state {
	c := &state{
		nodes:       make(map[string]models.Node, len(st.nodes)),
		events:      make([]models.Event, len(st.events)),
		nextEventID: st.nextEventID,
	}
	for id, n := range st.nodes {
		c.nodes[id] = copyNode(n)
	}
	copy(c.events, st.events)
	return c
}

func (st *state) CreateNode(ctx context.Context, arg database.CreateNodeParams) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, exists := st.nodes[arg.ID]; exists {
		return nil, fmt.Errorf("duplicate file id %q", arg.ID)
	}
	if arg.Name == "" {
		return nil, fmt.Errorf("file name must not be empty")
	}

	now := time.Now()
	node := models.Node{
		ID:           arg.ID,
		Name:         arg.Name,
		Path:         arg.Path,
		Size:         arg.Size,
		ContentType:  arg.ContentType,
		StorageURL:   arg.StorageURL,
		ThumbnailURL: copyString(arg.ThumbnailURL),
		OwnerID:      arg.OwnerID,
		ParentID:     copyString(arg.ParentID),
		IsFolder:     arg.IsFolder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	st.nodes[node.ID] = node

	out := copyNode(node)
	return &out, nil
}

func (st *state) GetNodeByID(ctx context.Context, id string, ownerID string) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := st.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return nil, nil
	}
	out := copyNode(node)
	return &out, nil
}

func (st *state) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]models.Node, error) {
	return st.filter(ctx, func(n *models.Node) bool {
		if n.OwnerID != ownerID {
			return false
		}
		if parentID == nil {
			return n.ParentID == nil
		}
		return n.ParentID != nil && *n.ParentID == *parentID
	})
}

func (st *state) ListChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]models.Node, error) {
	parents := make(map[string]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = struct{}{}
	}
	return st.filter(ctx, func(n *models.Node) bool {
		if n.OwnerID != ownerID || n.ParentID == nil {
			return false
		}
		_, ok := parents[*n.ParentID]
		return ok
	})
}

func (st *state) ListTrash(ctx context.Context, ownerID string) ([]models.Node, error) {
	return st.filter(ctx, func(n *models.Node) bool {
		return n.OwnerID == ownerID && n.IsTrash
	})
}

func (st *state) ListStarred(ctx context.Context, ownerID string) ([]models.Node, error) {
	return st.filter(ctx, func(n *models.Node) bool {
		return n.OwnerID == ownerID && n.IsStarred && !n.IsTrash
	})
}

func (st *state) SetTrash(ctx context.Context, id string, ownerID string, isTrash bool) (*models.Node, error) {
	return st.update(ctx, id, ownerID, func(n *models.Node) {
		n.IsTrash = isTrash
	})
}

func (st *state) SetTrashBulk(ctx context.Context, ownerID string, ids []string, isTrash bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var affected int64
	for _, id := range ids {
		node, ok := st.nodes[id]
		if !ok || node.OwnerID != ownerID {
			continue
		}
		node.IsTrash = isTrash
		st.nodes[id] = node
		affected++
	}
	return affected, nil
}

func (st *state) SetStarred(ctx context.Context, id string, ownerID string, isStarred bool) (*models.Node, error) {
	return st.update(ctx, id, ownerID, func(n *models.Node) {
		n.IsStarred = isStarred
	})
}

func (st *state) RenameNode(ctx context.Context, id string, ownerID string, name string) (*models.Node, error) {
	return st.update(ctx, id, ownerID, func(n *models.Node) {
		n.Name = name
		n.UpdatedAt = time.Now()
	})
}

func (st *state) MoveNode(ctx context.Context, id string, ownerID string, parentID *string) (*models.Node, error) {
	return st.update(ctx, id, ownerID, func(n *models.Node) {
		n.ParentID = copyString(parentID)
		n.UpdatedAt = time.Now()
	})
}

func (st *state) DeleteNode(ctx context.Context, id string, ownerID string) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := st.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return nil, nil
	}
	delete(st.nodes, id)
	return &node, nil
}

func (st *state) DeleteTrashed(ctx context.Context, ownerID string) ([]models.Node, error) {
	deleted, err := st.filter(ctx, func(n *models.Node) bool {
		return n.OwnerID == ownerID && n.IsTrash
	})
	if err != nil {
		return nil, err
	}
	for _, n := range deleted {
		delete(st.nodes, n.ID)
	}
	return deleted, nil
}

func (st *state) LogEvent(ctx context.Context, ownerID string, eventType string, payload interface{}) (*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event payload: %w", eventType, err)
	}

	st.nextEventID++
	event := models.Event{
		ID:        st.nextEventID,
		OwnerID:   ownerID,
		EventType: eventType,
		EventTime: time.Now(),
		Payload:   payloadBytes,
	}
	st.events = append(st.events, event)
	return &event, nil
}

func (st *state) GetEventsSince(ctx context.Context, ownerID string, sinceID int64) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := []models.Event{}
	for _, e := range st.events {
		if e.OwnerID == ownerID && e.ID > sinceID {
			events = append(events, e)
			if len(events) == 100 {
				break
			}
		}
	}
	return events, nil
}

func (st *state) filter(ctx context.Context, keep func(*models.Node) bool) ([]models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes := []models.Node{}
	for _, n := range st.nodes {
		if keep(&n) {
			nodes = append(nodes, copyNode(n))
		}
	}
	sortNodes(nodes)
	return nodes, nil
}

func (st *state) update(ctx context.Context, id string, ownerID string, mutate func(*models.Node)) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := st.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return nil, nil
	}
	mutate(&node)
	st.nodes[id] = node
	out := copyNode(node)
	return &out, nil
}

// sortNodes orders folders first, then by name, matching the Postgres listing order.
func sortNodes(nodes []models.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsFolder != nodes[j].IsFolder {
			return nodes[i].IsFolder
		}
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func copyNode(n models.Node) models.Node {
	n.ParentID = copyString(n.ParentID)
	n.ThumbnailURL = copyString(n.ThumbnailURL)
	return n
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
