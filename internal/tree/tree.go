// Package tree walks the owner-scoped folder hierarchy stored as a flat
// table with a parent back-reference.
package tree

import (
	"context"

	"fylr/internal/models"
)

type ChildLister interface {
	ListChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]models.Node, error)
}

type NodeGetter interface {
	GetNodeByID(ctx context.Context, id string, ownerID string) (*models.Node, error)
}

// Source is satisfied by the metadata store and by a transaction on it.
type Source interface {
	ChildLister
	NodeGetter
}

// DescendantIDs returns the ids of every node transitively contained in
// folderID, issuing one ListChildrenOf call per tree level after checking
// that ownerID owns the folder. The result is unordered and empty when the
// folder has no children, does not exist or belongs to someone else. Nodes
// already visited are skipped, so a corrupted parent chain cannot loop
// forever.
func DescendantIDs(ctx context.Context, src Source, ownerID string, folderID string) ([]string, error) {
	root, err := src.GetNodeByID(ctx, folderID, ownerID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return []string{}, nil
	}

	visited := map[string]struct{}{folderID: {}}
	ids := []string{}

	frontier := []string{folderID}
	for len(frontier) > 0 {
		children, err := src.ListChildrenOf(ctx, ownerID, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				continue
			}
			visited[child.ID] = struct{}{}
			ids = append(ids, child.ID)
			if child.IsFolder {
				next = append(next, child.ID)
			}
		}
		frontier = next
	}

	return ids, nil
}

// IsEffectivelyTrashed reports whether folderID or any of its ancestors has
// its own trash flag set. A nil folderID is the root and is never trashed;
// a missing or foreign ancestor ends the ascent with false.
func IsEffectivelyTrashed(ctx context.Context, src NodeGetter, ownerID string, folderID *string) (bool, error) {
	visited := make(map[string]struct{})

	for id := folderID; id != nil; {
		if _, seen := visited[*id]; seen {
			return false, nil
		}
		visited[*id] = struct{}{}

		node, err := src.GetNodeByID(ctx, *id, ownerID)
		if err != nil {
			return false, err
		}
		if node == nil {
			return false, nil
		}
		if node.IsTrash {
			return true, nil
		}
		id = node.ParentID
	}

	return false, nil
}

// ProjectTrashed returns copies of nodes with IsTrash forced to true. The
// input slice is left untouched.
func ProjectTrashed(nodes []models.Node) []models.Node {
	projected := make([]models.Node, len(nodes))
	for i, n := range nodes {
		n.IsTrash = true
		projected[i] = n
	}
	return projected
}
