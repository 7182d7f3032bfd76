package files

import (
	"context"
	"testing"

	"fylr/internal/models"
	"fylr/internal/tree"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// growTree creates one node per choice, attaching it to a previously
// created folder or the root. Every third node is a file.
func growTree(t *testing.T, f *fixture, choices []int) []*models.Node {
	var nodes []*models.Node
	var folders []*models.Node

	for i, c := range choices {
		var parent *string
		if len(folders) > 0 {
			if pick := c % (len(folders) + 1); pick < len(folders) {
				parent = &folders[pick].ID
			}
		}
		if i%3 == 2 {
			nodes = append(nodes, f.file(t, "u1", "f.png", parent))
			continue
		}
		folder := f.folder(t, "u1", "d", parent)
		folders = append(folders, folder)
		nodes = append(nodes, folder)
	}
	return nodes
}

func TestToggleTrash_CascadeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("toggle sets the subtree and nothing else, toggle again restores it", prop.ForAll(
		func(choices []int, target int) bool {
			ctx := context.Background()
			f := newFixture(t)
			nodes := growTree(t, f, choices)
			if len(nodes) == 0 {
				return true
			}
			picked := nodes[target%len(nodes)]

			descendants, err := tree.DescendantIDs(ctx, f.store, "u1", picked.ID)
			if err != nil {
				return false
			}
			inSubtree := map[string]bool{picked.ID: true}
			for _, id := range descendants {
				inSubtree[id] = true
			}

			if _, err := f.svc.ToggleTrash(ctx, "u1", picked.ID); err != nil {
				return false
			}
			for _, n := range f.store.Nodes() {
				if n.IsTrash != inSubtree[n.ID] {
					t.Logf("after trash: node %s is_trash=%v, in subtree=%v", n.ID, n.IsTrash, inSubtree[n.ID])
					return false
				}
			}

			if _, err := f.svc.ToggleTrash(ctx, "u1", picked.ID); err != nil {
				return false
			}
			for _, n := range f.store.Nodes() {
				if n.IsTrash {
					t.Logf("after restore: node %s is still trashed", n.ID)
					return false
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, 32)),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
