// Package hierarchy turns the flat org projection into a reporting forest.
package hierarchy

import (
	"github.com/gartstein/ems/internal/ems/models"
	"github.com/google/uuid"
)

type Kind string

const (
	KindRoot     Kind = "root"
	KindInterior Kind = "interior"
	KindLeaf     Kind = "leaf"
	KindOrphan   Kind = "orphan"
)

// OrphanLevel marks nodes that are not reachable from any root.
const OrphanLevel = -1

type Node struct {
	models.OrgEntry
	Level int  `json:"level"`
	Kind  Kind `json:"kind"`
}

// Edge points from a manager to a direct report.
type Edge struct {
	From uuid.UUID `json:"from"`
	To   uuid.UUID `json:"to"`
}

type Forest struct {
	Nodes []Node      `json:"nodes"`
	Edges []Edge      `json:"edges"`
	Roots []uuid.UUID `json:"roots"`
}

// Build lays out the visible part of universe. Visibility is decided by
// filter; managers outside the visible set promote their reports to roots,
// while references to employees missing from universe make orphans.
// Nodes keep the order of universe, first occurrence wins for duplicates.
func Build(universe []models.OrgEntry, filter models.OrgFilter) Forest {
	known := make(map[uuid.UUID]struct{}, len(universe))
	for _, entry := range universe {
		known[entry.ID] = struct{}{}
	}

	var visible []models.OrgEntry
	index := make(map[uuid.UUID]int)
	for _, entry := range universe {
		if _, dup := index[entry.ID]; dup {
			continue
		}
		if !filter.Matches(entry) {
			continue
		}
		if entry.Manager != nil && *entry.Manager == entry.ID {
			entry.Manager = nil
		}
		index[entry.ID] = len(visible)
		visible = append(visible, entry)
	}

	children := make(map[uuid.UUID][]uuid.UUID)
	var roots []uuid.UUID
	for _, entry := range visible {
		switch {
		case entry.Manager == nil:
			roots = append(roots, entry.ID)
		case isVisible(index, *entry.Manager):
			children[*entry.Manager] = append(children[*entry.Manager], entry.ID)
		case isKnown(known, *entry.Manager):
			roots = append(roots, entry.ID)
		}
	}

	levels := make(map[uuid.UUID]int, len(visible))
	edges := make([]Edge, 0, len(visible))
	for _, root := range roots {
		edges = walk(root, children, levels, edges)
	}

	forest := Forest{
		Nodes: make([]Node, 0, len(visible)),
		Edges: edges,
		Roots: make([]uuid.UUID, 0, len(roots)),
	}
	forest.Roots = append(forest.Roots, roots...)
	for _, entry := range visible {
		node := Node{OrgEntry: entry, Level: OrphanLevel, Kind: KindOrphan}
		if level, ok := levels[entry.ID]; ok {
			node.Level = level
			node.Kind = kindOf(level, len(children[entry.ID]) > 0)
		}
		forest.Nodes = append(forest.Nodes, node)
	}
	return forest
}

// walk runs an iterative depth-first traversal from root, emitting one
// edge per step in preorder. Already visited nodes are skipped.
func walk(root uuid.UUID, children map[uuid.UUID][]uuid.UUID, levels map[uuid.UUID]int, edges []Edge) []Edge {
	if _, seen := levels[root]; seen {
		return edges
	}
	type frame struct {
		id     uuid.UUID
		parent uuid.UUID
		level  int
	}

	levels[root] = 0
	stack := []frame{}
	push := func(parent uuid.UUID, level int) {
		kids := children[parent]
		// Reverse so the first child is popped first.
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: kids[i], parent: parent, level: level})
		}
	}
	push(root, 1)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := levels[top.id]; seen {
			continue
		}
		levels[top.id] = top.level
		edges = append(edges, Edge{From: top.parent, To: top.id})
		push(top.id, top.level+1)
	}
	return edges
}

func kindOf(level int, hasChildren bool) Kind {
	switch {
	case level == 0:
		return KindRoot
	case hasChildren:
		return KindInterior
	default:
		return KindLeaf
	}
}

func isVisible(index map[uuid.UUID]int, id uuid.UUID) bool {
	_, ok := index[id]
	return ok
}

func isKnown(known map[uuid.UUID]struct{}, id uuid.UUID) bool {
	_, ok := known[id]
	return ok
}
