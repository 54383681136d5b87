package domain

import "fmt"

// Node is a single item in the projected hierarchy. Nodes are created and
// mutated only as a side effect of applying Events; there is no direct
// node-mutation API.
type Node struct {
	// ID is the stable, caller-opaque identifier.
	ID string

	// Title is the display text.
	Title string

	// Children are the owned child nodes in sibling order. The parent
	// relationship is implicit in tree position; any "find parent of X"
	// query walks the tree.
	Children []*Node

	// IsCollapsed is a display-only flag.
	IsCollapsed bool

	// IsCompleted marks the item done. Reversible.
	IsCompleted bool

	// IsDeleted is the tombstone flag. Deletion marks rather than
	// physically removes, so later events referencing the id never have
	// to special-case "no such node". Terminal: no event resurrects a
	// tombstoned node; undo the batch instead.
	IsDeleted bool
}

// NodeTree is the materialized projection of the event log: a forest of
// root nodes plus a flat id lookup index for O(1) access. The index and
// the tree never diverge; every mutation updates both.
//
// NodeTree is not safe for concurrent use. All mutation is serialized
// through a single logical writer (the outline service).
type NodeTree struct {
	roots []*Node
	index map[string]*Node
}

// NewNodeTree creates an empty projection.
func NewNodeTree() *NodeTree {
	return &NodeTree{index: make(map[string]*Node)}
}

// RebuildFromEvents resets the tree to empty, then applies every event in
// the given order (the slice must already be sorted by sequence). Used at
// startup and after any undo. It never fails: malformed or unknown events
// are skipped, and the number of skips is returned for diagnostics.
func (t *NodeTree) RebuildFromEvents(events []Event) int {
	t.roots = nil
	t.index = make(map[string]*Node)

	skipped := 0
	for _, e := range events {
		if err := t.ApplyEvent(e); err != nil {
			skipped++
		}
	}
	return skipped
}

// ApplyEvent applies exactly one event to the current tree state. For any
// prefix of an event sequence this is equivalent to RebuildFromEvents on
// that same prefix.
//
// An event whose target node is unknown to the projection is a no-op, not
// an error: remote sync may deliver events out of causal order. The
// returned error is diagnostic only (malformed payload or unknown kind)
// and leaves the tree untouched.
func (t *NodeTree) ApplyEvent(e Event) error {
	switch e.Kind {
	case EventInsertNode:
		var p InsertNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return err
		}
		return t.applyInsert(p)
	case EventRenameNode:
		var p RenameNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return err
		}
		t.applyRename(p)
		return nil
	case EventDeleteNode:
		var p DeleteNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return err
		}
		t.applyDelete(p)
		return nil
	case EventReparentNode:
		var p ReparentNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return err
		}
		t.applyReparent(p)
		return nil
	case EventToggleCollapse:
		var p ToggleCollapsePayload
		if err := e.DecodePayload(&p); err != nil {
			return err
		}
		if n, ok := t.index[p.NodeID]; ok {
			n.IsCollapsed = !n.IsCollapsed
		}
		return nil
	case EventToggleComplete:
		var p ToggleCompletePayload
		if err := e.DecodePayload(&p); err != nil {
			return err
		}
		if n, ok := t.index[p.NodeID]; ok {
			n.IsCompleted = p.IsCompleted
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}
}

func (t *NodeTree) applyInsert(p InsertNodePayload) error {
	if p.NodeID == "" {
		return fmt.Errorf("%w: insert without nodeId", ErrMalformedPayload)
	}
	if _, exists := t.index[p.NodeID]; exists {
		// Duplicate insert (replayed or re-delivered event). No-op.
		return nil
	}

	node := &Node{ID: p.NodeID, Title: p.Title}

	if p.ParentID == "" {
		t.roots = insertAt(t.roots, node, p.Position)
	} else if parent, ok := t.index[p.ParentID]; ok {
		parent.Children = insertAt(parent.Children, node, p.Position)
	} else {
		// Parent unknown to the projection (out-of-order delivery or a
		// translator typo). Keep the node visible at root; a later full
		// rebuild with the parent present restores the intended shape.
		t.roots = insertAt(t.roots, node, AppendPosition)
	}

	t.index[p.NodeID] = node
	return nil
}

func (t *NodeTree) applyRename(p RenameNodePayload) {
	// Tombstoned nodes rename too: the change log shows a deleted node's
	// last known title.
	if n, ok := t.index[p.NodeID]; ok {
		n.Title = p.NewTitle
	}
}

func (t *NodeTree) applyDelete(p DeleteNodePayload) {
	n, ok := t.index[p.NodeID]
	if !ok {
		return
	}
	markDeleted(n)
}

func (t *NodeTree) applyReparent(p ReparentNodePayload) {
	n, ok := t.index[p.NodeID]
	if !ok {
		return
	}

	var newParent *Node
	if p.NewParentID != "" {
		newParent, ok = t.index[p.NewParentID]
		if !ok {
			// Target parent unknown: keep the node where it is rather
			// than guess at the intended destination.
			return
		}
		if newParent == n || isDescendant(n, newParent) {
			// Would create a cycle.
			return
		}
	}

	t.detach(n)
	if newParent == nil {
		t.roots = insertAt(t.roots, n, p.NewPosition)
	} else {
		newParent.Children = insertAt(newParent.Children, n, p.NewPosition)
	}
}

// FindNode returns the node for id, or nil if the id is unknown or the
// node is tombstoned.
func (t *NodeTree) FindNode(id string) *Node {
	n, ok := t.index[id]
	if !ok || n.IsDeleted {
		return nil
	}
	return n
}

// Lookup returns the node for id including tombstoned nodes, or nil if the
// id is unknown. Callers that want deleted nodes' last known state (the
// change log) use this instead of FindNode.
func (t *NodeTree) Lookup(id string) *Node {
	return t.index[id]
}

// AllNodeCount returns the count of all nodes including tombstoned ones.
// Diagnostic use.
func (t *NodeTree) AllNodeCount() int {
	return len(t.index)
}

// Snapshot returns a read-only copy of the visible forest, with tombstoned
// subtrees filtered out. Safe to hand to display layers or an external
// translator as "current state" context.
func (t *NodeTree) Snapshot() []NodeSnapshot {
	return snapshotNodes(t.roots)
}

// SnapshotNode returns a read-only copy of the subtree rooted at id, or
// nil when the id is unknown or tombstoned.
func (t *NodeTree) SnapshotNode(id string) *NodeSnapshot {
	n := t.FindNode(id)
	if n == nil {
		return nil
	}
	snap := NodeSnapshot{
		ID:          n.ID,
		Title:       n.Title,
		IsCollapsed: n.IsCollapsed,
		IsCompleted: n.IsCompleted,
		Children:    snapshotNodes(n.Children),
	}
	return &snap
}

// FindParent walks the tree and returns the parent of id, or nil when the
// node is a root or unknown.
func (t *NodeTree) FindParent(id string) *Node {
	if _, ok := t.index[id]; !ok {
		return nil
	}
	return findParentIn(t.roots, id)
}

// detach removes n from its current sibling list (roots or a parent's
// children) without touching the index.
func (t *NodeTree) detach(n *Node) {
	if removed, ok := removeFrom(t.roots, n); ok {
		t.roots = removed
		return
	}
	if parent := findParentIn(t.roots, n.ID); parent != nil {
		parent.Children, _ = removeFrom(parent.Children, n)
	}
}

func markDeleted(n *Node) {
	n.IsDeleted = true
	for _, c := range n.Children {
		markDeleted(c)
	}
}

func isDescendant(root, candidate *Node) bool {
	for _, c := range root.Children {
		if c == candidate || isDescendant(c, candidate) {
			return true
		}
	}
	return false
}

func insertAt(siblings []*Node, n *Node, position int) []*Node {
	if position < 0 || position > len(siblings) {
		position = len(siblings)
	}
	siblings = append(siblings, nil)
	copy(siblings[position+1:], siblings[position:])
	siblings[position] = n
	return siblings
}

func removeFrom(siblings []*Node, n *Node) ([]*Node, bool) {
	for i, s := range siblings {
		if s == n {
			return append(siblings[:i], siblings[i+1:]...), true
		}
	}
	return siblings, false
}

func findParentIn(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		for _, c := range n.Children {
			if c.ID == id {
				return n
			}
		}
		if found := findParentIn(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func snapshotNodes(nodes []*Node) []NodeSnapshot {
	var out []NodeSnapshot
	for _, n := range nodes {
		if n.IsDeleted {
			continue
		}
		out = append(out, NodeSnapshot{
			ID:          n.ID,
			Title:       n.Title,
			IsCollapsed: n.IsCollapsed,
			IsCompleted: n.IsCompleted,
			Children:    snapshotNodes(n.Children),
		})
	}
	return out
}
