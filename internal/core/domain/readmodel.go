package domain

import "time"

// NodeSnapshot is the serializable, read-only view of one visible node.
// Handed to display layers and to external translators as "current state"
// context.
type NodeSnapshot struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	IsCollapsed bool           `json:"isCollapsed"`
	IsCompleted bool           `json:"isCompleted"`
	Children    []NodeSnapshot `json:"children,omitempty"`
}

// ChangeLogEntry is one displayable line derived from a stored event. A
// pure projection of the log, not a separate durable store.
type ChangeLogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Kind        EventKind `json:"kind"`
	NodeID      string    `json:"nodeId"`
	Title       string    `json:"title,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
	Position    *int      `json:"position,omitempty"`
	NewTitle    string    `json:"newTitle,omitempty"`
	OldTitle    string    `json:"oldTitle,omitempty"`
	NewParentID string    `json:"newParentId,omitempty"`
	NewPosition *int      `json:"newPosition,omitempty"`
	IsCompleted *bool     `json:"isCompleted,omitempty"`
}

// ChangeLogEntryFromEvent decodes one event into a display entry. titleOf
// resolves a node id to its current title (tombstoned nodes included, so
// deleted items still show their last known title); it may be nil.
func ChangeLogEntryFromEvent(e Event, titleOf func(id string) string) (ChangeLogEntry, error) {
	if titleOf == nil {
		titleOf = func(string) string { return "" }
	}

	entry := ChangeLogEntry{Timestamp: e.Time(), Kind: e.Kind}

	switch e.Kind {
	case EventInsertNode:
		var p InsertNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return ChangeLogEntry{}, err
		}
		entry.NodeID = p.NodeID
		entry.Title = p.Title
		entry.ParentID = p.ParentID
		pos := p.Position
		entry.Position = &pos
	case EventRenameNode:
		var p RenameNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return ChangeLogEntry{}, err
		}
		entry.NodeID = p.NodeID
		entry.NewTitle = p.NewTitle
		entry.OldTitle = p.OldTitle
	case EventDeleteNode:
		var p DeleteNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return ChangeLogEntry{}, err
		}
		entry.NodeID = p.NodeID
		entry.Title = titleOf(p.NodeID)
	case EventReparentNode:
		var p ReparentNodePayload
		if err := e.DecodePayload(&p); err != nil {
			return ChangeLogEntry{}, err
		}
		entry.NodeID = p.NodeID
		entry.Title = titleOf(p.NodeID)
		entry.NewParentID = p.NewParentID
		pos := p.NewPosition
		entry.NewPosition = &pos
	case EventToggleCollapse:
		var p ToggleCollapsePayload
		if err := e.DecodePayload(&p); err != nil {
			return ChangeLogEntry{}, err
		}
		entry.NodeID = p.NodeID
		entry.Title = titleOf(p.NodeID)
	case EventToggleComplete:
		var p ToggleCompletePayload
		if err := e.DecodePayload(&p); err != nil {
			return ChangeLogEntry{}, err
		}
		entry.NodeID = p.NodeID
		entry.Title = titleOf(p.NodeID)
		done := p.IsCompleted
		entry.IsCompleted = &done
	default:
		return ChangeLogEntry{}, ErrUnknownEventKind
	}

	return entry, nil
}
