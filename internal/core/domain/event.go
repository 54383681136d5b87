package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies the structural change an Event records.
type EventKind string

// Event kinds. The string values are persisted in the log store and must
// never be renamed.
const (
	EventInsertNode     EventKind = "InsertNode"
	EventRenameNode     EventKind = "RenameNode"
	EventDeleteNode     EventKind = "DeleteNode"
	EventReparentNode   EventKind = "ReparentNode"
	EventToggleCollapse EventKind = "ToggleCollapse"
	EventToggleComplete EventKind = "ToggleComplete"
)

// Valid reports whether k is a kind known to this build.
func (k EventKind) Valid() bool {
	switch k {
	case EventInsertNode, EventRenameNode, EventDeleteNode,
		EventReparentNode, EventToggleCollapse, EventToggleComplete:
		return true
	}
	return false
}

// AppendPosition is the sentinel position meaning "append after the last
// sibling". Any negative position is treated the same way.
const AppendPosition = -1

// Event is one immutable record in the append-only log. Events are never
// mutated or physically reordered; the log's iteration order is always by
// Sequence ascending. Events are only ever physically removed by undo
// deleting an entire batch.
type Event struct {
	// Sequence is a monotonically comparable timestamp (nanoseconds since
	// the Unix epoch) used for total ordering across local and remote
	// writers. Ties are broken by insertion order in the log store.
	Sequence int64

	// Kind selects the payload shape.
	Kind EventKind

	// Payload is the self-describing JSON body for Kind. A payload that
	// fails to decode is skipped during apply, never fatal.
	Payload json.RawMessage

	// BatchID groups the events of one logical user action. Undo removes
	// a whole batch at once.
	BatchID string
}

// Time returns the sequence timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.Unix(0, e.Sequence)
}

// DecodePayload unmarshals the event body into dst.
func (e Event) DecodePayload(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// InsertNodePayload is the body of an InsertNode event.
type InsertNodePayload struct {
	NodeID string `json:"nodeId"`
	Title  string `json:"title"`

	// ParentID is the stable id of the parent node. Empty means root.
	ParentID string `json:"parentId,omitempty"`

	// Position is the insertion index among siblings. AppendPosition or
	// any index past the end appends.
	Position int `json:"position"`
}

// RenameNodePayload is the body of a RenameNode event.
type RenameNodePayload struct {
	NodeID   string `json:"nodeId"`
	NewTitle string `json:"newTitle"`

	// OldTitle snapshots the title at translation time for change-log
	// display. It plays no part in applying the event.
	OldTitle string `json:"oldTitle,omitempty"`
}

// DeleteNodePayload is the body of a DeleteNode event. Deletion tombstones
// the node and all of its current descendants.
type DeleteNodePayload struct {
	NodeID string `json:"nodeId"`
}

// ReparentNodePayload is the body of a ReparentNode event.
type ReparentNodePayload struct {
	NodeID string `json:"nodeId"`

	// NewParentID is the stable id of the new parent. Empty means move
	// to root.
	NewParentID string `json:"newParentId,omitempty"`

	// NewPosition is the insertion index among the new siblings.
	NewPosition int `json:"newPosition"`
}

// ToggleCollapsePayload is the body of a ToggleCollapse event. Collapse is
// a display-only flip; it does not affect hierarchy.
type ToggleCollapsePayload struct {
	NodeID string `json:"nodeId"`
}

// ToggleCompletePayload is the body of a ToggleComplete event. It carries
// the explicit new value, not a flip, so replay stays idempotent even if
// the same event is applied twice.
type ToggleCompletePayload struct {
	NodeID      string `json:"nodeId"`
	IsCompleted bool   `json:"isCompleted"`
}

// NewInsertNode builds an InsertNode event.
func NewInsertNode(seq int64, batchID, nodeID, title, parentID string, position int) Event {
	return newEvent(seq, batchID, EventInsertNode, InsertNodePayload{
		NodeID:   nodeID,
		Title:    title,
		ParentID: parentID,
		Position: position,
	})
}

// NewRenameNode builds a RenameNode event.
func NewRenameNode(seq int64, batchID, nodeID, newTitle, oldTitle string) Event {
	return newEvent(seq, batchID, EventRenameNode, RenameNodePayload{
		NodeID:   nodeID,
		NewTitle: newTitle,
		OldTitle: oldTitle,
	})
}

// NewDeleteNode builds a DeleteNode event.
func NewDeleteNode(seq int64, batchID, nodeID string) Event {
	return newEvent(seq, batchID, EventDeleteNode, DeleteNodePayload{NodeID: nodeID})
}

// NewReparentNode builds a ReparentNode event.
func NewReparentNode(seq int64, batchID, nodeID, newParentID string, newPosition int) Event {
	return newEvent(seq, batchID, EventReparentNode, ReparentNodePayload{
		NodeID:      nodeID,
		NewParentID: newParentID,
		NewPosition: newPosition,
	})
}

// NewToggleCollapse builds a ToggleCollapse event.
func NewToggleCollapse(seq int64, batchID, nodeID string) Event {
	return newEvent(seq, batchID, EventToggleCollapse, ToggleCollapsePayload{NodeID: nodeID})
}

// NewToggleComplete builds a ToggleComplete event.
func NewToggleComplete(seq int64, batchID, nodeID string, isCompleted bool) Event {
	return newEvent(seq, batchID, EventToggleComplete, ToggleCompletePayload{
		NodeID:      nodeID,
		IsCompleted: isCompleted,
	})
}

func newEvent(seq int64, batchID string, kind EventKind, payload any) Event {
	// Marshalling a flat payload struct cannot fail.
	body, _ := json.Marshal(payload)
	return Event{
		Sequence: seq,
		Kind:     kind,
		Payload:  body,
		BatchID:  batchID,
	}
}
