package domain

// OperationKind identifies a caller-supplied intent.
type OperationKind string

// Operation kinds accepted from external translators. They deliberately
// use a different casing from event kinds: operations describe intent,
// events describe what happened.
const (
	OpInsertNode   OperationKind = "insertNode"
	OpRenameNode   OperationKind = "renameNode"
	OpDeleteNode   OperationKind = "deleteNode"
	OpReparentNode OperationKind = "reparentNode"
)

// Operation is one loosely-specified edit in a batch, typically produced
// by an external natural-language-to-structure translator.
//
// CallerNodeID is a caller-chosen token meaningful only within its batch,
// NOT a final stable id. An external translator cannot be trusted to mint
// globally-unique identifiers; only the translation layer does that, and
// exactly once per distinct caller id so a parent referenced by multiple
// children resolves to the same stable node.
type Operation struct {
	Kind         OperationKind `json:"kind"`
	CallerNodeID string        `json:"nodeId"`

	// Title is required for insertNode and renameNode.
	Title string `json:"title,omitempty"`

	// ParentID may be another operation's CallerNodeID within the same
	// batch, or the stable id of a pre-existing node. Nil means root for
	// insertNode. For reparentNode nil means the operation is incomplete
	// and is skipped: moving to root must be said explicitly with an
	// empty string, never defaulted.
	ParentID *string `json:"parentId,omitempty"`

	// Position is the insertion index among siblings. Nil appends.
	Position *int `json:"position,omitempty"`
}

// BatchSummary reports what a translated batch actually produced. The
// event count may be less than the input operation count: invalid
// operations are skipped, never abort the batch.
type BatchSummary struct {
	BatchID    string `json:"batchId"`
	EventCount int    `json:"eventCount"`
	Skipped    int    `json:"skipped"`
}
