package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-labs/arbor-cli/internal/adapters/driven/storage/memory"
	"github.com/arbor-labs/arbor-cli/internal/core/domain"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driven"
)

func ptr[T any](v T) *T { return &v }

// failingStore rejects all appends with a durable-write failure.
type failingStore struct {
	*memory.EventStore
}

func (s *failingStore) Append(context.Context, []domain.Event, string) error {
	return fmt.Errorf("%w: disk full", domain.ErrDurableWrite)
}

func TestNewOutline(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	require.NotNil(t, svc)
	assert.False(t, svc.CanUndo())
	assert.Zero(t, svc.NodeCount())
}

// TestOutline_EndToEnd is the full scenario: translate, append, look up,
// undo, and verify the projection returns to its pre-batch state.
func TestOutline_EndToEnd(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "Weekend"},
		{Kind: domain.OpInsertNode, CallerNodeID: "b", Title: "Hike", ParentID: ptr("a")},
		{Kind: domain.OpInsertNode, CallerNodeID: "c", Title: "Groceries", ParentID: ptr("a")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EventCount)
	assert.Zero(t, summary.Skipped)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Weekend", snapshot[0].Title)

	weekend := svc.Find(snapshot[0].ID)
	require.NotNil(t, weekend)
	require.Len(t, weekend.Children, 2)
	assert.Equal(t, "Hike", weekend.Children[0].Title)
	assert.Equal(t, "Groceries", weekend.Children[1].Title)
	assert.Equal(t, 3, svc.NodeCount())

	undone, err := svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary.BatchID, undone)
	assert.Zero(t, svc.NodeCount())
	assert.Empty(t, svc.Snapshot())
	assert.False(t, svc.CanUndo())
}

// TestOutline_TranslatorIDStability: a caller id referenced by several
// operations resolves to exactly one freshly minted stable id.
func TestOutline_TranslatorIDStability(t *testing.T) {
	store := memory.NewEventStore()
	svc := NewOutline(store)
	ctx := context.Background()

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "p", Title: "Groceries"},
		{Kind: domain.OpInsertNode, CallerNodeID: "c1", Title: "Milk", ParentID: ptr("p")},
		{Kind: domain.OpInsertNode, CallerNodeID: "c2", Title: "Eggs", ParentID: ptr("p")},
	})
	require.NoError(t, err)

	events, err := store.FetchByBatch(ctx, summary.BatchID)
	require.NoError(t, err)
	require.Len(t, events, 3)

	var root domain.InsertNodePayload
	require.NoError(t, events[0].DecodePayload(&root))
	assert.Equal(t, "Groceries", root.Title)
	assert.Empty(t, root.ParentID)
	assert.NotEqual(t, "p", root.NodeID, "caller-local id must be replaced")
	assert.Len(t, root.NodeID, 8)

	for _, e := range events[1:] {
		var child domain.InsertNodePayload
		require.NoError(t, e.DecodePayload(&child))
		assert.Equal(t, root.NodeID, child.ParentID, "both children share the minted parent id")
		assert.NotEqual(t, "p", child.ParentID)
	}
}

func TestOutline_RenameSnapshotsOldTitle(t *testing.T) {
	store := memory.NewEventStore()
	svc := NewOutline(store)
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "Shoping"},
	})
	require.NoError(t, err)
	id := svc.Snapshot()[0].ID

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpRenameNode, CallerNodeID: id, Title: "Shopping"},
	})
	require.NoError(t, err)

	events, err := store.FetchByBatch(ctx, summary.BatchID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	var p domain.RenameNodePayload
	require.NoError(t, events[0].DecodePayload(&p))
	assert.Equal(t, "Shopping", p.NewTitle)
	assert.Equal(t, "Shoping", p.OldTitle)
	assert.Equal(t, "Shopping", svc.Find(id).Title)
}

func TestOutline_RenameResolvesBatchLocalID(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	// Insert and rename in the same batch, by caller id.
	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "x", Title: "draft"},
		{Kind: domain.OpRenameNode, CallerNodeID: "x", Title: "final"},
	})
	require.NoError(t, err)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "final", snapshot[0].Title)
}

// TestOutline_MissingFieldSkip: an invalid operation produces zero events
// but never blocks the rest of its batch.
func TestOutline_MissingFieldSkip(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpRenameNode, CallerNodeID: "a"}, // empty title
		{Kind: domain.OpInsertNode, CallerNodeID: "b", Title: "kept"},
		{Kind: domain.OpInsertNode, CallerNodeID: "c"}, // empty title
		{Kind: domain.OperationKind("explodeNode"), CallerNodeID: "d"},
		{Kind: domain.OpReparentNode, CallerNodeID: "b"}, // missing parentId
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.EventCount)
	assert.Equal(t, 4, summary.Skipped)
	require.Len(t, svc.Snapshot(), 1)
	assert.Equal(t, "kept", svc.Snapshot()[0].Title)
}

func TestOutline_EmptyBatchRecordsNoUndo(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a"}, // skipped: no title
	})
	require.NoError(t, err)
	assert.Zero(t, summary.EventCount)
	assert.Equal(t, 1, summary.Skipped)
	assert.False(t, svc.CanUndo())
}

func TestOutline_ReparentToRootMustBeExplicit(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "p", Title: "parent"},
		{Kind: domain.OpInsertNode, CallerNodeID: "c", Title: "child", ParentID: ptr("p")},
	})
	require.NoError(t, err)
	childID := svc.Snapshot()[0].Children[0].ID

	// Nil parent is an incomplete operation, skipped.
	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpReparentNode, CallerNodeID: childID},
	})
	require.NoError(t, err)
	assert.Zero(t, summary.EventCount)
	require.Len(t, svc.Snapshot()[0].Children, 1)

	// An explicit empty parent moves to root.
	summary, err = svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpReparentNode, CallerNodeID: childID, ParentID: ptr(""), Position: ptr(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventCount)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "child", snapshot[0].Title)
}

// TestOutline_PermissiveParentFallback preserves the source behaviour: an
// unresolved parent token is taken verbatim as a stable id, and the
// projection parks the node at root until that parent materializes.
func TestOutline_PermissiveParentFallback(t *testing.T) {
	store := memory.NewEventStore()
	svc := NewOutline(store)
	ctx := context.Background()

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "orphan", ParentID: ptr("never-seen")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventCount)

	events, err := store.FetchByBatch(ctx, summary.BatchID)
	require.NoError(t, err)
	var p domain.InsertNodePayload
	require.NoError(t, events[0].DecodePayload(&p))
	assert.Equal(t, "never-seen", p.ParentID)

	require.Len(t, svc.Snapshot(), 1)
}

func TestOutline_StrictParentsRejectsUnresolved(t *testing.T) {
	svc := NewOutline(memory.NewEventStore(), WithStrictParents(true))
	ctx := context.Background()

	summary, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "orphan", ParentID: ptr("never-seen")},
	})
	require.NoError(t, err)
	assert.Zero(t, summary.EventCount)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, svc.Snapshot())

	// Batch-local and pre-existing parents still resolve.
	summary, err = svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "p", Title: "parent"},
		{Kind: domain.OpInsertNode, CallerNodeID: "c", Title: "child", ParentID: ptr("p")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EventCount)

	existing := svc.Snapshot()[0].ID
	summary, err = svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "d", Title: "sibling", ParentID: ptr(existing)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventCount)
}

// TestOutline_BatchUndoCorrectness: removing a non-tail batch and
// rebuilding yields the same tree as a log that never contained it.
func TestOutline_BatchUndoCorrectness(t *testing.T) {
	store := memory.NewEventStore()
	svc := NewOutline(store)
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "x", Title: "Project"},
	})
	require.NoError(t, err)
	rootID := svc.Snapshot()[0].ID

	b2, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "y", Title: "Subtask", ParentID: ptr(rootID)},
	})
	require.NoError(t, err)

	_, err = svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpRenameNode, CallerNodeID: rootID, Title: "Project v2"},
	})
	require.NoError(t, err)

	// Delete the middle batch directly, as undo would, and rebuild.
	require.NoError(t, store.DeleteBatch(ctx, b2.BatchID))
	require.NoError(t, svc.Load(ctx))

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Project v2", snapshot[0].Title, "later batch still applied")
	assert.Empty(t, snapshot[0].Children, "middle batch fully gone")
	assert.Equal(t, 1, svc.NodeCount())
}

func TestOutline_UndoEmptyIsNoop(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())

	undone, err := svc.Undo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, undone)
}

// TestOutline_ApplyRemoteRebuilds: a remote batch carrying an earlier
// timestamp than already-applied local events lands in its correct
// position after the mandatory full rebuild.
func TestOutline_ApplyRemoteRebuilds(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	// Local insert references a parent this device has never seen; the
	// projection parks it at root.
	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "c", Title: "child", ParentID: ptr("remote01")},
	})
	require.NoError(t, err)
	require.Len(t, svc.Snapshot(), 1)
	assert.Equal(t, "child", svc.Snapshot()[0].Title)

	// The parent arrives from another device with an earlier sequence.
	require.NoError(t, svc.ApplyRemote(ctx, []domain.Event{
		domain.NewInsertNode(1, "remote-batch", "remote01", "parent", "", domain.AppendPosition),
	}))

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "parent", snapshot[0].Title)
	require.Len(t, snapshot[0].Children, 1)
	assert.Equal(t, "child", snapshot[0].Children[0].Title)
}

func TestOutline_ApplyRemoteEmptyIsNoop(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	require.NoError(t, svc.ApplyRemote(context.Background(), nil))
}

func TestOutline_UndoSurvivesRemoteInterleaving(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	local, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "local"},
	})
	require.NoError(t, err)

	// Remote events append after the local batch in the store but carry
	// earlier timestamps.
	require.NoError(t, svc.ApplyRemote(ctx, []domain.Event{
		domain.NewInsertNode(1, "remote-batch", "remote01", "remote", "", domain.AppendPosition),
	}))

	undone, err := svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, local.BatchID, undone)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "remote", snapshot[0].Title, "remote batch untouched by undo")
}

// TestOutline_DurableWriteFailure: a failed append must leave the
// projection exactly as it was; memory never diverges from disk.
func TestOutline_DurableWriteFailure(t *testing.T) {
	svc := NewOutline(&failingStore{memory.NewEventStore()})
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "doomed"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDurableWrite)

	assert.Zero(t, svc.NodeCount())
	assert.Empty(t, svc.Snapshot())
	assert.False(t, svc.CanUndo(), "failed batches must not register for undo")
}

func TestOutline_LoadSkipsMalformedEvents(t *testing.T) {
	store := memory.NewEventStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, []domain.Event{
		domain.NewInsertNode(10, "", "n1", "good", "", domain.AppendPosition),
		{Sequence: 20, Kind: domain.EventInsertNode, Payload: []byte("{corrupt"), BatchID: "b"},
		domain.NewInsertNode(30, "", "n2", "also good", "", domain.AppendPosition),
	}, "b1"))

	svc := NewOutline(store)
	require.NoError(t, svc.Load(ctx))
	assert.Equal(t, 2, svc.NodeCount())
}

func TestOutline_ChangeLog(t *testing.T) {
	svc := NewOutline(memory.NewEventStore())
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "Weekend"},
		{Kind: domain.OpInsertNode, CallerNodeID: "b", Title: "Hike", ParentID: ptr("a")},
	})
	require.NoError(t, err)
	hikeID := svc.Snapshot()[0].Children[0].ID

	_, err = svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpDeleteNode, CallerNodeID: hikeID},
	})
	require.NoError(t, err)

	entries, err := svc.ChangeLog(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first: the delete leads, and it resolves the tombstoned
	// node's last known title.
	assert.Equal(t, domain.EventDeleteNode, entries[0].Kind)
	assert.Equal(t, "Hike", entries[0].Title)
	assert.Equal(t, domain.EventInsertNode, entries[2].Kind)
	assert.Equal(t, "Weekend", entries[2].Title)

	// Limit caps from the newest end.
	entries, err = svc.ChangeLog(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventDeleteNode, entries[0].Kind)
}

func TestOutline_ChangeLogSince(t *testing.T) {
	store := memory.NewEventStore()
	svc := NewOutline(store)
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "first"},
	})
	require.NoError(t, err)

	all, err := store.FetchAll(ctx)
	require.NoError(t, err)
	cutoff := all[len(all)-1].Sequence

	_, err = svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "b", Title: "second"},
	})
	require.NoError(t, err)

	entries, err := svc.ChangeLog(ctx, cutoff, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Title)
}

func TestOutline_Reset(t *testing.T) {
	store := memory.NewEventStore()
	svc := NewOutline(store)
	ctx := context.Background()

	_, err := svc.ApplyOperations(ctx, []domain.Operation{
		{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: "gone soon"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))

	assert.Zero(t, svc.NodeCount())
	assert.False(t, svc.CanUndo())
	events, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOutline_UndoCapacityOption(t *testing.T) {
	svc := NewOutline(memory.NewEventStore(), WithUndoCapacity(2))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.ApplyOperations(ctx, []domain.Operation{
			{Kind: domain.OpInsertNode, CallerNodeID: "a", Title: fmt.Sprintf("item %d", i)},
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, svc.UndoDepth())
}

var _ driven.EventStore = (*failingStore)(nil)
