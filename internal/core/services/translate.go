package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
	"github.com/arbor-labs/arbor-cli/internal/logger"
)

// stableIDLength is the width of minted node identifiers. The tokens are
// caller-opaque; eight hex characters keep change logs readable while
// leaving collisions to the same odds as a 32-bit hash.
const stableIDLength = 8

// newStableID mints a fixed-width node identifier.
func newStableID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:stableIDLength]
}

// newBatchID mints the id shared by all events of one logical action.
func newBatchID() string {
	return uuid.NewString()
}

// translate converts a batch of loosely-specified operations into
// well-formed events sharing batchID. Caller-chosen node ids are mapped
// lazily to freshly minted stable ids the first time each one is seen in
// an insert, so a parent referenced by several children resolves to the
// same stable node. Invalid operations are skipped and logged; the batch
// always continues.
//
// The caller holds the outline write lock: translate reads the projection
// for title snapshots and, in strict mode, for parent validation.
func (s *Outline) translate(ops []domain.Operation, batchID string) (events []domain.Event, skipped int) {
	// callerNodeID -> minted stable id, scoped to this batch.
	minted := make(map[string]string)

	resolve := func(token string) string {
		if stable, ok := minted[token]; ok {
			return stable
		}
		// Not created in this batch: the token is taken verbatim as the
		// stable id of a pre-existing node.
		return token
	}

	// resolveParent applies the batch-first rule to a parent reference.
	// The permissive default attaches under the literal token even when
	// the projection has never seen it; strict mode rejects instead.
	resolveParent := func(token string) (string, bool) {
		if token == "" {
			return "", true
		}
		if stable, ok := minted[token]; ok {
			return stable, true
		}
		if s.strictParents && s.tree.Lookup(token) == nil {
			return "", false
		}
		return token, true
	}

	for _, op := range ops {
		switch op.Kind {
		case domain.OpInsertNode:
			if op.Title == "" {
				logger.Warn("skipping insertNode %q: empty title", op.CallerNodeID)
				skipped++
				continue
			}

			parentID := ""
			if op.ParentID != nil {
				resolved, ok := resolveParent(*op.ParentID)
				if !ok {
					logger.Warn("skipping insertNode %q: unresolved parent %q", op.CallerNodeID, *op.ParentID)
					skipped++
					continue
				}
				parentID = resolved
			}

			stable, ok := minted[op.CallerNodeID]
			if !ok {
				stable = newStableID()
				if op.CallerNodeID != "" {
					minted[op.CallerNodeID] = stable
				}
			}

			events = append(events, domain.NewInsertNode(
				s.seq.Next(), batchID, stable, op.Title, parentID, position(op.Position)))

		case domain.OpRenameNode:
			if op.Title == "" {
				logger.Warn("skipping renameNode %q: empty title", op.CallerNodeID)
				skipped++
				continue
			}

			target := resolve(op.CallerNodeID)
			oldTitle := ""
			if n := s.tree.Lookup(target); n != nil {
				oldTitle = n.Title
			}
			events = append(events, domain.NewRenameNode(
				s.seq.Next(), batchID, target, op.Title, oldTitle))

		case domain.OpDeleteNode:
			events = append(events, domain.NewDeleteNode(
				s.seq.Next(), batchID, resolve(op.CallerNodeID)))

		case domain.OpReparentNode:
			if op.ParentID == nil {
				// A nil parent is a valid *target* (root) only when the
				// operation says so explicitly with an empty string.
				logger.Warn("skipping reparentNode %q: missing parentId", op.CallerNodeID)
				skipped++
				continue
			}
			newParent, ok := resolveParent(*op.ParentID)
			if !ok {
				logger.Warn("skipping reparentNode %q: unresolved parent %q", op.CallerNodeID, *op.ParentID)
				skipped++
				continue
			}
			events = append(events, domain.NewReparentNode(
				s.seq.Next(), batchID, resolve(op.CallerNodeID), newParent, position(op.Position)))

		default:
			logger.Warn("skipping operation %q: unknown kind %q", op.CallerNodeID, op.Kind)
			skipped++
		}
	}

	return events, skipped
}

func position(p *int) int {
	if p == nil {
		return domain.AppendPosition
	}
	return *p
}
