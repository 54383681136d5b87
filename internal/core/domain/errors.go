package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Log Store Errors.

	// ErrDurableWrite indicates the event store could not persist an
	// append. When this error is returned no projection mutation has
	// occurred; the in-memory tree still matches what is on disk.
	ErrDurableWrite = errors.New("durable write failed")

	// Event Errors.

	// ErrMalformedPayload indicates an event payload could not be decoded.
	// The event is skipped during rebuild/apply and logged, never fatal.
	ErrMalformedPayload = errors.New("malformed event payload")

	// ErrUnknownEventKind indicates an event kind not known to this build.
	// Such events are skipped so newer log entries never block loading.
	ErrUnknownEventKind = errors.New("unknown event kind")

	// Translation Errors.

	// ErrUnknownOperationKind indicates an operation kind the translator
	// does not recognise. The operation is skipped, the batch continues.
	ErrUnknownOperationKind = errors.New("unknown operation kind")

	// ErrInvalidOperation indicates an operation missing a required field
	// (e.g. an insert without a title). Skipped, the batch continues.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnresolvedParent indicates a parent reference that is neither a
	// batch-local caller id nor an existing node id. Only returned when
	// strict parent validation is enabled; the permissive default attaches
	// under the literal token instead.
	ErrUnresolvedParent = errors.New("unresolved parent reference")
)
