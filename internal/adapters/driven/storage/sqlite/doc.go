// Package sqlite provides the durable event log on top of SQLite.
//
// The store persists each event as (sequence_ts, kind, payload, batch_id)
// with the payload kept as self-describing JSON bytes. Schema changes are
// applied via embedded .up.sql migrations tracked in a schema_migrations
// table.
//
// The store is pure persistence: it never touches the in-memory
// projection. The outline service feeds fetched events into the tree.
package sqlite
