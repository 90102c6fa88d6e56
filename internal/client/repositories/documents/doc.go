// Package documents is the document half of the remote store: one row per
// vault item in the PostgreSQL table vault_items, plus a Listener that turns
// the table's NOTIFY trigger into change callbacks.
//
// File payload bytes never live here; a promoted file row only carries the
// blob key in payload_ref (see package blobs).
package documents
