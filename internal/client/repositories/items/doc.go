// Package items is the local durable store of the vault: the whole item
// collection kept in one SQLite table.
//
// The store is snapshot-oriented. ReplaceAll overwrites the complete record
// set inside a single transaction and ReadAll returns it newest first, so a
// crash mid-write leaves the previous snapshot intact. Guarding against an
// accidental empty overwrite is the caller's responsibility (see
// services.Vault).
package items
