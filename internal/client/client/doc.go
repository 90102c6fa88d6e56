// Package client contains the vault's storage adapters.
//
// # Overview
//
// The package provides:
//  1. The remote sync contract (see the Client interface): upsert, read and
//     delete single items, subscribe to full-collection pushes, and fetch
//     file payloads.
//  2. CloudClient, the configured implementation: documents in PostgreSQL
//     (package documents) and file bytes in an S3 bucket (package blobs).
//     Pushes come from PostgreSQL LISTEN/NOTIFY.
//  3. Offline, the implementation used when no remote is configured. Reads
//     return an empty collection and subscriptions never fire.
//  4. Local persistence bootstrap (InitDatabase, NewRepositories), wiring an
//     SQLite database and applying the embedded goose migrations.
//
// # Error Handling
//
// Remote conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrNotConfigured, ErrCloudWrite, ErrUnavailable,
// ErrPayloadUnavailable.
//
// # Concurrency
//
// CloudClient is safe for concurrent use. A Subscription callback runs on
// the listener goroutine; Cancel must not be called from inside it.
package client
