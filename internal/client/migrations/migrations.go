// Package migrations embeds the goose migrations of the local SQLite store
// and of the remote PostgreSQL document store.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed local/*.sql
var Local embed.FS

//go:embed remote/*.sql
var Remote embed.FS

const (
	LocalDir  = "local"
	RemoteDir = "remote"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// UpLocal applies the embedded SQLite migrations.
func UpLocal(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, Local, "sqlite3", LocalDir)
}

// UpRemote applies the embedded PostgreSQL migrations.
func UpRemote(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, Remote, "pgx", RemoteDir)
}

func up(ctx context.Context, db *sql.DB, fsys embed.FS, dialect, dir string) error {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect %s: %w", dialect, err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", dir, err)
	}
	return nil
}
