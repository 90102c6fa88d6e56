package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/client/migrations"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/metadata"

	_ "modernc.org/sqlite"
)

// Repositories groups the local stores sharing one SQLite database.
type Repositories struct {
	Items    items.Repository
	Metadata metadata.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Items:    items.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the local schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrations.UpLocal(ctx, db)
}

// InitDatabase opens (creating if needed) the SQLite file at dsn and
// migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
