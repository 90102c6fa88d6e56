package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/client/blobs"
	"github.com/dmitrijs2005/gophvault/internal/client/migrations"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/documents"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// RemoteOptions describe the remote stores.
type RemoteOptions struct {
	DSN  string
	Blob blobs.Options
}

// Configured reports whether both remote stores have enough settings.
func (o RemoteOptions) Configured() bool {
	return o.DSN != "" && o.Blob.Bucket != ""
}

var (
	newPool = pgxpool.New

	newBlobStore = func(ctx context.Context, o blobs.Options) (BlobStore, error) {
		return blobs.NewS3Store(ctx, o)
	}

	upRemote = migrations.UpRemote
)

// Connect returns Offline when o is not configured. Otherwise it builds a
// CloudClient; an unreachable database is only logged, since every later
// remote call reports its own failure.
func Connect(ctx context.Context, o RemoteOptions, log logging.Logger) (Client, error) {
	if !o.Configured() {
		log.Info(ctx, "remote sync not configured, running local only")
		return Offline{}, nil
	}

	pool, err := newPool(ctx, o.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)

	if err := upRemote(ctx, db); err != nil {
		log.Warn(ctx, "remote migrations not applied", "error", err)
	}

	store, err := newBlobStore(ctx, o.Blob)
	if err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}

	c := NewCloudClient(documents.NewPostgresRepository(db), store, documents.NewListener(pool, log), log)
	c.closers = append(c.closers,
		func() error { pool.Close(); return nil },
		db.Close,
	)
	return c, nil
}
