package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/client/blobs"
	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/config"
	"github.com/dmitrijs2005/gophvault/internal/client/services"
	"github.com/dmitrijs2005/gophvault/internal/logging"

	_ "modernc.org/sqlite"
)

// Bootstrap wires the local store, the remote client and the services
// described by c into an App reading commands from stdin. The returned
// closer releases the remote connections and the database.
func Bootstrap(ctx context.Context, c *config.Config, log logging.Logger) (*App, io.Closer, error) {
	db, err := client.InitDatabase(ctx, c.LocalDBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, nil, err
	}
	repos := client.NewRepositories(db)

	remote, err := client.Connect(ctx, remoteOptions(c.Remote), log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	vault := services.NewVault(remote, repos.Items,
		services.NewLegacyImporter(repos.Metadata, log),
		services.WithPolicy(policy(c.Policy)),
		services.WithQuota(c.Policy.QuotaBytes),
		services.WithLogger(log),
		services.WithPushProgress(NewPushProgress(os.Stderr)),
	)
	auth := services.NewAuthService(repos.Metadata, c.MaxUnlockAttempts)

	app := NewApp(c, vault, auth, log, os.Stdin, os.Stdout)
	return app, closerFunc(func() error {
		return errors.Join(remote.Close(), db.Close())
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func policy(p config.PolicyConfig) services.Policy {
	return services.Policy{
		MaxItems:          p.MaxItems,
		MaxFileBytes:      p.MaxFileBytes,
		MaxNoteChars:      p.MaxNoteChars,
		AllowedMediaTypes: p.AllowedMediaTypes,
	}
}

func remoteOptions(r config.RemoteConfig) client.RemoteOptions {
	return client.RemoteOptions{
		DSN: r.DSN,
		Blob: blobs.Options{
			Bucket:       r.S3Bucket,
			Region:       r.S3Region,
			BaseEndpoint: r.S3BaseEndpoint,
			AccessKey:    r.S3AccessKey,
			SecretKey:    r.S3SecretKey,
		},
	}
}
