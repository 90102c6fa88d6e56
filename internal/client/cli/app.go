package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/config"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/services"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"golang.org/x/sync/errgroup"
)

// vaultService is the part of *services.Vault the CLI drives.
type vaultService interface {
	Open(ctx context.Context) error
	Close()
	AddNote(ctx context.Context, text string) (models.Item, error)
	AddFile(ctx context.Context, name, mediaType string, data []byte) (models.Item, error)
	ToggleImportant(ctx context.Context, id string) (models.Item, error)
	Delete(ctx context.Context, id string) error
	Find(f models.Filter) []models.Item
	Get(id string) (models.Item, error)
	Payload(ctx context.Context, id string) (models.Item, []byte, error)
	PayloadURL(ctx context.Context, id string) (string, error)
	Status() services.SyncStatus
	Usage() models.Usage
}

type App struct {
	config *config.Config
	vault  vaultService
	auth   services.AuthService
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu         sync.Mutex
	unlocked   bool
	opened     bool
	lastActive time.Time
}

func NewApp(c *config.Config, v vaultService, auth services.AuthService, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		vault:  v,
		auth:   auth,
		log:    log,
		reader: bufio.NewReader(in),
		out:    out,
		now:    time.Now,
	}
}

// Run unlocks the vault, opens it and serves the REPL until the user exits
// or ctx is cancelled. The idle watcher runs alongside the REPL.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to the vault (type 'help' for commands)")

	if err := a.Unlock(ctx); err != nil {
		return err
	}
	defer a.closeVault()

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		runREPL(gctx, a, a.getStatus, a.reader)
		return nil
	})
	g.Go(func() error {
		a.StartIdleWatcher(gctx, time.Second)
		return nil
	})

	return g.Wait()
}

func (a *App) isUnlocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unlocked
}

func (a *App) setUnlocked(v bool) {
	a.mu.Lock()
	a.unlocked = v
	a.lastActive = a.now()
	a.mu.Unlock()
}

// touch records user activity for the idle watcher.
func (a *App) touch() {
	a.mu.Lock()
	a.lastActive = a.now()
	a.mu.Unlock()
}

// open subscribes to pushes and runs the startup reconciliation unless the
// vault is already open. Local store faults are reported but leave the vault
// usable.
func (a *App) open(ctx context.Context) {
	a.mu.Lock()
	if a.opened {
		a.mu.Unlock()
		return
	}
	a.opened = true
	a.mu.Unlock()

	if err := a.vault.Open(ctx); err != nil {
		a.log.Error(ctx, "vault load reported local store faults", "error", err)
		fmt.Fprintln(a.out, "Warning: local storage problem, changes may not survive a restart")
	}
}

// closeVault stops push delivery until the next unlock.
func (a *App) closeVault() {
	a.mu.Lock()
	was := a.opened
	a.opened = false
	a.mu.Unlock()
	if was {
		a.vault.Close()
	}
}

func (a *App) getStatus() string {
	if !a.isUnlocked() {
		return "(locked)"
	}
	return fmt.Sprintf("(%s)", a.vault.Status())
}

// report prints err for the user; validation failures are shown verbatim.
func (a *App) report(ctx context.Context, op string, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(a.out, "Rejected:", verr.Msg)
		return err
	}
	a.log.Warn(ctx, op+" failed", "error", err)
	fmt.Fprintf(a.out, "Error: %v\n", err)
	return err
}
