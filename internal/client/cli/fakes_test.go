package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/config"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/services"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

type fakeVault struct {
	items   []models.Item
	status  services.SyncStatus
	usage   models.Usage
	payload []byte
	url     string
	err     error

	opened  int
	closed  bool
	openErr error
	calls   []string
}

func (f *fakeVault) Open(context.Context) error { f.opened++; return f.openErr }
func (f *fakeVault) Close()                     { f.closed = true }

func (f *fakeVault) AddNote(_ context.Context, text string) (models.Item, error) {
	f.calls = append(f.calls, "addnote:"+text)
	if f.err != nil {
		return models.Item{}, f.err
	}
	it := models.NewNote("n1", text, time.Now())
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeVault) AddFile(_ context.Context, name, mediaType string, data []byte) (models.Item, error) {
	f.calls = append(f.calls, "addfile:"+name)
	if f.err != nil {
		return models.Item{}, f.err
	}
	it := models.NewFile("f1", name, "text/plain", data, time.Now())
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeVault) ToggleImportant(_ context.Context, id string) (models.Item, error) {
	f.calls = append(f.calls, "important:"+id)
	it, err := f.Get(id)
	if err != nil {
		return it, err
	}
	it.IsImportant = !it.IsImportant
	return it, nil
}

func (f *fakeVault) Delete(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	return f.err
}

func (f *fakeVault) Find(flt models.Filter) []models.Item { return flt.Apply(f.items) }

func (f *fakeVault) Get(id string) (models.Item, error) {
	if i := models.IndexOf(f.items, id); i >= 0 {
		return f.items[i], nil
	}
	return models.Item{}, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
}

func (f *fakeVault) Payload(_ context.Context, id string) (models.Item, []byte, error) {
	it, err := f.Get(id)
	if err != nil {
		return it, nil, err
	}
	return it, f.payload, f.err
}

func (f *fakeVault) PayloadURL(context.Context, string) (string, error) { return f.url, f.err }
func (f *fakeVault) Status() services.SyncStatus                        { return f.status }
func (f *fakeVault) Usage() models.Usage                                { return f.usage }

type fakeAuth struct {
	initialized bool
	unlockErrs  []error
	unlocked    [][]byte
	changeErr   error
	changed     bool
}

func (f *fakeAuth) Initialized(context.Context) (bool, error) { return f.initialized, nil }

func (f *fakeAuth) Unlock(_ context.Context, pw []byte) error {
	f.unlocked = append(f.unlocked, append([]byte(nil), pw...))
	if len(f.unlockErrs) == 0 {
		return nil
	}
	err := f.unlockErrs[0]
	f.unlockErrs = f.unlockErrs[1:]
	return err
}

func (f *fakeAuth) ChangePassword(context.Context, []byte, []byte) error {
	f.changed = f.changeErr == nil
	return f.changeErr
}

// stubPasswords feeds the given passwords to getPassword in order and
// returns io.EOF once they run out.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) {
		if len(pws) == 0 {
			return nil, io.EOF
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

func newTestApp(t *testing.T, v *fakeVault, auth *fakeAuth, input string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = t.TempDir()

	var out bytes.Buffer
	app := NewApp(cfg, v, auth, logging.Nop(), strings.NewReader(input), &out)
	return app, &out
}
