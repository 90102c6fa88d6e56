// Package services contains the vault's application services: the
// reconciliation engine (Vault), its sync status tracker, the admission
// policy, the one-time legacy import and the password gate.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
)

const (
	saltKey     = "gate_salt"
	verifierKey = "gate_verifier"
)

// AuthService is the single-secret password gate.
//
// Contract:
//   - Initialized: whether a password has been set.
//   - Unlock: the first call sets the password; later calls verify it.
//     After maxAttempts consecutive failures every call returns
//     common.ErrLocked.
//   - ChangePassword: verify the current password and store a new one.
type AuthService interface {
	Initialized(ctx context.Context) (bool, error)
	Unlock(ctx context.Context, password []byte) error
	ChangePassword(ctx context.Context, current, next []byte) error
}

type authService struct {
	meta        metadata.Repository
	maxAttempts int

	mu       sync.Mutex
	failures int
}

// NewAuthService binds the gate to the metadata store. maxAttempts <= 0
// means unlimited.
func NewAuthService(meta metadata.Repository, maxAttempts int) AuthService {
	return &authService{meta: meta, maxAttempts: maxAttempts}
}

func (a *authService) Initialized(ctx context.Context) (bool, error) {
	v, err := a.meta.Get(ctx, verifierKey)
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrLocalStore, err)
	}
	return v != nil, nil
}

func (a *authService) Unlock(ctx context.Context, password []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.maxAttempts > 0 && a.failures >= a.maxAttempts {
		return common.ErrLocked
	}

	salt, err := a.meta.Get(ctx, saltKey)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
	}
	saved, err := a.meta.Get(ctx, verifierKey)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
	}

	if saved == nil {
		return a.store(ctx, password)
	}

	if !cryptox.CheckPassword(password, salt, saved) {
		a.failures++
		if a.maxAttempts > 0 && a.failures >= a.maxAttempts {
			return common.ErrLocked
		}
		return common.ErrUnauthorized
	}
	a.failures = 0
	return nil
}

func (a *authService) ChangePassword(ctx context.Context, current, next []byte) error {
	if err := a.Unlock(ctx, current); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store(ctx, next)
}

// store saves a fresh salt and the verifier of password in one transaction.
func (a *authService) store(ctx context.Context, password []byte) error {
	if len(password) == 0 {
		return &ValidationError{Msg: "password must not be empty"}
	}
	salt := cryptox.NewSalt()
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	err := a.meta.SetMany(ctx, map[string][]byte{
		saltKey:     salt,
		verifierKey: cryptox.MakeVerifier(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
	}
	return nil
}
