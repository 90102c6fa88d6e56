package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/client/services"
	"github.com/dmitrijs2005/gophvault/internal/common"
)

// getPassword is an indirection used to facilitate testing.
var getPassword = GetPassword

// Unlock prompts for the vault password until it is accepted. On the very
// first run the entered password becomes the vault password after a
// confirmation prompt. A successful unlock opens the vault.
//
// common.ErrLocked (too many failures) and input errors end the loop.
func (a *App) Unlock(ctx context.Context) error {
	initialized, err := a.auth.Initialized(ctx)
	if err != nil {
		return a.report(ctx, "unlock", err)
	}
	if !initialized {
		fmt.Fprintln(a.out, "No password set yet. Choose one to protect the vault.")
	}

	for {
		password, err := getPassword(a.out)
		if err != nil {
			return err
		}

		if !initialized {
			ok, err := a.confirm(password)
			if err != nil {
				common.WipeByteArray(password)
				return err
			}
			if !ok {
				common.WipeByteArray(password)
				fmt.Fprintln(a.out, "Passwords do not match")
				continue
			}
		}

		err = a.auth.Unlock(ctx, password)
		common.WipeByteArray(password)

		var verr *services.ValidationError
		switch {
		case err == nil:
			a.setUnlocked(true)
			a.log.Info(ctx, "vault unlocked")
			fmt.Fprintln(a.out, "Vault unlocked")
			a.open(ctx)
			return nil
		case errors.Is(err, common.ErrUnauthorized):
			fmt.Fprintln(a.out, "Wrong password")
		case errors.As(err, &verr):
			fmt.Fprintln(a.out, "Rejected:", verr.Msg)
		case errors.Is(err, common.ErrLocked):
			a.log.Warn(ctx, "unlock attempts exhausted")
			fmt.Fprintln(a.out, "Too many failed attempts")
			return err
		default:
			return a.report(ctx, "unlock", err)
		}
	}
}

func (a *App) confirm(password []byte) (bool, error) {
	fmt.Fprintln(a.out, "Repeat the password")
	again, err := getPassword(a.out)
	if err != nil {
		return false, err
	}
	defer common.WipeByteArray(again)
	return bytes.Equal(password, again), nil
}

// Lock ends the session and closes the vault; only unlock, help and exit are
// accepted afterwards.
func (a *App) Lock(ctx context.Context) error {
	a.setUnlocked(false)
	a.closeVault()
	a.log.Info(ctx, "vault locked")
	fmt.Fprintln(a.out, "Vault locked")
	return nil
}

// ChangePassword verifies the current password and stores a new one.
func (a *App) ChangePassword(ctx context.Context) error {
	fmt.Fprintln(a.out, "Current password")
	current, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	fmt.Fprintln(a.out, "New password")
	next, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	ok, err := a.confirm(next)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Passwords do not match")
		return nil
	}

	if err := a.auth.ChangePassword(ctx, current, next); err != nil {
		return a.report(ctx, "change password", err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}
