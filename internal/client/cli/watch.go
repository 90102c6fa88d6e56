package cli

import (
	"context"
	"fmt"
	"time"
)

// StartIdleWatcher locks the session once no command has been entered for
// config.SessionTimeout. A zero timeout disables the watcher.
func (a *App) StartIdleWatcher(ctx context.Context, interval time.Duration) {
	if a.config.SessionTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.checkIdle() {
				a.closeVault()
				a.log.Info(ctx, "session locked after inactivity", "timeout", a.config.SessionTimeout)
				fmt.Fprintln(a.out, "\nSession locked after inactivity, type 'unlock'")
			}
		case <-ctx.Done():
			return
		}
	}
}

// checkIdle locks an unlocked session that has been idle for too long and
// reports whether it did.
func (a *App) checkIdle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.unlocked || a.now().Sub(a.lastActive) < a.config.SessionTimeout {
		return false
	}
	a.unlocked = false
	return true
}
