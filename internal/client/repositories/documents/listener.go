package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// notificationConn is a connection subscribed to one channel.
type notificationConn interface {
	Listen(ctx context.Context, channel string) error
	Wait(ctx context.Context) error
	Close()
}

type poolConn struct {
	c *pgxpool.Conn
}

func (p *poolConn) Listen(ctx context.Context, channel string) error {
	_, err := p.c.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	return err
}

func (p *poolConn) Wait(ctx context.Context) error {
	_, err := p.c.Conn().WaitForNotification(ctx)
	return err
}

func (p *poolConn) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = p.c.Exec(ctx, "UNLISTEN *")
	p.c.Release()
}

// Listener turns notifications on Channel into callbacks. A dropped
// connection is re-established with capped exponential backoff, and the
// callback is invoked once after every reconnect so changes missed while
// disconnected are picked up.
type Listener struct {
	connect    func(ctx context.Context) (notificationConn, error)
	newBackoff func() retry.Backoff
	log        logging.Logger
}

func NewListener(pool *pgxpool.Pool, log logging.Logger) *Listener {
	return &Listener{
		connect: func(ctx context.Context) (notificationConn, error) {
			c, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return &poolConn{c: c}, nil
		},
		newBackoff: defaultBackoff,
		log:        log,
	}
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(30*time.Second, b)
}

// Run blocks until ctx is done, calling onChange for every notification.
// It returns ctx.Err() on shutdown.
func (l *Listener) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	for attempt := 0; ; attempt++ {
		conn, err := l.establish(ctx)
		if err != nil {
			return err
		}
		if attempt > 0 {
			l.log.Info(ctx, "listener reconnected", "channel", Channel)
			onChange(ctx)
		}

		err = l.loop(ctx, conn, onChange)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn(ctx, "listener connection lost", "channel", Channel, "error", err)
	}
}

func (l *Listener) establish(ctx context.Context) (notificationConn, error) {
	var conn notificationConn
	err := retry.Do(ctx, l.newBackoff(), func(ctx context.Context) error {
		c, err := l.connect(ctx)
		if err != nil {
			l.log.Debug(ctx, "listener connect failed", "error", err)
			return retry.RetryableError(err)
		}
		if err := c.Listen(ctx, Channel); err != nil {
			c.Close()
			l.log.Debug(ctx, "listen failed", "error", err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}
	return conn, nil
}

func (l *Listener) loop(ctx context.Context, conn notificationConn, onChange func(ctx context.Context)) error {
	for {
		if err := conn.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		onChange(ctx)
	}
}
