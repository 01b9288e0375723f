package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// SchedulerLeaseKey guards the periodic summary scheduler so that exactly one
// instance registers the cron entries.
const SchedulerLeaseKey = "lease:summary_scheduler"

const releaseTimeout = 2 * time.Second

// ErrLeaseLost is returned by Renew when another holder owns the key.
var ErrLeaseLost = errors.New("lease lost")

var (
	renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Lease is a single-holder lock with a TTL. A holder that stops renewing
// loses the lease after one TTL.
type Lease struct {
	rdb    *goredis.Client
	key    string
	holder string
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewLease(rdb *goredis.Client, key, holder string, ttl time.Duration, clock clockwork.Clock) *Lease {
	return &Lease{rdb: rdb, key: key, holder: holder, ttl: ttl, clock: clock}
}

// TryAcquire takes the lease if nobody holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.holder, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Renew extends the TTL if this instance still holds the lease.
func (l *Lease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.holder, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to renew lease %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Release gives the lease up if this instance holds it.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.holder).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}

// Holder returns the current holder, or "" when the lease is free.
func (l *Lease) Holder(ctx context.Context) (string, error) {
	holder, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return holder, nil
}

// Run competes for the lease until ctx is cancelled. onAcquire is called each
// time this instance becomes the holder; the function it returns is called
// when the lease is lost or Run exits. A nil return means the work could not
// start: the lease is released and this instance sits out one TTL.
func (l *Lease) Run(ctx context.Context, onAcquire func() (stop func())) {
	ticker := l.clock.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	var (
		stop    func()
		retryAt time.Time
	)
	step := func() {
		if stop != nil {
			err := l.Renew(ctx)
			if err == nil {
				return
			}
			slog.Warn("Lease no longer held", "key", l.key, "error", err)
			stop()
			stop = nil
			return
		}

		if l.clock.Now().Before(retryAt) {
			return
		}
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			slog.Warn("Lease acquisition failed", "key", l.key, "error", err)
			return
		}
		if !ok {
			return
		}

		slog.Info("Lease acquired", "key", l.key, "holder", l.holder)
		stop = onAcquire()
		if stop == nil {
			slog.Error("Lease holder failed to start, releasing", "key", l.key, "holder", l.holder)
			if err := l.Release(ctx); err != nil {
				slog.Warn("Failed to release lease", "key", l.key, "error", err)
			}
			retryAt = l.clock.Now().Add(l.ttl)
		}
	}

	step()
	for {
		select {
		case <-ticker.Chan():
			step()
		case <-ctx.Done():
			if stop != nil {
				stop()
			}
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			if err := l.Release(releaseCtx); err != nil {
				slog.Warn("Failed to release lease", "key", l.key, "error", err)
			}
			cancel()
			return
		}
	}
}
