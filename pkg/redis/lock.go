package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired is returned when another holder has the lock
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when the lock expired or was taken over
	ErrLockNotHeld = errors.New("lock not held")
)

// both scripts act only while the stored token is ours
var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

const defaultLockPrefix = "sage:lock:"

// Lock is a held single-holder lock identified by a random token
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// AcquireLock takes "sage:lock:<name>" with SET NX. The lock expires after ttl unless extended.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{
		client: c,
		key:    defaultLockPrefix + name,
		token:  uuid.NewString(),
		ttl:    ttl,
	}

	ok, err := c.rdb.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	c.logger.WithContext(ctx).WithField("lock", lock.key).Debug("Acquired lock")
	return lock, nil
}

// Extend resets the expiry to the lock's ttl
func (l *Lock) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.client.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Release deletes the lock if it is still ours
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}

	l.client.logger.WithContext(ctx).WithField("lock", l.key).Debug("Released lock")
	return nil
}

// Hold extends the lock every ttl/3 until ctx ends. The returned context is
// cancelled as soon as an extension fails, so work guarded by the lock stops
// once another holder could have taken it.
func (l *Lock) Hold(ctx context.Context) (context.Context, context.CancelFunc) {
	held, cancel := context.WithCancel(ctx)

	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-held.Done():
				return
			case <-ticker.C:
				if err := l.Extend(held); err != nil {
					if held.Err() == nil {
						l.client.logger.WithContext(ctx).WithError(err).WithField("lock", l.key).Error("Lost lock")
					}
					cancel()
					return
				}
			}
		}
	}()

	return held, cancel
}
