package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tunes a Redis locker.
type RedisOptions struct {
	// Prefix is prepended to every key. Defaults to "jobpulse:lock:".
	Prefix string
	// TTL bounds how long a crashed holder can keep the lock. Defaults to 2m.
	TTL time.Duration
	// Retry is the wait between acquisition attempts. Defaults to 100ms.
	Retry time.Duration
}

// Redis is a Locker shared by every process using the same Redis.
type Redis struct {
	client redis.Cmdable
	opts   RedisOptions
}

// NewRedis creates a Redis locker.
func NewRedis(client redis.Cmdable, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "jobpulse:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Minute
	}
	if opts.Retry <= 0 {
		opts.Retry = 100 * time.Millisecond
	}
	return &Redis{client: client, opts: opts}
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, key string) (Release, error) {
	k := r.opts.Prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(r.opts.Retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var (
		once sync.Once
		rerr error
	)
	return func() error {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := releaseScript.Run(ctx, r.client, []string{k}, token).Int()
			switch {
			case err != nil:
				rerr = fmt.Errorf("failed to release lock %s: %w", key, err)
			case n == 0:
				rerr = ErrNotHeld
			}
		})
		return rerr
	}, nil
}
