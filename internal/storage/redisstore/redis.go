// Package redisstore is the redis storage.Store backend accepted on the
// command line. Like internal/storage/postgres, it is accepted but not
// implemented: the scheduler only ever needs the memory backend at the
// expected single-process cluster scale.
package redisstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hatchway/clustersched/internal/storage"
	"github.com/redis/go-redis/v9"
)

var log = slog.Default()

const pingTimeout = 2 * time.Second

// New parses addr as a redis connection URL, pings the server to surface a
// misconfigured or unreachable addr immediately, and then reports that the
// redis backend is not implemented regardless of ping outcome: reachability
// never changes the verdict, only the diagnostic logged alongside it.
func New(addr string) (storage.Store, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("redisstore: invalid connection url: %w", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redisstore: ping failed", "addr", opts.Addr, "error", err)
	}

	return nil, fmt.Errorf("redisstore: %w", storage.ErrBackendNotImplemented)
}
