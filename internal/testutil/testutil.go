//go:build integration

// Package testutil provides helpers for integration tests that need a live
// Redis standing in for a device's configuration database.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis from
// FABPUSH_TEST_REDIS_ADDR, or empty if not configured.
func RedisAddr() string {
	return os.Getenv("FABPUSH_TEST_REDIS_ADDR")
}

// SkipIfNoRedis skips the test unless the test Redis is configured and
// answering.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not configured: set FABPUSH_TEST_REDIS_ADDR")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
}

// FlushDB flushes one Redis database.
func FlushDB(t *testing.T, db int) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: db})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing DB %d: %v", db, err)
	}
}

// WriteEntry writes a single hash entry to a Redis database.
func WriteEntry(t *testing.T, db int, table, key string, fields map[string]string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: db})
	defer client.Close()

	redisKey := table + "|" + key
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := client.HSet(context.Background(), redisKey, args...).Err(); err != nil {
		t.Fatalf("writing %s: %v", redisKey, err)
	}
}

// ReadEntry reads a hash entry from a Redis database.
func ReadEntry(t *testing.T, db int, table, key string) map[string]string {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: db})
	defer client.Close()

	vals, err := client.HGetAll(context.Background(), table+"|"+key).Result()
	if err != nil {
		t.Fatalf("reading %s|%s: %v", table, key, err)
	}
	return vals
}

// EntryExists reports whether a key exists in a Redis database.
func EntryExists(t *testing.T, db int, table, key string) bool {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: db})
	defer client.Close()

	n, err := client.Exists(context.Background(), table+"|"+key).Result()
	if err != nil {
		t.Fatalf("checking %s|%s: %v", table, key, err)
	}
	return n > 0
}

// Context returns a context with a test-scoped timeout, cancelled on cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
