// Package configdb implements the device's structured configuration
// interface: keyed table/record sets stored as Redis hashes in CONFIG_DB
// (DB 4), with operational state in STATE_DB (DB 6). Access goes through
// the transport's forwarded local port.
package configdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// Redis database numbers, per the SONiC database map.
const (
	configDBNum = 4
	stateDBNum  = 6
)

// Client wraps a Redis client for CONFIG_DB access.
type Client struct {
	client *redis.Client
	ctx    context.Context
}

// NewClient creates a CONFIG_DB client for the given (usually tunneled) address.
func NewClient(addr string) *Client {
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   configDBNum,
		}),
		ctx: context.Background(),
	}
}

// Ping tests the connection.
func (c *Client) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Set writes a table entry. If fields is empty, a "NULL":"NULL" sentinel is
// written so the Redis key is actually created (SONiC convention for
// field-less entries like LOOPBACK_INTERFACE or INTERFACE IP keys).
// All fields go in a single HSET so exactly one keyspace notification fires;
// per-field writes cause the config daemons to react to partial entries.
func (c *Client) Set(table, key string, fields map[string]string) error {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	if len(fields) == 0 {
		return c.client.HSet(c.ctx, redisKey, "NULL", "NULL").Err()
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return c.client.HSet(c.ctx, redisKey, args...).Err()
}

// Delete removes a table entry.
func (c *Client) Delete(table, key string) error {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	return c.client.Del(c.ctx, redisKey).Err()
}

// Get reads a table entry. An absent entry returns an empty map.
func (c *Client) Get(table, key string) (map[string]string, error) {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	return c.client.HGetAll(c.ctx, redisKey).Result()
}

// Exists checks if a table entry exists.
func (c *Client) Exists(table, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	n, err := c.client.Exists(c.ctx, redisKey).Result()
	return n > 0, err
}

// TableKeys returns all Redis keys matching the given table prefix.
func (c *Client) TableKeys(table string) ([]string, error) {
	pattern := fmt.Sprintf("%s|*", table)
	return scanKeys(c.ctx, c.client, pattern, 100)
}

// GetAll reads the entire CONFIG_DB into the typed structure. Tables the
// driver does not model are skipped.
func (c *Client) GetAll() (*ConfigDB, error) {
	keys, err := scanKeys(c.ctx, c.client, "*", 100)
	if err != nil {
		return nil, err
	}

	db := newEmptyConfigDB()

	for _, key := range keys {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) < 2 {
			continue
		}
		table := parts[0]
		entry := parts[1]

		vals, err := c.client.HGetAll(c.ctx, key).Result()
		if err != nil {
			continue
		}

		if parser, ok := tableParsers[table]; ok {
			parser(db, entry, vals)
		}
	}

	return db, nil
}

// scanKeys iterates Redis keys matching the given pattern using cursor-based
// SCAN instead of the blocking O(N) KEYS command. The count hint controls
// how many keys Redis returns per iteration (not an exact limit).
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
