package configdb

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// StateClient wraps a Redis client for STATE_DB (DB 6) access. STATE_DB
// holds operational/runtime state written by the device's daemons, separate
// from configuration; the driver reads it for verification probes.
type StateClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewStateClient creates a STATE_DB client for the given address.
func NewStateClient(addr string) *StateClient {
	return &StateClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   stateDBNum,
		}),
		ctx: context.Background(),
	}
}

// Ping tests the connection.
func (c *StateClient) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close closes the connection.
func (c *StateClient) Close() error {
	return c.client.Close()
}

// GetEntry reads a single STATE_DB entry as a raw field map.
// Returns (nil, nil) if the entry does not exist.
func (c *StateClient) GetEntry(table, key string) (map[string]string, error) {
	redisKey := fmt.Sprintf("%s|%s", table, key)
	vals, err := c.client.HGetAll(c.ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// TableKeys returns all STATE_DB keys matching the given table prefix.
func (c *StateClient) TableKeys(table string) ([]string, error) {
	pattern := fmt.Sprintf("%s|*", table)
	return scanKeys(c.ctx, c.client, pattern, 100)
}
