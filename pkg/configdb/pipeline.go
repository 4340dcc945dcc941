package configdb

import (
	"fmt"

	"github.com/go-redis/redis/v8"
)

// TableChange represents a single change for pipeline execution.
type TableChange struct {
	Table  string
	Key    string
	Fields map[string]string // nil means delete
}

// PipelineSet writes multiple entries atomically via Redis MULTI/EXEC
// pipeline. All changes land in a single transaction — either all entries
// are written or none. Used for baseline replacement, where a half-written
// table would confuse the device's config daemons.
func (c *Client) PipelineSet(changes []TableChange) error {
	if len(changes) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()

	for _, change := range changes {
		redisKey := fmt.Sprintf("%s|%s", change.Table, change.Key)
		switch {
		case change.Fields == nil:
			pipe.Del(c.ctx, redisKey)
		case len(change.Fields) == 0:
			// Empty entry — NULL sentinel (SONiC convention)
			pipe.HSet(c.ctx, redisKey, "NULL", "NULL")
		default:
			args := make([]interface{}, 0, len(change.Fields)*2)
			for k, v := range change.Fields {
				args = append(args, k, v)
			}
			pipe.HSet(c.ctx, redisKey, args...)
		}
	}

	_, err := pipe.Exec(c.ctx)
	if err != nil && err != redis.Nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}
