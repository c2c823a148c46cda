package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const tasksKey = "tasks:public"

// Tasks stores the public task list admins publish for users to complete.
type Tasks struct {
	rdb *redis.Client
}

func NewTasks(rdb *redis.Client) *Tasks {
	return &Tasks{rdb: rdb}
}

func (t *Tasks) Get(ctx context.Context) ([]string, error) {
	raw, err := t.rdb.Get(ctx, tasksKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	var tasks []string
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (t *Tasks) Set(ctx context.Context, tasks []string) error {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := t.rdb.Set(ctx, tasksKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("set tasks: %w", err)
	}
	return nil
}
