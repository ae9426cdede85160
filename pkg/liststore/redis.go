package liststore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisList backs the list primitive with a shared redis instance so several
// bundler processes can coordinate on one queue.
type RedisList struct {
	client *redis.Client
}

// NewRedis connects to the given endpoint, e.g. "redis://host:6379/0".
func NewRedis(endpoint string) (*RedisList, error) {
	opts, err := redis.ParseURL(endpoint)
	if err != nil {
		return nil, err
	}

	return &RedisList{client: redis.NewClient(opts)}, nil
}

func (r *RedisList) Len(ctx context.Context, name string) (int64, error) {
	return r.client.LLen(ctx, name).Result()
}

func (r *RedisList) RPop(ctx context.Context, name string) (string, bool, error) {
	v, err := r.client.RPop(ctx, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisList) RPush(ctx context.Context, name string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.RPush(ctx, name, args...).Err()
}

func (r *RedisList) LPush(ctx context.Context, name string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.LPush(ctx, name, args...).Err()
}

func (r *RedisList) Close() error {
	return r.client.Close()
}
