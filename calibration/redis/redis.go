// Package redis stores calibration records as JSON values in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/milosgajdos/go-planar/calibration"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the key used when none is given
const DefaultKey = "planar:calibration"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Repository is a Redis backed calibration.Repository
type Repository struct {
	client redis.Cmdable
	key    string
}

// New creates new Repository storing its record under key and returns it.
func New(client redis.Cmdable, key string) (*Repository, error) {
	if client == nil {
		return nil, fmt.Errorf("invalid redis client: %v", client)
	}

	if key == "" {
		key = DefaultKey
	}

	return &Repository{client: client, key: key}, nil
}

// Dial connects to Redis at addr and returns a Repository storing its record under key.
// It returns error if the server does not answer a ping.
func Dial(ctx context.Context, addr, password string, db int, key string) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return New(client, key)
}

// Key returns the record key
func (r *Repository) Key() string {
	return r.key
}

// Load returns the stored record or calibration.ErrNotFound
func (r *Repository) Load(ctx context.Context) (*calibration.Record, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, calibration.ErrNotFound
		}
		return nil, fmt.Errorf("get calibration %s: %w", r.key, err)
	}

	rec := &calibration.Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode calibration %s: %w", r.key, err)
	}

	return rec, nil
}

// Save stores rec under the repository key
func (r *Repository) Save(ctx context.Context, rec *calibration.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set calibration %s: %w", r.key, err)
	}

	return nil
}

// Delete removes the stored record
func (r *Repository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete calibration %s: %w", r.key, err)
	}

	return nil
}

// Close closes the underlying client if it can be closed
func (r *Repository) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
