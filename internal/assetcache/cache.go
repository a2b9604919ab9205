// Package assetcache memoizes one lookup ExportOrganizer would otherwise
// recompute on every run: an audio path's derived ANLZ directory.
// Memoizing it across runs against the same Redis instance means two
// exports of an unchanged library keep an identical ANLZ layout without
// retracing every track's hash.
//
// Artwork table IDs are deliberately NOT cached here: buildArtworkTable
// assigns them densely in per-run append order to match the artwork
// table's row positions, so an ID recalled from an earlier, differently
// scoped run could collide with this run's own assignment. Artwork
// deduplication stays in-memory, scoped to a single Organizer (see
// internal/export/organizer.go).
package assetcache

import (
	"context"
	"fmt"
	"time"

	"rekordboxport/config"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * 24 * time.Hour

// Cache wraps a Redis client scoped to ExportOrganizer's memoization needs.
type Cache struct {
	client *redis.Client
}

// Connect dials cfg's Redis instance and verifies it's reachable.
func Connect(cfg *config.Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping verifies the connection is still alive, for the `cache` CLI check.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func anlzDirKey(audioPath string) string {
	return "rekordboxport:anlz-dir:" + audioPath
}

// GetAnlzDir returns the previously derived ANLZ directory for an audio
// path, if one was recorded by an earlier export.
func (c *Cache) GetAnlzDir(ctx context.Context, audioPath string) (string, bool, error) {
	val, err := c.client.Get(ctx, anlzDirKey(audioPath)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get anlz dir %s: %w", audioPath, err)
	}
	return val, true, nil
}

// PutAnlzDir records the ANLZ directory derived for an audio path.
func (c *Cache) PutAnlzDir(ctx context.Context, audioPath, dir string) error {
	if err := c.client.Set(ctx, anlzDirKey(audioPath), dir, defaultTTL).Err(); err != nil {
		return fmt.Errorf("put anlz dir %s: %w", audioPath, err)
	}
	return nil
}
