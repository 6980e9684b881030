package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/tgblog/apiserver/types"
)

// PostCache keeps recently read posts in memory, keyed by id.
type PostCache struct {
	cache *bigcache.BigCache
}

func NewPostCache(ctx context.Context, ttl time.Duration) (*PostCache, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10_000
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostCache{cache: c}, nil
}

// Get returns the cached post. A miss is reported as ok=false, not as an error.
func (c *PostCache) Get(id int) (types.Post, bool, error) {
	buf, err := c.cache.Get(key(id))
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return types.Post{}, false, nil
		}
		return types.Post{}, false, err
	}

	var post types.Post
	if err := json.Unmarshal(buf, &post); err != nil {
		_ = c.cache.Delete(key(id))
		return types.Post{}, false, err
	}
	return post, true, nil
}

func (c *PostCache) Set(post types.Post) error {
	buf, err := json.Marshal(post)
	if err != nil {
		return err
	}
	return c.cache.Set(key(post.ID), buf)
}

func (c *PostCache) Delete(id int) error {
	err := c.cache.Delete(key(id))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (c *PostCache) Len() int {
	return c.cache.Len()
}

func (c *PostCache) Close() error {
	return c.cache.Close()
}

func key(id int) string {
	return strconv.Itoa(id)
}
