package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tgblog/apiserver/internal/store"
	"github.com/tgblog/apiserver/types"
)

type memoryRepo struct {
	mu     sync.Mutex
	posts  map[int]types.Post
	nextID int
	gets   int
	fail   error

	// beforeWrite runs ahead of Update and Delete, outside the lock.
	beforeWrite func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: map[int]types.Post{}, nextID: 1}
}

func (r *memoryRepo) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, 0, r.fail
	}
	all := make([]types.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []types.Post{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	p, ok := r.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return types.Post{}, r.fail
	}
	post.ID = r.nextID
	r.nextID++
	post.CreatedAt = time.Date(2024, 1, 1, 0, 0, post.ID, 0, time.UTC)
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID] = post
	return post, nil
}

func (r *memoryRepo) Update(ctx context.Context, post types.Post) (types.Post, error) {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.UpdatedAt = post.UpdatedAt.Add(time.Minute)
	r.posts[post.ID] = post
	return post, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int) error {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

type mapCache struct {
	posts map[int]types.Post
}

func newMapCache() *mapCache { return &mapCache{posts: map[int]types.Post{}} }

func (c *mapCache) Get(id int) (types.Post, bool, error) {
	p, ok := c.posts[id]
	return p, ok, nil
}

func (c *mapCache) Set(post types.Post) error {
	c.posts[post.ID] = post
	return nil
}

func (c *mapCache) Delete(id int) error {
	delete(c.posts, id)
	return nil
}

type published struct {
	channel string
	event   types.PostEvent
	attrs   map[string]string
}

type recordingPublisher struct {
	events []published
	err    error
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, channel string, v any, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	event, ok := v.(types.PostEvent)
	if !ok {
		return "", errors.New("unexpected payload")
	}
	p.events = append(p.events, published{channel: channel, event: event, attrs: attrs})
	return event.ID, nil
}

type memoryObjects struct {
	objects    map[string][]byte
	types      map[string]string
	failDelete string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	if m.failDelete != "" && key == m.failDelete {
		return errors.New("delete refused")
	}
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}
