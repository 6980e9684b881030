package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tgblog/apiserver/types"
)

// ErrPostNotFound is returned by GetPost when the API answers 404.
var ErrPostNotFound = errors.New("post not found")

// StatusError is a non-2xx answer from the blog API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("blog api: HTTP %d: %s", e.Code, e.Body)
}

// Client reads posts from the blog API. The post list is revalidated with
// If-None-Match so an unchanged list costs the server no body.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu        sync.Mutex
	listETag  string
	listPosts []types.Post
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) ListPosts(ctx context.Context) ([]types.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/posts", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.mu.Lock()
	etag, cached := c.listETag, c.listPosts
	c.mu.Unlock()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && etag != "" {
		return cached, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var posts []types.Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	c.mu.Lock()
	c.listETag, c.listPosts = resp.Header.Get("ETag"), posts
	c.mu.Unlock()
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, id int) (types.Post, error) {
	url := c.BaseURL + "/posts/" + strconv.Itoa(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.Post{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return types.Post{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.Post{}, ErrPostNotFound
	}
	if err := checkStatus(resp); err != nil {
		return types.Post{}, err
	}

	var post types.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return types.Post{}, fmt.Errorf("decode post: %w", err)
	}
	return post, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
