package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tgblog/apiserver/internal/logutil"
	"github.com/tgblog/apiserver/types"
)

const (
	MaxTitleLength   = 255
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ErrInvalidPost is wrapped by every validation failure.
var ErrInvalidPost = errors.New("invalid post")

var (
	ErrTitleRequired = fmt.Errorf("%w: title is required", ErrInvalidPost)
	ErrTitleTooLong  = fmt.Errorf("%w: title must be at most %d characters", ErrInvalidPost, MaxTitleLength)
	ErrTextRequired  = fmt.Errorf("%w: text is required", ErrInvalidPost)
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Post, int, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// PostCache is a read-through cache keyed by post id.
type PostCache interface {
	Get(id int) (types.Post, bool, error)
	Set(post types.Post) error
	Delete(id int) error
}

// EventPublisher delivers post events to a channel.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any, attrs map[string]string) (string, error)
}

type PostOption func(*PostService)

func WithPostCache(cache PostCache) PostOption {
	return func(s *PostService) {
		s.cache = cache
	}
}

func WithEventPublisher(publisher EventPublisher, channel string) PostOption {
	return func(s *PostService) {
		s.events = publisher
		s.channel = channel
	}
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo    PostRepository
	cache   PostCache
	events  EventPublisher
	channel string
	now     func() time.Time
}

func NewPostService(repo PostRepository, opts ...PostOption) *PostService {
	s := &PostService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a page of posts, newest first.
func (s *PostService) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	if s.cache != nil {
		post, ok, err := s.cache.Get(id)
		if err != nil {
			log := logutil.GetOrDefault(ctx)
			log.Warn().Err(err).Int("post_id", id).Msg("post cache read failed")
		}
		if ok {
			return post, nil
		}
	}

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	s.remember(ctx, post)
	return post, nil
}

func (s *PostService) Create(ctx context.Context, actor, title, text string) (types.Post, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return types.Post{}, err
	}
	if err := validateText(text); err != nil {
		return types.Post{}, err
	}

	post, err := s.repo.Create(ctx, types.Post{Title: title, Text: text})
	if err != nil {
		return types.Post{}, err
	}
	s.remember(ctx, post)
	s.publish(ctx, types.PostCreated, post.ID, post.Title, actor)
	return post, nil
}

// Patch applies the non-nil fields to the stored post. With no fields set
// it returns the current post unchanged.
func (s *PostService) Patch(ctx context.Context, id int, title, text *string, actor string) (types.Post, error) {
	var (
		newTitle string
		err      error
	)
	if title != nil {
		if newTitle, err = normalizeTitle(*title); err != nil {
			return types.Post{}, err
		}
	}
	if text != nil {
		if err := validateText(*text); err != nil {
			return types.Post{}, err
		}
	}

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if title == nil && text == nil {
		return post, nil
	}

	if title != nil {
		post.Title = newTitle
	}
	if text != nil {
		post.Text = *text
	}

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		return types.Post{}, err
	}
	s.remember(ctx, updated)
	s.publish(ctx, types.PostUpdated, updated.ID, updated.Title, actor)
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, id int, actor string) error {
	err := s.repo.Delete(ctx, id)
	s.forget(ctx, id)
	if err != nil {
		return err
	}
	s.publish(ctx, types.PostDeleted, id, "", actor)
	return nil
}

func (s *PostService) remember(ctx context.Context, post types.Post) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(post); err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Err(err).Int("post_id", post.ID).Msg("post cache write failed")
	}
}

func (s *PostService) forget(ctx context.Context, id int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(id); err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Err(err).Int("post_id", id).Msg("post cache eviction failed")
	}
}

// publish never fails the caller; the mutation has already been committed.
func (s *PostService) publish(ctx context.Context, kind types.PostEventType, postID int, title, actor string) {
	if s.events == nil {
		return
	}
	event := types.PostEvent{
		ID:         uuid.NewString(),
		Type:       kind,
		PostID:     postID,
		Title:      title,
		Actor:      actor,
		OccurredAt: s.now(),
	}
	if _, err := s.events.PublishJSON(ctx, s.channel, event, map[string]string{"type": string(kind)}); err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Error().Err(err).
			Str("event", string(kind)).
			Int("post_id", postID).
			Msg("publish post event failed")
	}
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrTextRequired
	}
	return nil
}
