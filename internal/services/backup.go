package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tgblog/apiserver/types"
)

const backupPrefix = "backups/"

// ObjectStore is the subset of object storage the backup needs.
type ObjectStore interface {
	PutBytes(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// ErrNotBackupKey is returned by Load for keys outside the backup prefix.
var ErrNotBackupKey = errors.New("not a backup key")

// Snapshot is the JSON document written by a backup.
type Snapshot struct {
	TakenAt time.Time    `json:"taken_at"`
	Count   int          `json:"count"`
	Posts   []types.Post `json:"posts"`
}

// BackupService exports every post to object storage.
type BackupService struct {
	repo    PostRepository
	objects ObjectStore
	now     func() time.Time
}

func NewBackupService(repo PostRepository, objects ObjectStore) *BackupService {
	return &BackupService{
		repo:    repo,
		objects: objects,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run writes a snapshot to backups/posts-<timestamp>.json and returns its key.
func (s *BackupService) Run(ctx context.Context) (string, Snapshot, error) {
	snapshot := Snapshot{TakenAt: s.now()}
	for offset := 0; ; {
		page, total, err := s.repo.List(ctx, offset, MaxPageLimit)
		if err != nil {
			return "", Snapshot{}, fmt.Errorf("list posts: %w", err)
		}
		snapshot.Posts = append(snapshot.Posts, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			break
		}
	}
	if snapshot.Posts == nil {
		snapshot.Posts = []types.Post{}
	}
	snapshot.Count = len(snapshot.Posts)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", Snapshot{}, err
	}

	key := BackupKey(snapshot.TakenAt)
	if err := s.objects.PutBytes(ctx, key, data, "application/json"); err != nil {
		return "", Snapshot{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return key, snapshot, nil
}

// List returns the keys of existing backups, oldest first.
func (s *BackupService) List(ctx context.Context) ([]string, error) {
	return s.objects.List(ctx, backupPrefix)
}

// Load reads and decodes the snapshot stored under key.
func (s *BackupService) Load(ctx context.Context, key string) (Snapshot, error) {
	if !strings.HasPrefix(key, backupPrefix) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotBackupKey, key)
	}
	r, err := s.objects.Get(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("download %s: %w", key, err)
	}
	defer r.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return snapshot, nil
}

// Prune deletes all but the newest keep backups and returns the removed keys.
// Keys sort by timestamp, so the oldest come first.
func (s *BackupService) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	keys, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) <= keep {
		return nil, nil
	}

	stale := keys[:len(keys)-keep]
	for i, key := range stale {
		if err := s.objects.Delete(ctx, key); err != nil {
			return stale[:i], fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return stale, nil
}

func BackupKey(at time.Time) string {
	return backupPrefix + "posts-" + at.UTC().Format("20060102T150405Z") + ".json"
}
