// Package store persists exported indexes as named snapshots in Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/champ-index/pkg/cache"
	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/Sternrassler/champ-index/pkg/serialize"
	"github.com/rs/zerolog"
)

// Namespace is the cache key namespace of snapshots.
const Namespace = "snapshot"

// ErrSnapshotNotFound is returned when no snapshot exists under a name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// EntryStore is the subset of cache.Manager used by Snapshots.
type EntryStore interface {
	Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error)
	Set(ctx context.Context, key cache.CacheKey, entry *cache.CacheEntry) error
	Delete(ctx context.Context, key cache.CacheKey) error
	UpdateTTL(ctx context.Context, key cache.CacheKey, newExpires time.Time) error
}

// Info describes a stored snapshot.
type Info struct {
	Name         string    `json:"name"`
	Compressed   bool      `json:"compressed"`
	Version      int       `json:"version"`
	TotalMatches int       `json:"total_matches"`
	Size         int       `json:"size"`
	SavedAt      time.Time `json:"saved_at"`
	Expires      time.Time `json:"expires,omitempty"`
}

// Snapshots saves and loads index snapshots.
type Snapshots struct {
	entries EntryStore
	ttl     time.Duration
	logger  zerolog.Logger
}

// New creates a snapshot store. A ttl of zero or less keeps snapshots
// until they are deleted.
func New(entries EntryStore, ttl time.Duration, logger zerolog.Logger) *Snapshots {
	return &Snapshots{
		entries: entries,
		ttl:     ttl,
		logger:  logger,
	}
}

func key(name string) cache.CacheKey {
	return cache.CacheKey{Namespace: Namespace, ID: name}
}

// Save exports idx and stores it under name, replacing any previous
// snapshot of that name.
func (s *Snapshots) Save(ctx context.Context, name string, idx *model.Index, compressed bool) (Info, error) {
	if name == "" {
		return Info{}, errors.New("snapshot name is required")
	}

	text, err := serialize.Export(idx, compressed)
	if err != nil {
		return Info{}, fmt.Errorf("save snapshot %s: %w", name, err)
	}

	entry := cache.NewEntry([]byte(text), s.ttl)
	entry.Meta = map[string]string{
		"compressed":    strconv.FormatBool(compressed),
		"version":       strconv.Itoa(serialize.FormatVersion),
		"total_matches": strconv.Itoa(idx.Metadata.TotalMatches),
	}

	if err := s.entries.Set(ctx, key(name), entry); err != nil {
		return Info{}, fmt.Errorf("save snapshot %s: %w", name, err)
	}

	info := infoFor(name, entry)
	s.logger.Info().
		Str("snapshot", name).
		Bool("compressed", compressed).
		Int("size", info.Size).
		Int("matches", info.TotalMatches).
		Msg("Snapshot saved")
	return info, nil
}

// Load imports the snapshot stored under name.
func (s *Snapshots) Load(ctx context.Context, name string) (*model.Index, Info, error) {
	entry, err := s.entries.Get(ctx, key(name))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, Info{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, Info{}, fmt.Errorf("load snapshot %s: %w", name, err)
	}

	idx, err := serialize.Import(string(entry.Data))
	if err != nil {
		return nil, Info{}, fmt.Errorf("load snapshot %s: %w", name, err)
	}

	info := infoFor(name, entry)
	s.logger.Info().
		Str("snapshot", name).
		Bool("compressed", info.Compressed).
		Time("saved_at", info.SavedAt).
		Msg("Snapshot loaded")
	return idx, info, nil
}

// Touch restarts the expiry of the snapshot stored under name.
func (s *Snapshots) Touch(ctx context.Context, name string) error {
	var expires time.Time
	if s.ttl > 0 {
		expires = time.Now().Add(s.ttl)
	}
	if err := s.entries.UpdateTTL(ctx, key(name), expires); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return fmt.Errorf("touch snapshot %s: %w", name, err)
	}
	return nil
}

// Delete removes the snapshot stored under name.
func (s *Snapshots) Delete(ctx context.Context, name string) error {
	if err := s.entries.Delete(ctx, key(name)); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

func infoFor(name string, entry *cache.CacheEntry) Info {
	info := Info{
		Name:    name,
		Size:    len(entry.Data),
		SavedAt: entry.CachedAt,
		Expires: entry.Expires,
	}
	info.Compressed, _ = strconv.ParseBool(entry.Meta["compressed"])
	info.Version, _ = strconv.Atoi(entry.Meta["version"])
	info.TotalMatches, _ = strconv.Atoi(entry.Meta["total_matches"])
	return info
}
