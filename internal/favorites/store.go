// Package favorites persists user-curated collections and favorite
// items as two JSON array blobs per domain namespace, the same layout
// the browser-local store used.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"toolhub/internal/favorites/kv"
)

var ErrCollectionNotFound = errors.New("collection not found")

// Publisher receives change events after each successful write.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithPublisher(pub Publisher) Option {
	return func(s *Store) { s.pub = pub }
}

// WithClock overrides the timestamp source; tests use it to pin
// createdAt/addedAt values.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the collections and items of one domain namespace
// ("hackernews", "wallpaper", ...). A read-through cache mirrors
// recently fetched collections keyed by collection id; every write
// affecting a collection invalidates its entry synchronously, so a
// caller never reads an entry older than its own last write.
type Store struct {
	kv     kv.Store
	ns     string
	logger zerolog.Logger
	pub    Publisher
	now    func() time.Time

	mu    sync.Mutex
	cache map[string][]FavoriteItem
}

func NewStore(backend kv.Store, namespace string, opts ...Option) *Store {
	s := &Store{
		kv:     backend,
		ns:     namespace,
		logger: zerolog.Nop(),
		now:    time.Now,
		cache:  make(map[string][]FavoriteItem),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) collectionsKey() string { return s.ns + ":collections" }
func (s *Store) favoritesKey() string   { return s.ns + ":favorites" }

// Collections returns all collections, most recently created first.
func (s *Store) Collections(ctx context.Context) ([]Collection, error) {
	cols, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].CreatedAt.After(cols[j].CreatedAt)
	})
	return cols, nil
}

// GetCollection returns (nil, nil) when the id is unknown.
func (s *Store) GetCollection(ctx context.Context, id string) (*Collection, error) {
	cols, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cols {
		if cols[i].ID == id {
			return &cols[i], nil
		}
	}
	return nil, nil
}

func (s *Store) CreateCollection(ctx context.Context, name, description string) (Collection, error) {
	cols, err := s.loadCollections(ctx)
	if err != nil {
		return Collection{}, err
	}

	now := s.now().UTC()
	col := Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cols = append(cols, col)
	if err := s.saveCollections(ctx, cols); err != nil {
		return Collection{}, err
	}

	s.publish(ctx, Event{Action: EventCollectionCreated, CollectionID: col.ID})
	return col, nil
}

// UpdateCollection merges the patch and refreshes updatedAt. An unknown
// id yields (nil, nil): a soft-fail signal, not an error.
func (s *Store) UpdateCollection(ctx context.Context, id string, patch CollectionPatch) (*Collection, error) {
	cols, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}

	for i := range cols {
		if cols[i].ID != id {
			continue
		}
		if patch.Name != nil {
			cols[i].Name = *patch.Name
		}
		if patch.Description != nil {
			cols[i].Description = *patch.Description
		}
		cols[i].UpdatedAt = s.now().UTC()
		if err := s.saveCollections(ctx, cols); err != nil {
			return nil, err
		}
		s.publish(ctx, Event{Action: EventCollectionUpdated, CollectionID: id})
		return &cols[i], nil
	}
	return nil, nil
}

// DeleteCollection removes the collection and cascades to its items.
// Deleting an unknown or already-deleted id is not an error.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	cols, err := s.loadCollections(ctx)
	if err != nil {
		return err
	}
	items, err := s.loadFavorites(ctx)
	if err != nil {
		return err
	}

	keptCols := cols[:0]
	for _, c := range cols {
		if c.ID != id {
			keptCols = append(keptCols, c)
		}
	}
	keptItems := items[:0]
	for _, it := range items {
		if it.CollectionID != id {
			keptItems = append(keptItems, it)
		}
	}

	if err := s.saveCollections(ctx, keptCols); err != nil {
		return err
	}
	if err := s.saveFavorites(ctx, keptItems); err != nil {
		return err
	}

	s.invalidate(id)
	s.publish(ctx, Event{Action: EventCollectionDeleted, CollectionID: id})
	return nil
}

// AddToCollection is idempotent by (collectionId, externalId): adding a
// duplicate returns the already stored item unchanged.
func (s *Store) AddToCollection(ctx context.Context, collectionID, externalID string, payload json.RawMessage) (FavoriteItem, error) {
	col, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return FavoriteItem{}, err
	}
	if col == nil {
		return FavoriteItem{}, fmt.Errorf("add to collection %s: %w", collectionID, ErrCollectionNotFound)
	}

	items, err := s.loadFavorites(ctx)
	if err != nil {
		return FavoriteItem{}, err
	}
	for _, it := range items {
		if it.CollectionID == collectionID && it.ExternalID == externalID {
			return it, nil
		}
	}

	item := FavoriteItem{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		ExternalID:   externalID,
		Payload:      payload,
		AddedAt:      s.now().UTC(),
	}
	items = append(items, item)
	if err := s.saveFavorites(ctx, items); err != nil {
		return FavoriteItem{}, err
	}
	if err := s.touchCollection(ctx, collectionID); err != nil {
		return FavoriteItem{}, err
	}

	s.invalidate(collectionID)
	s.publish(ctx, Event{Action: EventFavoriteAdded, CollectionID: collectionID, ItemID: item.ID})
	return item, nil
}

// RemoveFromCollection deletes one item by id; removing an unknown item
// is not an error.
func (s *Store) RemoveFromCollection(ctx context.Context, itemID string) error {
	items, err := s.loadFavorites(ctx)
	if err != nil {
		return err
	}

	collectionID := ""
	kept := items[:0]
	for _, it := range items {
		if it.ID == itemID {
			collectionID = it.CollectionID
			continue
		}
		kept = append(kept, it)
	}
	if collectionID == "" {
		return nil
	}

	if err := s.saveFavorites(ctx, kept); err != nil {
		return err
	}
	s.invalidate(collectionID)
	s.publish(ctx, Event{Action: EventFavoriteRemoved, CollectionID: collectionID, ItemID: itemID})
	return nil
}

func (s *Store) IsInCollection(ctx context.Context, collectionID, externalID string) (bool, error) {
	items, err := s.FavoritesByCollection(ctx, collectionID)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

// FavoritesByCollection returns the collection's items most recent
// first. Reads populate the cache; the cache is never authoritative
// across writes.
func (s *Store) FavoritesByCollection(ctx context.Context, collectionID string) ([]FavoriteItem, error) {
	s.mu.Lock()
	if cached, ok := s.cache[collectionID]; ok {
		out := make([]FavoriteItem, len(cached))
		copy(out, cached)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	items, err := s.loadFavorites(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]FavoriteItem, 0)
	for _, it := range items {
		if it.CollectionID == collectionID {
			matched = append(matched, it)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].AddedAt.After(matched[j].AddedAt)
	})

	s.mu.Lock()
	s.cache[collectionID] = matched
	s.mu.Unlock()

	out := make([]FavoriteItem, len(matched))
	copy(out, matched)
	return out, nil
}

func (s *Store) FavoriteCount(ctx context.Context, collectionID string) (int, error) {
	items, err := s.FavoritesByCollection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Store) touchCollection(ctx context.Context, id string) error {
	cols, err := s.loadCollections(ctx)
	if err != nil {
		return err
	}
	for i := range cols {
		if cols[i].ID == id {
			cols[i].UpdatedAt = s.now().UTC()
			return s.saveCollections(ctx, cols)
		}
	}
	return nil
}

func (s *Store) invalidate(collectionID string) {
	s.mu.Lock()
	delete(s.cache, collectionID)
	s.mu.Unlock()
}

func (s *Store) publish(ctx context.Context, ev Event) {
	if s.pub == nil {
		return
	}
	ev.Namespace = s.ns
	ev.At = s.now().UTC()
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("action", ev.Action).Msg("failed to publish favorites event")
	}
}

func (s *Store) loadCollections(ctx context.Context) ([]Collection, error) {
	var cols []Collection
	if err := s.loadBlob(ctx, s.collectionsKey(), &cols); err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	return cols, nil
}

func (s *Store) saveCollections(ctx context.Context, cols []Collection) error {
	if err := s.saveBlob(ctx, s.collectionsKey(), cols); err != nil {
		return fmt.Errorf("save collections: %w", err)
	}
	return nil
}

func (s *Store) loadFavorites(ctx context.Context) ([]FavoriteItem, error) {
	var items []FavoriteItem
	if err := s.loadBlob(ctx, s.favoritesKey(), &items); err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	return items, nil
}

func (s *Store) saveFavorites(ctx context.Context, items []FavoriteItem) error {
	if err := s.saveBlob(ctx, s.favoritesKey(), items); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

// loadBlob treats a corrupted blob as empty rather than fatal; the
// diagnostic is logged and the store keeps working.
func (s *Store) loadBlob(ctx context.Context, key string, out any) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("corrupted blob, treating as empty")
	}
	return nil
}

func (s *Store) saveBlob(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, raw)
}
