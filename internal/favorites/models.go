package favorites

import (
	"encoding/json"
	"time"
)

// Collection is a user-curated group of favorite items. Lifecycle:
// created by explicit action, mutated on rename, destroyed on delete
// (cascading to its items).
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CollectionPatch carries the mutable collection fields; nil means
// leave unchanged.
type CollectionPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// FavoriteItem stores a domain payload (news story, wallpaper metadata)
// under a collection. At most one item exists per (collectionId,
// externalId) pair.
type FavoriteItem struct {
	ID           string          `json:"id"`
	CollectionID string          `json:"collectionId"`
	ExternalID   string          `json:"externalId"`
	Payload      json.RawMessage `json:"payload"`
	AddedAt      time.Time       `json:"addedAt"`
}

// Event describes one mutation of the store, published to interested
// consumers after the write lands.
type Event struct {
	Action       string    `json:"action"`
	Namespace    string    `json:"namespace"`
	CollectionID string    `json:"collection_id"`
	ItemID       string    `json:"item_id,omitempty"`
	At           time.Time `json:"at"`
}

const (
	EventCollectionCreated = "collection.created"
	EventCollectionUpdated = "collection.updated"
	EventCollectionDeleted = "collection.deleted"
	EventFavoriteAdded     = "favorite.added"
	EventFavoriteRemoved   = "favorite.removed"
)
