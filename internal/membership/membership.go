package membership

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/store"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

// Index answers forward (collection -> stamps) and reverse (stamp -> collection)
// membership queries. Both directions read the same collection_items rows, so they
// cannot disagree.
type Index struct {
	store store.Store
	clock adapter.Clock
}

// NewIndex creates a membership index over st
func NewIndex(st store.Store, clock adapter.Clock) *Index {
	return &Index{store: st, clock: clock}
}

// MembersOf returns the stamp IDs of a collection in the order they were added
func (i *Index) MembersOf(ctx context.Context, collectionID string) ([]string, error) {
	items, err := i.store.GetCollectionItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	members := make([]string, 0, len(items))
	for _, item := range items {
		members = append(members, item.StampID)
	}
	return members, nil
}

// CollectionOf returns the collection a stamp belongs to.
// When a stamp is in several collections the earliest created one wins, ties by id.
// ok is false when the stamp is in no collection.
func (i *Index) CollectionOf(ctx context.Context, stampID string) (*schema.Collection, bool, error) {
	byStamp, err := i.CollectionsOf(ctx, []string{stampID})
	if err != nil {
		return nil, false, err
	}
	c, ok := byStamp[stampID]
	return c, ok, nil
}

// CollectionsOf resolves CollectionOf for a batch of stamps. Stamps in no
// collection are absent from the result.
func (i *Index) CollectionsOf(ctx context.Context, stampIDs []string) (map[string]*schema.Collection, error) {
	result := make(map[string]*schema.Collection, len(stampIDs))
	if len(stampIDs) == 0 {
		return result, nil
	}

	items, err := i.store.GetCollectionItemsByStampIDs(ctx, stampIDs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return result, nil
	}

	collectionIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.CollectionID] {
			seen[item.CollectionID] = true
			collectionIDs = append(collectionIDs, item.CollectionID)
		}
	}

	collections, err := i.store.GetCollectionsByIDs(ctx, collectionIDs)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		c, ok := collections[item.CollectionID]
		if !ok {
			continue
		}
		if current, exists := result[item.StampID]; !exists || createdEarlier(c, current) {
			result[item.StampID] = c
		}
	}
	return result, nil
}

func createdEarlier(a, b *schema.Collection) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Add puts a stamp into a collection. Adding an existing member is a no-op and
// reports false. Both the collection and the stamp must exist.
func (i *Index) Add(ctx context.Context, collectionID, stampID string) (bool, error) {
	collection, err := i.store.GetCollectionByID(ctx, collectionID)
	if err != nil {
		return false, err
	}
	if collection == nil {
		return false, fmt.Errorf("%w: collection %s", domain.ErrNotFound, collectionID)
	}

	stamp, err := i.store.GetStampByID(ctx, stampID)
	if err != nil {
		return false, err
	}
	if stamp == nil {
		return false, fmt.Errorf("%w: stamp %s", domain.ErrNotFound, stampID)
	}

	added, err := i.store.AddCollectionItem(ctx, &schema.CollectionItem{
		CollectionID: collectionID,
		StampID:      stampID,
		CreatedAt:    i.clock.Now(),
	})
	if err != nil {
		return false, err
	}

	logger.DebugCtx(ctx, "Collection item added",
		zap.String("collectionID", collectionID),
		zap.String("stampID", stampID),
		zap.Bool("added", added))

	return added, nil
}

// Remove takes a stamp out of a collection. Removing a non-member is a no-op.
func (i *Index) Remove(ctx context.Context, collectionID, stampID string) (bool, error) {
	collection, err := i.store.GetCollectionByID(ctx, collectionID)
	if err != nil {
		return false, err
	}
	if collection == nil {
		return false, fmt.Errorf("%w: collection %s", domain.ErrNotFound, collectionID)
	}

	return i.store.RemoveCollectionItem(ctx, collectionID, stampID)
}

// RemoveStamp takes a stamp out of every collection
func (i *Index) RemoveStamp(ctx context.Context, stampID string) (int64, error) {
	return i.store.RemoveStampFromCollections(ctx, stampID)
}
