package composer

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/store"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
	"github.com/feral-file/ff-stamp-market/internal/timeline"
)

const defaultPoolSize = 8

// CompositeRecord is a stamp joined with its side data. Every side field is
// optional; a missing insight, owner, price or collection is nil, never an error.
type CompositeRecord struct {
	Stamp   schema.Stamp
	Creator *schema.User
	// OwnerID is the current owner from the ownership log, nil before the first entry
	OwnerID *string
	// Owner is the user record of OwnerID, nil if the user is unknown
	Owner      *schema.User
	Price      *decimal.Decimal
	PricedAt   *time.Time
	Insight    *schema.Insight
	Collection *schema.Collection
}

// CollectionSummary is a collection joined with its owner and item count
type CollectionSummary struct {
	Collection schema.Collection
	Owner      *schema.User
	ItemCount  int64
}

// Composer assembles composite records by batch-loading side tables concurrently
type Composer struct {
	store      store.Store
	membership *membership.Index
	pool       pond.Pool
}

// New creates a composer with a bounded worker pool of poolSize goroutines
func New(st store.Store, index *membership.Index, poolSize int) *Composer {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &Composer{
		store:      st,
		membership: index,
		pool:       pond.NewPool(poolSize),
	}
}

// Close stops the worker pool after in-flight loads complete
func (c *Composer) Close() {
	c.pool.StopAndWait()
}

// sideData holds the batch loads for a set of stamps
type sideData struct {
	insights    map[string]*schema.Insight
	owners      map[string]schema.Ownership
	prices      map[string]schema.Pricing
	collections map[string]*schema.Collection
	users       map[string]*schema.User
}

// Compose joins each stamp with its insight, creator, current owner, current price
// and collection. The output preserves the input order.
func (c *Composer) Compose(ctx context.Context, stamps []schema.Stamp) ([]CompositeRecord, error) {
	if len(stamps) == 0 {
		return []CompositeRecord{}, nil
	}

	ids := make([]string, 0, len(stamps))
	for _, s := range stamps {
		ids = append(ids, s.ID)
	}

	data, err := c.load(ctx, stamps, ids)
	if err != nil {
		return nil, err
	}

	records := make([]CompositeRecord, 0, len(stamps))
	for _, s := range stamps {
		record := CompositeRecord{
			Stamp:      s,
			Creator:    data.users[s.CreatorID],
			Insight:    data.insights[s.ID],
			Collection: data.collections[s.ID],
		}
		if o, ok := data.owners[s.ID]; ok {
			ownerID := o.OwnerID
			record.OwnerID = &ownerID
			record.Owner = data.users[o.OwnerID]
		}
		if p, ok := data.prices[s.ID]; ok {
			price := p.Price
			pricedAt := p.CreatedAt
			record.Price = &price
			record.PricedAt = &pricedAt
		}
		records = append(records, record)
	}

	logger.DebugCtx(ctx, "Composed stamps",
		zap.Int("stamps", len(records)),
		zap.Int("insights", len(data.insights)),
		zap.Int("owners", len(data.owners)),
		zap.Int("prices", len(data.prices)),
		zap.Int("collections", len(data.collections)))

	return records, nil
}

// ComposeOne composes a single stamp
func (c *Composer) ComposeOne(ctx context.Context, stamp schema.Stamp) (CompositeRecord, error) {
	records, err := c.Compose(ctx, []schema.Stamp{stamp})
	if err != nil {
		return CompositeRecord{}, err
	}
	return records[0], nil
}

func (c *Composer) load(ctx context.Context, stamps []schema.Stamp, ids []string) (*sideData, error) {
	data := &sideData{}

	// Each task writes its own field; users depend on the owners and load after Wait
	group := c.pool.NewGroupContext(ctx)
	group.SubmitErr(
		func() error {
			insights, err := c.store.GetInsightsByStampIDs(ctx, ids)
			data.insights = insights
			return err
		},
		func() error {
			entries, err := c.store.GetLatestOwnerships(ctx, ids)
			data.owners = timeline.LatestByStamp(entries)
			return err
		},
		func() error {
			entries, err := c.store.GetLatestPricings(ctx, ids)
			data.prices = timeline.LatestByStamp(entries)
			return err
		},
		func() error {
			collections, err := c.membership.CollectionsOf(ctx, ids)
			data.collections = collections
			return err
		},
	)
	if err := group.Wait(); err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(stamps)*2)
	seen := make(map[string]bool, len(stamps)*2)
	addUser := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			userIDs = append(userIDs, id)
		}
	}
	for _, s := range stamps {
		addUser(s.CreatorID)
	}
	for _, o := range data.owners {
		addUser(o.OwnerID)
	}

	users, err := c.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	data.users = users

	return data, nil
}

// ComposeCollections joins each collection with its owner and item count,
// preserving the input order
func (c *Composer) ComposeCollections(ctx context.Context, collections []schema.Collection) ([]CollectionSummary, error) {
	if len(collections) == 0 {
		return []CollectionSummary{}, nil
	}

	ids := make([]string, 0, len(collections))
	ownerIDs := make([]string, 0, len(collections))
	for _, col := range collections {
		ids = append(ids, col.ID)
		ownerIDs = append(ownerIDs, col.OwnerID)
	}

	var (
		counts map[string]int64
		owners map[string]*schema.User
	)
	group := c.pool.NewGroupContext(ctx)
	group.SubmitErr(
		func() error {
			result, err := c.store.CountCollectionItems(ctx, ids)
			counts = result
			return err
		},
		func() error {
			result, err := c.store.GetUsersByIDs(ctx, ownerIDs)
			owners = result
			return err
		},
	)
	if err := group.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]CollectionSummary, 0, len(collections))
	for _, col := range collections {
		summaries = append(summaries, CollectionSummary{
			Collection: col,
			Owner:      owners[col.OwnerID],
			ItemCount:  counts[col.ID],
		})
	}
	return summaries, nil
}
