package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/query"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
	"github.com/feral-file/ff-stamp-market/internal/timeline"
)

// memStore is a mutex-guarded in-process Store. It evaluates filters with
// query.Match over the same derived fields the postgres store joins in,
// and is used for tests and local runs without a database.
type memStore struct {
	mu sync.RWMutex

	users       map[string]schema.User
	usernames   map[string]string
	stamps      map[string]schema.Stamp
	ownerships  []schema.Ownership
	pricings    []schema.Pricing
	insights    map[string]schema.Insight
	collections map[string]schema.Collection
	names       map[string]string
	items       []schema.CollectionItem

	ownershipSeq int64
	pricingSeq   int64
	itemSeq      int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memStore{
		users:       make(map[string]schema.User),
		usernames:   make(map[string]string),
		stamps:      make(map[string]schema.Stamp),
		insights:    make(map[string]schema.Insight),
		collections: make(map[string]schema.Collection),
		names:       make(map[string]string),
	}
}

func conflict(op, format string, args ...interface{}) error {
	return fmt.Errorf("failed to %s: %w: %s", op, domain.ErrConflict, fmt.Sprintf(format, args...))
}

func collectionNameKey(ownerID, name string) string {
	return ownerID + "\x00" + name
}

// =============================================================================
// Users
// =============================================================================

func (m *memStore) CreateUser(ctx context.Context, user *schema.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return conflict("create user", "user %s already exists", user.ID)
	}
	if _, taken := m.usernames[user.Username]; taken {
		return conflict("create user", "username %q already taken", user.Username)
	}
	m.users[user.ID] = *user
	m.usernames[user.Username] = user.ID
	return nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*schema.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *memStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*schema.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*schema.User, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result[id] = &user
		}
	}
	return result, nil
}

// =============================================================================
// Stamps
// =============================================================================

func (m *memStore) CreateStamp(ctx context.Context, stamp *schema.Stamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stamps[stamp.ID]; exists {
		return conflict("create stamp", "stamp %s already exists", stamp.ID)
	}
	m.stamps[stamp.ID] = *stamp
	return nil
}

func (m *memStore) GetStampByID(ctx context.Context, id string) (*schema.Stamp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stamp, ok := m.stamps[id]
	if !ok {
		return nil, nil
	}
	return &stamp, nil
}

// stampRows flattens every stamp with its derived fields. Caller holds the lock.
func (m *memStore) stampRows() map[string]query.Row {
	owners := timeline.LatestByStamp(m.ownerships)
	prices := timeline.LatestByStamp(m.pricings)

	rows := make(map[string]query.Row, len(m.stamps))
	for id, s := range m.stamps {
		row := query.Row{
			query.FieldID:             s.ID,
			query.FieldCreatedAt:      s.CreatedAt,
			query.FieldTitle:          s.Title,
			query.FieldIssuer:         s.Issuer,
			query.FieldFunction:       s.Function,
			query.FieldColor:          s.Color,
			query.FieldCreatorID:      s.CreatorID,
			query.FieldVerifyStatus:   string(domain.VerifyStatusUnverified),
			query.FieldIsListed:       false,
			query.FieldViewCount:      int64(0),
			query.FieldFavouriteCount: int64(0),
		}
		if s.Date != nil {
			row[query.FieldDate] = s.Date.UTC()
		}
		if s.TokenID != nil {
			row[query.FieldTokenID] = *s.TokenID
		}
		if o, ok := owners[id]; ok {
			row[query.FieldOwnerID] = o.OwnerID
		}
		if p, ok := prices[id]; ok {
			row[query.FieldPrice] = p.Price
		}
		if in, ok := m.insights[id]; ok {
			row[query.FieldVerifyStatus] = in.VerifyStatus
			row[query.FieldIsListed] = in.IsListed
			row[query.FieldViewCount] = in.ViewCount
			row[query.FieldFavouriteCount] = in.FavouriteCount
		}
		rows[id] = row
	}
	return rows
}

func matchingIDs(rows map[string]query.Row, filter *query.Filter) []string {
	ids := make([]string, 0, len(rows))
	for id, row := range rows {
		if query.Match(filter, row) {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortAndWindow(ids []string, rows map[string]query.Row, s query.Sort, window query.Window) []string {
	sort.Slice(ids, func(i, j int) bool {
		return query.Compare(rows[ids[i]], rows[ids[j]], s) < 0
	})
	if window.Skip < 0 || window.Skip >= len(ids) {
		return nil
	}
	end := len(ids)
	if window.Limit < end-window.Skip {
		end = window.Skip + window.Limit
	}
	return ids[window.Skip:end]
}

func (m *memStore) FindStamps(ctx context.Context, filter *query.Filter, s query.Sort, window query.Window) ([]schema.Stamp, error) {
	if err := checkFields(stampColumns, filter); err != nil {
		return nil, wrapError("find stamps", err)
	}
	if _, err := orderClause(stampColumns, s); err != nil {
		return nil, wrapError("find stamps", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.stampRows()
	ids := sortAndWindow(matchingIDs(rows, filter), rows, s, window)

	stamps := make([]schema.Stamp, 0, len(ids))
	for _, id := range ids {
		stamps = append(stamps, m.stamps[id])
	}
	return stamps, nil
}

func (m *memStore) CountStamps(ctx context.Context, filter *query.Filter) (int64, error) {
	if err := checkFields(stampColumns, filter); err != nil {
		return 0, wrapError("count stamps", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(matchingIDs(m.stampRows(), filter))), nil
}

func (m *memStore) UpdateStampToken(ctx context.Context, id string, update StampTokenUpdate, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp, ok := m.stamps[id]
	if !ok {
		return false, nil
	}
	if update.TokenID != nil {
		v := *update.TokenID
		stamp.TokenID = &v
	}
	if update.ImageURL != nil {
		v := *update.ImageURL
		stamp.ImageURL = &v
	}
	stamp.UpdatedAt = at
	m.stamps[id] = stamp
	return true, nil
}

func (m *memStore) DeleteStamp(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stamps, id)
	return nil
}

// =============================================================================
// Ownership and pricing logs
// =============================================================================

func (m *memStore) AppendOwnership(ctx context.Context, entry *schema.Ownership) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ownershipSeq++
	entry.ID = m.ownershipSeq
	m.ownerships = append(m.ownerships, *entry)
	return nil
}

func (m *memStore) GetOwnerships(ctx context.Context, stampID string) ([]schema.Ownership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := filterByStamp(m.ownerships, stampID)
	timeline.SortNewestFirst(entries)
	return entries, nil
}

func (m *memStore) GetLatestOwnerships(ctx context.Context, stampIDs []string) ([]schema.Ownership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return latestOf(m.ownerships, stampIDs), nil
}

func (m *memStore) DeleteOwnerships(ctx context.Context, stampID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ownerships = removeByStamp(m.ownerships, stampID)
	return nil
}

func (m *memStore) AppendPricing(ctx context.Context, entry *schema.Pricing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pricingSeq++
	entry.ID = m.pricingSeq
	m.pricings = append(m.pricings, *entry)
	return nil
}

func (m *memStore) GetPricings(ctx context.Context, stampID string) ([]schema.Pricing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := filterByStamp(m.pricings, stampID)
	timeline.SortNewestFirst(entries)
	return entries, nil
}

func (m *memStore) GetLatestPricings(ctx context.Context, stampIDs []string) ([]schema.Pricing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return latestOf(m.pricings, stampIDs), nil
}

func (m *memStore) DeletePricings(ctx context.Context, stampID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pricings = removeByStamp(m.pricings, stampID)
	return nil
}

func filterByStamp[E timeline.Entry](entries []E, stampID string) []E {
	out := make([]E, 0)
	for _, e := range entries {
		if e.EntryStampID() == stampID {
			out = append(out, e)
		}
	}
	return out
}

func removeByStamp[E timeline.Entry](entries []E, stampID string) []E {
	out := entries[:0]
	for _, e := range entries {
		if e.EntryStampID() != stampID {
			out = append(out, e)
		}
	}
	return out
}

func latestOf[E timeline.Entry](entries []E, stampIDs []string) []E {
	heads := timeline.LatestByStamp(entries)
	out := make([]E, 0, len(stampIDs))
	seen := make(map[string]bool, len(stampIDs))
	for _, id := range stampIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if head, ok := heads[id]; ok {
			out = append(out, head)
		}
	}
	return out
}

// =============================================================================
// Insights
// =============================================================================

func (m *memStore) GetInsightsByStampIDs(ctx context.Context, stampIDs []string) (map[string]*schema.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*schema.Insight, len(stampIDs))
	for _, id := range stampIDs {
		if in, ok := m.insights[id]; ok {
			result[id] = &in
		}
	}
	return result, nil
}

// insightFor returns the insight of a stamp, creating a fresh one if absent. Caller holds the lock.
func (m *memStore) insightFor(stampID string, at time.Time) schema.Insight {
	in, ok := m.insights[stampID]
	if !ok {
		in = schema.Insight{
			StampID:      stampID,
			VerifyStatus: string(domain.VerifyStatusUnverified),
			CreatedAt:    at,
		}
	}
	in.UpdatedAt = at
	return in
}

func (m *memStore) IncrementInsightCounter(ctx context.Context, stampID string, metric domain.Metric, delta int64, at time.Time) error {
	if _, err := metricColumn(metric); err != nil {
		return wrapError("increment insight counter", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	in := m.insightFor(stampID, at)
	switch metric {
	case domain.MetricViewCount:
		in.ViewCount += delta
	case domain.MetricFavouriteCount:
		in.FavouriteCount += delta
	}
	m.insights[stampID] = in
	return nil
}

func (m *memStore) UpdateInsight(ctx context.Context, stampID string, update InsightUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	in := m.insightFor(stampID, at)
	if update.VerifyStatus != nil {
		in.VerifyStatus = string(*update.VerifyStatus)
	}
	if update.IsListed != nil {
		in.IsListed = *update.IsListed
	}
	m.insights[stampID] = in
	return nil
}

func (m *memStore) ResetInsightCounters(ctx context.Context, stampID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	in, ok := m.insights[stampID]
	if !ok {
		return nil
	}
	in.ViewCount = 0
	in.FavouriteCount = 0
	in.UpdatedAt = at
	m.insights[stampID] = in
	return nil
}

func (m *memStore) DeleteInsight(ctx context.Context, stampID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.insights, stampID)
	return nil
}

func metricOf(metric domain.Metric, views, favourites int64) int64 {
	if metric == domain.MetricFavouriteCount {
		return favourites
	}
	return views
}

// createdBefore orders by creation time then id
func createdBefore(aTime, bTime time.Time, aID, bID string) bool {
	if !aTime.Equal(bTime) {
		return aTime.Before(bTime)
	}
	return aID < bID
}

func (m *memStore) RankStamps(ctx context.Context, metric domain.Metric, limit int) ([]RankedStamp, error) {
	if _, err := metricColumn(metric); err != nil {
		return nil, wrapError("rank stamps", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ranked := make([]RankedStamp, 0, len(m.insights))
	for id, in := range m.insights {
		stamp, ok := m.stamps[id]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedStamp{Stamp: stamp, Insight: in})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		av := metricOf(metric, a.Insight.ViewCount, a.Insight.FavouriteCount)
		bv := metricOf(metric, b.Insight.ViewCount, b.Insight.FavouriteCount)
		if av != bv {
			return av > bv
		}
		return createdBefore(a.Stamp.CreatedAt, b.Stamp.CreatedAt, a.Stamp.ID, b.Stamp.ID)
	})

	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// =============================================================================
// Collections
// =============================================================================

func (m *memStore) CreateCollection(ctx context.Context, collection *schema.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.collections[collection.ID]; exists {
		return conflict("create collection", "collection %s already exists", collection.ID)
	}
	key := collectionNameKey(collection.OwnerID, collection.Name)
	if _, taken := m.names[key]; taken {
		return conflict("create collection", "collection name %q already used by owner", collection.Name)
	}
	m.collections[collection.ID] = *collection
	m.names[key] = collection.ID
	return nil
}

func (m *memStore) GetCollectionByID(ctx context.Context, id string) (*schema.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) GetCollectionsByIDs(ctx context.Context, ids []string) (map[string]*schema.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*schema.Collection, len(ids))
	for _, id := range ids {
		if c, ok := m.collections[id]; ok {
			result[id] = &c
		}
	}
	return result, nil
}

// collectionRows flattens every collection. Caller holds the lock.
func (m *memStore) collectionRows() map[string]query.Row {
	rows := make(map[string]query.Row, len(m.collections))
	for id, c := range m.collections {
		rows[id] = query.Row{
			query.FieldID:             c.ID,
			query.FieldCreatedAt:      c.CreatedAt,
			query.FieldName:           c.Name,
			query.FieldOwnerID:        c.OwnerID,
			query.FieldStatus:         c.Status,
			query.FieldViewCount:      c.ViewCount,
			query.FieldFavouriteCount: c.FavouriteCount,
		}
	}
	return rows
}

func (m *memStore) FindCollections(ctx context.Context, filter *query.Filter, s query.Sort, window query.Window) ([]schema.Collection, error) {
	if err := checkFields(collectionColumns, filter); err != nil {
		return nil, wrapError("find collections", err)
	}
	if _, err := orderClause(collectionColumns, s); err != nil {
		return nil, wrapError("find collections", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.collectionRows()
	ids := sortAndWindow(matchingIDs(rows, filter), rows, s, window)

	collections := make([]schema.Collection, 0, len(ids))
	for _, id := range ids {
		collections = append(collections, m.collections[id])
	}
	return collections, nil
}

func (m *memStore) CountCollections(ctx context.Context, filter *query.Filter) (int64, error) {
	if err := checkFields(collectionColumns, filter); err != nil {
		return 0, wrapError("count collections", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(matchingIDs(m.collectionRows(), filter))), nil
}

func (m *memStore) IncrementCollectionCounter(ctx context.Context, id string, metric domain.Metric, delta int64) (bool, error) {
	if _, err := metricColumn(metric); err != nil {
		return false, wrapError("increment collection counter", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[id]
	if !ok {
		return false, nil
	}
	switch metric {
	case domain.MetricViewCount:
		c.ViewCount += delta
	case domain.MetricFavouriteCount:
		c.FavouriteCount += delta
	}
	m.collections[id] = c
	return true, nil
}

func (m *memStore) RankCollections(ctx context.Context, metric domain.Metric, limit int) ([]schema.Collection, error) {
	if _, err := metricColumn(metric); err != nil {
		return nil, wrapError("rank collections", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ranked := make([]schema.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		av := metricOf(metric, a.ViewCount, a.FavouriteCount)
		bv := metricOf(metric, b.ViewCount, b.FavouriteCount)
		if av != bv {
			return av > bv
		}
		return createdBefore(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})

	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// =============================================================================
// Collection membership
// =============================================================================

func (m *memStore) AddCollectionItem(ctx context.Context, item *schema.CollectionItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		if existing.CollectionID == item.CollectionID && existing.StampID == item.StampID {
			return false, nil
		}
	}
	m.itemSeq++
	item.ID = m.itemSeq
	m.items = append(m.items, *item)
	return true, nil
}

func (m *memStore) RemoveCollectionItem(ctx context.Context, collectionID, stampID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.items {
		if existing.CollectionID == collectionID && existing.StampID == stampID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RemoveStampFromCollections(ctx context.Context, stampID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	kept := m.items[:0]
	for _, item := range m.items {
		if item.StampID == stampID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	return removed, nil
}

// GetCollectionItems scans m.items, which are kept in sequence order
func (m *memStore) GetCollectionItems(ctx context.Context, collectionID string) ([]schema.CollectionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]schema.CollectionItem, 0)
	for _, item := range m.items {
		if item.CollectionID == collectionID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memStore) GetCollectionItemsByStampIDs(ctx context.Context, stampIDs []string) ([]schema.CollectionItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(stampIDs))
	for _, id := range stampIDs {
		wanted[id] = true
	}
	items := make([]schema.CollectionItem, 0)
	for _, item := range m.items {
		if wanted[item.StampID] {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memStore) CountCollectionItems(ctx context.Context, collectionIDs []string) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int64, len(collectionIDs))
	wanted := make(map[string]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		wanted[id] = true
	}
	for _, item := range m.items {
		if wanted[item.CollectionID] {
			result[item.CollectionID]++
		}
	}
	return result, nil
}
