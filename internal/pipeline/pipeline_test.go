package pipeline

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/mocks"
	"github.com/feral-file/ff-stamp-market/internal/query"
	"github.com/feral-file/ff-stamp-market/internal/store"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    store.Store
	index    *membership.Index
	pipeline *Pipeline
	creator  *schema.User
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(baseTime).AnyTimes()

	st := store.NewMemoryStore()
	index := membership.NewIndex(st, clock)
	comp := composer.New(st, index, 4)
	t.Cleanup(comp.Close)

	creator := &schema.User{ID: uuid.NewString(), Username: "creator", CreatedAt: baseTime}
	require.NoError(t, st.CreateUser(context.Background(), creator))

	return &fixture{
		store:    st,
		index:    index,
		pipeline: New(st, comp, index, Config{DefaultLimit: 10, MaxLimit: 100}),
		creator:  creator,
	}
}

// seedStamps creates n stamps, the i-th created i minutes after baseTime
func (f *fixture) seedStamps(t *testing.T, n int) []schema.Stamp {
	stamps := make([]schema.Stamp, 0, n)
	for i := 0; i < n; i++ {
		s := schema.Stamp{
			ID:        uuid.NewString(),
			Title:     fmt.Sprintf("Stamp %03d", i),
			Issuer:    "Royal Mail",
			CreatorID: f.creator.ID,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.store.CreateStamp(context.Background(), &s))
		stamps = append(stamps, s)
	}
	return stamps
}

func recordIDs(records []composer.CompositeRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Stamp.ID)
	}
	return ids
}

func TestQueryStamps_PagingCoversTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedStamps(t, 23)

	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		res, err := f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Page: page, Limit: 10}})
		require.NoError(t, err)
		assert.Equal(t, int64(23), res.Total)
		assert.Equal(t, 3, res.TotalPages)
		assert.Equal(t, page, res.Page)
		assert.Equal(t, 10, res.Limit)

		for _, id := range recordIDs(res.Items) {
			assert.False(t, seen[id], "stamp %s returned twice", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 23)

	res, err := f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Page: 4, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(23), res.Total)
}

func TestQueryStamps_DefaultsAndLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stamps := f.seedStamps(t, 120)

	res, err := f.pipeline.QueryStamps(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 10, res.Limit)
	require.Len(t, res.Items, 10)
	// default sort is newest first
	assert.Equal(t, stamps[119].ID, res.Items[0].Stamp.ID)

	res, err = f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Limit: 150}})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Limit)
	assert.Len(t, res.Items, 100)
	assert.Equal(t, 2, res.TotalPages)

	_, err = f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Page: -1}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Limit: -5}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Page: math.MaxInt / 50, Limit: 100}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// far past the end but representable: empty page, real total
	res, err = f.pipeline.QueryStamps(ctx, Request{Page: query.Page{Page: math.MaxInt / 100, Limit: 100}})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(120), res.Total)
}

func TestQueryStamps_RejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		req  Request
	}{
		{name: "unknown filter field", req: Request{Filter: query.NewFilter().Exact("colour", "red")}},
		{name: "substring on id field", req: Request{Filter: query.NewFilter().Contains(query.FieldOwnerID, "abc")}},
		{name: "malformed id", req: Request{Filter: query.NewFilter().Exact(query.FieldCreatorID, "not-a-uuid")}},
		{name: "unsortable field", req: Request{Sort: query.Sort{Field: query.FieldColor}}},
		{name: "unknown order", req: Request{Sort: query.Sort{Field: query.FieldTitle, Order: "sideways"}}},
		{name: "range on collection", req: Request{Filter: query.NewFilter().Range(query.FieldCollectionID, "a", nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.QueryStamps(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestQueryStamps_CollectionFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stamps := f.seedStamps(t, 6)

	colA := &schema.Collection{ID: uuid.NewString(), Name: "A", OwnerID: f.creator.ID, CreatedAt: baseTime}
	colB := &schema.Collection{ID: uuid.NewString(), Name: "B", OwnerID: f.creator.ID, CreatedAt: baseTime.Add(time.Minute)}
	require.NoError(t, f.store.CreateCollection(ctx, colA))
	require.NoError(t, f.store.CreateCollection(ctx, colB))
	for _, s := range stamps[:3] {
		_, err := f.index.Add(ctx, colA.ID, s.ID)
		require.NoError(t, err)
	}
	for _, s := range stamps[2:5] {
		_, err := f.index.Add(ctx, colB.ID, s.ID)
		require.NoError(t, err)
	}

	asc := query.Sort{Field: query.FieldCreatedAt, Order: query.OrderAsc}

	t.Run("exact", func(t *testing.T) {
		res, err := f.pipeline.QueryStamps(ctx, Request{Filter: query.NewFilter().Exact(query.FieldCollectionID, colA.ID), Sort: asc})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Total)
		assert.Equal(t, []string{stamps[0].ID, stamps[1].ID, stamps[2].ID}, recordIDs(res.Items))
	})

	t.Run("set", func(t *testing.T) {
		res, err := f.pipeline.QueryStamps(ctx, Request{Filter: query.NewFilter().In(query.FieldCollectionID, []string{colA.ID, colB.ID}), Sort: asc})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total)
	})

	t.Run("intersection", func(t *testing.T) {
		filter := query.NewFilter().Exact(query.FieldCollectionID, colA.ID).Exact(query.FieldCollectionID, colB.ID)
		res, err := f.pipeline.QueryStamps(ctx, Request{Filter: filter})
		require.NoError(t, err)
		assert.Equal(t, []string{stamps[2].ID}, recordIDs(res.Items))
	})

	t.Run("combined with text", func(t *testing.T) {
		filter := query.NewFilter().Exact(query.FieldCollectionID, colB.ID).Contains(query.FieldTitle, "stamp 004")
		res, err := f.pipeline.QueryStamps(ctx, Request{Filter: filter})
		require.NoError(t, err)
		assert.Equal(t, []string{stamps[4].ID}, recordIDs(res.Items))
	})

	t.Run("unknown collection", func(t *testing.T) {
		res, err := f.pipeline.QueryStamps(ctx, Request{Filter: query.NewFilter().Exact(query.FieldCollectionID, uuid.NewString())})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
		assert.Empty(t, res.Items)
	})
}

func TestQueryStamps_CurrentOwnerAndPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stamps := f.seedStamps(t, 3)

	alice := uuid.NewString()
	bob := uuid.NewString()
	// stamp 0 went alice -> bob, stamp 1 belongs to alice
	require.NoError(t, f.store.AppendOwnership(ctx, &schema.Ownership{StampID: stamps[0].ID, OwnerID: alice, CreatedAt: baseTime}))
	require.NoError(t, f.store.AppendOwnership(ctx, &schema.Ownership{StampID: stamps[0].ID, OwnerID: bob, CreatedAt: baseTime.Add(time.Hour)}))
	require.NoError(t, f.store.AppendOwnership(ctx, &schema.Ownership{StampID: stamps[1].ID, OwnerID: alice, CreatedAt: baseTime}))

	res, err := f.pipeline.QueryStamps(ctx, Request{Filter: query.NewFilter().Exact(query.FieldOwnerID, alice)})
	require.NoError(t, err)
	assert.Equal(t, []string{stamps[1].ID}, recordIDs(res.Items))

	require.NoError(t, f.store.AppendPricing(ctx, &schema.Pricing{StampID: stamps[0].ID, Price: decimal.NewFromInt(50), CreatedAt: baseTime}))
	require.NoError(t, f.store.AppendPricing(ctx, &schema.Pricing{StampID: stamps[0].ID, Price: decimal.NewFromInt(5), CreatedAt: baseTime.Add(time.Hour)}))
	require.NoError(t, f.store.AppendPricing(ctx, &schema.Pricing{StampID: stamps[1].ID, Price: decimal.NewFromInt(20), CreatedAt: baseTime}))

	res, err = f.pipeline.QueryStamps(ctx, Request{Sort: query.Sort{Field: query.FieldPrice, Order: query.OrderDesc}})
	require.NoError(t, err)
	// unpriced stamps sort last
	assert.Equal(t, []string{stamps[1].ID, stamps[0].ID, stamps[2].ID}, recordIDs(res.Items))
	require.NotNil(t, res.Items[1].Price)
	assert.True(t, decimal.NewFromInt(5).Equal(*res.Items[1].Price))
	assert.Nil(t, res.Items[2].Price)

	res, err = f.pipeline.QueryStamps(ctx, Request{Filter: query.NewFilter().Range(query.FieldPrice, "10", nil)})
	require.NoError(t, err)
	assert.Equal(t, []string{stamps[1].ID}, recordIDs(res.Items))
}

func TestQueryCollections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stamps := f.seedStamps(t, 2)

	other := &schema.User{ID: uuid.NewString(), Username: "other", CreatedAt: baseTime}
	require.NoError(t, f.store.CreateUser(ctx, other))

	var mine []string
	for i := 0; i < 4; i++ {
		c := &schema.Collection{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("Album %d", i),
			OwnerID:   f.creator.ID,
			Status:    string(domain.CollectionStatusPublished),
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.store.CreateCollection(ctx, c))
		mine = append(mine, c.ID)
	}
	require.NoError(t, f.store.CreateCollection(ctx, &schema.Collection{
		ID: uuid.NewString(), Name: "Elsewhere", OwnerID: other.ID, Status: string(domain.CollectionStatusDraft), CreatedAt: baseTime,
	}))
	for _, s := range stamps {
		_, err := f.index.Add(ctx, mine[3], s.ID)
		require.NoError(t, err)
	}

	res, err := f.pipeline.QueryCollections(ctx, Request{
		Filter: query.NewFilter().Exact(query.FieldOwnerID, f.creator.ID),
		Page:   query.Page{Page: 1, Limit: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Total)
	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Items, 3)
	assert.Equal(t, mine[3], res.Items[0].Collection.ID)
	assert.Equal(t, int64(2), res.Items[0].ItemCount)
	require.NotNil(t, res.Items[0].Owner)
	assert.Equal(t, "creator", res.Items[0].Owner.Username)

	res, err = f.pipeline.QueryCollections(ctx, Request{Filter: query.NewFilter().Exact(query.FieldStatus, "draft")})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Elsewhere", res.Items[0].Collection.Name)

	_, err = f.pipeline.QueryCollections(ctx, Request{Filter: query.NewFilter().Exact(query.FieldCollectionID, mine[0])})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
