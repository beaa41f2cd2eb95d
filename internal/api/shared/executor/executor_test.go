package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stamp-market/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-stamp-market/internal/api/shared/errors"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/types"
	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/mocks"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

var baseTime = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

// newTestExecutor builds an executor over st whose clock advances one second per call
func newTestExecutor(t *testing.T, st store.Store) Executor {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	tick := 0
	clock.EXPECT().Now().DoAndReturn(func() time.Time {
		tick++
		return baseTime.Add(time.Duration(tick) * time.Second)
	}).AnyTimes()

	if st == nil {
		st = store.NewMemoryStore()
	}
	index := membership.NewIndex(st, clock)
	comp := composer.New(st, index, 4)
	t.Cleanup(comp.Close)

	return NewExecutor(st, index, comp, clock, Config{DefaultLimit: 10, MaxLimit: 100, TrendingSize: 10})
}

func assertAPIError(t *testing.T, err error, code apierrors.ErrorCode) {
	t.Helper()
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, code, apiErr.Code)
}

func mustCreateUser(t *testing.T, exec Executor, username string) *dto.UserResponse {
	user, err := exec.CreateUser(context.Background(), dto.CreateUserRequest{Username: username, DisplayName: username})
	require.NoError(t, err)
	return user
}

func mustCreateStamp(t *testing.T, exec Executor, creatorID, title string, price *string) *dto.StampResponse {
	stamp, err := exec.CreateStamp(context.Background(), dto.CreateStampRequest{
		Title:     title,
		Issuer:    "Royal Mail",
		Function:  "postage",
		Color:     "black",
		CreatorID: creatorID,
		Price:     price,
	})
	require.NoError(t, err)
	return stamp
}

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)

	user := mustCreateUser(t, exec, "alice")
	assert.Equal(t, "alice", user.Username)
	_, err := uuid.Parse(user.ID)
	assert.NoError(t, err)

	_, err = exec.CreateUser(ctx, dto.CreateUserRequest{Username: "alice"})
	assertAPIError(t, err, apierrors.ErrCodeConflict)

	_, err = exec.CreateUser(ctx, dto.CreateUserRequest{Username: "   "})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
}

func TestCreateStamp(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")

	stamp := mustCreateStamp(t, exec, creator.ID, "Penny Black", strPtr("12.50"))
	require.NotNil(t, stamp.OwnerID)
	assert.Equal(t, creator.ID, *stamp.OwnerID)
	require.NotNil(t, stamp.Owner)
	assert.Equal(t, "creator", stamp.Owner.Username)
	require.NotNil(t, stamp.Price)
	assert.Equal(t, "12.5", *stamp.Price)
	assert.Equal(t, domain.VerifyStatusUnverified, stamp.VerifyStatus)
	assert.Zero(t, stamp.ViewCount)

	unpriced := mustCreateStamp(t, exec, creator.ID, "Two Penny Blue", nil)
	assert.Nil(t, unpriced.Price)

	tests := []struct {
		name string
		req  dto.CreateStampRequest
		code apierrors.ErrorCode
	}{
		{name: "missing title", req: dto.CreateStampRequest{CreatorID: creator.ID}, code: apierrors.ErrCodeValidationFailed},
		{name: "malformed creator", req: dto.CreateStampRequest{Title: "x", CreatorID: "nope"}, code: apierrors.ErrCodeValidationFailed},
		{name: "negative price", req: dto.CreateStampRequest{Title: "x", CreatorID: creator.ID, Price: strPtr("-1")}, code: apierrors.ErrCodeValidationFailed},
		{name: "invalid metadata", req: dto.CreateStampRequest{Title: "x", CreatorID: creator.ID, Metadata: []byte("{")}, code: apierrors.ErrCodeValidationFailed},
		{name: "unknown creator", req: dto.CreateStampRequest{Title: "x", CreatorID: uuid.NewString()}, code: apierrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.CreateStamp(ctx, tt.req)
			assertAPIError(t, err, tt.code)
		})
	}
}

func TestCreateStamp_CanonicalMetadata(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")

	stamp, err := exec.CreateStamp(ctx, dto.CreateStampRequest{
		Title:     "Basel Dove",
		CreatorID: creator.ID,
		Metadata:  []byte(`{ "perforation": "none", "catalog": { "scott": 3, "michel": 1 } }`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"catalog":{"michel":1,"scott":3},"perforation":"none"}`, string(stamp.Metadata))
}

func TestGetStamp(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")
	stamp := mustCreateStamp(t, exec, creator.ID, "Inverted Jenny", nil)

	got, err := exec.GetStamp(ctx, stamp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inverted Jenny", got.Title)

	// ids are case-insensitive
	_, err = exec.GetStamp(ctx, uppercase(stamp.ID))
	require.NoError(t, err)

	_, err = exec.GetStamp(ctx, "not-a-uuid")
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	_, err = exec.GetStamp(ctx, uuid.NewString())
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
}

func uppercase(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestTransferAndHistory(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")
	buyer := mustCreateUser(t, exec, "buyer")
	stamp := mustCreateStamp(t, exec, creator.ID, "Basel Dove", strPtr("100"))

	entry, err := exec.TransferStamp(ctx, stamp.ID, dto.TransferStampRequest{OwnerID: buyer.ID})
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, entry.OwnerID)

	_, err = exec.TransferStamp(ctx, stamp.ID, dto.TransferStampRequest{OwnerID: uuid.NewString()})
	assertAPIError(t, err, apierrors.ErrCodeNotFound)

	got, err := exec.GetStamp(ctx, stamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, buyer.ID, *got.OwnerID)

	history, err := exec.OwnershipHistory(ctx, stamp.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, buyer.ID, history[0].OwnerID)
	assert.Equal(t, creator.ID, history[1].OwnerID)
	require.NotNil(t, history[1].Owner)
	assert.Equal(t, "creator", history[1].Owner.Username)

	_, err = exec.SetStampPrice(ctx, stamp.ID, dto.SetStampPriceRequest{Price: "150.25"})
	require.NoError(t, err)
	_, err = exec.SetStampPrice(ctx, stamp.ID, dto.SetStampPriceRequest{Price: "abc"})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	prices, err := exec.PriceHistory(ctx, stamp.ID)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "150.25", prices[0].Price)
	assert.Equal(t, "100", prices[1].Price)

	_, err = exec.OwnershipHistory(ctx, uuid.NewString())
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
}

func TestUpdateStampToken(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")
	stamp := mustCreateStamp(t, exec, creator.ID, "Mauritius Post Office", nil)

	got, err := exec.UpdateStampToken(ctx, stamp.ID, dto.UpdateStampTokenRequest{TokenID: strPtr("tez-1")})
	require.NoError(t, err)
	require.NotNil(t, got.TokenID)
	assert.Equal(t, "tez-1", *got.TokenID)
	assert.True(t, got.UpdatedAt.After(stamp.UpdatedAt))

	_, err = exec.UpdateStampToken(ctx, stamp.ID, dto.UpdateStampTokenRequest{})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	_, err = exec.UpdateStampToken(ctx, uuid.NewString(), dto.UpdateStampTokenRequest{ImageURL: strPtr("https://img")})
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
}

func TestCountersAndCuration(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")
	first := mustCreateStamp(t, exec, creator.ID, "first", nil)
	second := mustCreateStamp(t, exec, creator.ID, "second", nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, exec.IncrementCounter(ctx, domain.EntityKindStamp, second.ID, domain.MetricViewCount))
	}
	require.NoError(t, exec.IncrementCounter(ctx, domain.EntityKindStamp, first.ID, domain.MetricViewCount))
	require.NoError(t, exec.IncrementCounter(ctx, domain.EntityKindStamp, first.ID, domain.MetricFavouriteCount))

	got, err := exec.GetStamp(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ViewCount)

	trending, err := exec.TrendingStamps(ctx, domain.MetricViewCount, 0)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, second.ID, trending[0].ID)

	err = exec.IncrementCounter(ctx, domain.EntityKindStamp, uuid.NewString(), domain.MetricViewCount)
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
	err = exec.IncrementCounter(ctx, domain.EntityKindStamp, first.ID, domain.Metric("likes"))
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
	err = exec.IncrementCounter(ctx, domain.EntityKind("user"), first.ID, domain.MetricViewCount)
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	require.NoError(t, exec.ResetInsightCounters(ctx, second.ID))
	got, err = exec.GetStamp(ctx, second.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ViewCount)

	verified, err := exec.SetStampVerification(ctx, first.ID, domain.VerifyStatusVerified)
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyStatusVerified, verified.VerifyStatus)
	assert.Equal(t, int64(1), verified.FavouriteCount)

	_, err = exec.SetStampVerification(ctx, first.ID, domain.VerifyStatus("maybe"))
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	listed, err := exec.SetStampListing(ctx, first.ID, true)
	require.NoError(t, err)
	assert.True(t, listed.IsListed)

	isListed := true
	page, err := exec.QueryStamps(ctx, types.StampQuery{IsListed: &isListed, VerifyStatus: "verified"})
	require.NoError(t, err)
	require.Len(t, page.Stamps, 1)
	assert.Equal(t, first.ID, page.Stamps[0].ID)
}

func TestQueryStamps(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	creator := mustCreateUser(t, exec, "creator")
	other := mustCreateUser(t, exec, "other")

	cheap := mustCreateStamp(t, exec, creator.ID, "Cheap Airmail", strPtr("5"))
	dear := mustCreateStamp(t, exec, creator.ID, "Dear Airmail", strPtr("500"))
	mustCreateStamp(t, exec, creator.ID, "Plain Postage", nil)
	_, err := exec.TransferStamp(ctx, dear.ID, dto.TransferStampRequest{OwnerID: other.ID})
	require.NoError(t, err)

	page, err := exec.QueryStamps(ctx, types.StampQuery{Title: "airmail", SortBy: types.StampSortByPrice, Order: types.OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Stamps, 2)
	assert.Equal(t, cheap.ID, page.Stamps[0].ID)

	page, err = exec.QueryStamps(ctx, types.StampQuery{OwnerID: other.ID})
	require.NoError(t, err)
	require.Len(t, page.Stamps, 1)
	assert.Equal(t, dear.ID, page.Stamps[0].ID)

	page, err = exec.QueryStamps(ctx, types.StampQuery{MinPrice: strPtr("10")})
	require.NoError(t, err)
	require.Len(t, page.Stamps, 1)
	assert.Equal(t, dear.ID, page.Stamps[0].ID)

	page, err = exec.QueryStamps(ctx, types.StampQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Stamps, 2)

	_, err = exec.QueryStamps(ctx, types.StampQuery{SortBy: "color"})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
	_, err = exec.QueryStamps(ctx, types.StampQuery{CreatorID: "bad"})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
	_, err = exec.QueryStamps(ctx, types.StampQuery{VerifyStatus: "maybe"})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
	_, err = exec.QueryStamps(ctx, types.StampQuery{Page: -1})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	owner := mustCreateUser(t, exec, "owner")
	s1 := mustCreateStamp(t, exec, owner.ID, "s1", nil)
	s2 := mustCreateStamp(t, exec, owner.ID, "s2", nil)

	col, err := exec.CreateCollection(ctx, dto.CreateCollectionRequest{Name: "Classics", OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusDraft, col.Status)

	_, err = exec.CreateCollection(ctx, dto.CreateCollectionRequest{Name: "Classics", OwnerID: owner.ID})
	assertAPIError(t, err, apierrors.ErrCodeConflict)
	_, err = exec.CreateCollection(ctx, dto.CreateCollectionRequest{Name: "Ghost", OwnerID: uuid.NewString()})
	assertAPIError(t, err, apierrors.ErrCodeNotFound)

	for _, id := range []string{s1.ID, s2.ID, s1.ID} {
		_, err := exec.AddToCollection(ctx, col.ID, id)
		require.NoError(t, err)
	}
	res, err := exec.AddToCollection(ctx, col.ID, s2.ID)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = exec.AddToCollection(ctx, col.ID, uuid.NewString())
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
	_, err = exec.AddToCollection(ctx, "bad", s1.ID)
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	got, err := exec.GetCollection(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ItemCount)
	assert.Len(t, got.Stamps, 2)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "owner", got.Owner.Username)

	stamp, err := exec.GetStamp(ctx, s1.ID)
	require.NoError(t, err)
	require.NotNil(t, stamp.Collection)
	assert.Equal(t, "Classics", stamp.Collection.Name)

	page, err := exec.QueryStamps(ctx, types.StampQuery{CollectionIDs: []string{col.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	res, err = exec.RemoveFromCollection(ctx, col.ID, s1.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	res, err = exec.RemoveFromCollection(ctx, col.ID, s1.ID)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	require.NoError(t, exec.IncrementCounter(ctx, domain.EntityKindCollection, col.ID, domain.MetricFavouriteCount))
	err = exec.IncrementCounter(ctx, domain.EntityKindCollection, uuid.NewString(), domain.MetricFavouriteCount)
	assertAPIError(t, err, apierrors.ErrCodeNotFound)

	top, err := exec.TrendingCollections(ctx, domain.MetricFavouriteCount, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].FavouriteCount)

	list, err := exec.QueryCollections(ctx, types.CollectionQuery{Name: "class", OwnerID: owner.ID})
	require.NoError(t, err)
	require.Len(t, list.Collections, 1)
	assert.Equal(t, int64(1), list.Collections[0].ItemCount)

	_, err = exec.QueryCollections(ctx, types.CollectionQuery{Status: "hidden"})
	assertAPIError(t, err, apierrors.ErrCodeValidationFailed)

	_, err = exec.GetCollection(ctx, uuid.NewString())
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
}

// failingInsightStore fails every insight deletion
type failingInsightStore struct {
	store.Store
}

func (s failingInsightStore) DeleteInsight(ctx context.Context, stampID string) error {
	return errors.New("connection reset")
}

func TestDeleteStamp(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t, nil)
	owner := mustCreateUser(t, exec, "owner")
	stamp := mustCreateStamp(t, exec, owner.ID, "doomed", strPtr("1"))
	col, err := exec.CreateCollection(ctx, dto.CreateCollectionRequest{Name: "Album", OwnerID: owner.ID})
	require.NoError(t, err)
	_, err = exec.AddToCollection(ctx, col.ID, stamp.ID)
	require.NoError(t, err)

	require.NoError(t, exec.DeleteStamp(ctx, stamp.ID))

	_, err = exec.GetStamp(ctx, stamp.ID)
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
	got, err := exec.GetCollection(ctx, col.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ItemCount)

	err = exec.DeleteStamp(ctx, stamp.ID)
	assertAPIError(t, err, apierrors.ErrCodeNotFound)
}

func TestDeleteStamp_PartialFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	exec := newTestExecutor(t, failingInsightStore{Store: st})
	owner := mustCreateUser(t, exec, "owner")
	stamp := mustCreateStamp(t, exec, owner.ID, "stubborn", nil)

	err := exec.DeleteStamp(ctx, stamp.ID)
	assertAPIError(t, err, apierrors.ErrCodeInternalError)

	// the stamp record survives so the deletion can be retried
	_, err = exec.GetStamp(ctx, stamp.ID)
	require.NoError(t, err)
}
