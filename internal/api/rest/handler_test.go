package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-stamp-market/internal/api/shared/dto"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/executor"
	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/mocks"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	tick := 0
	clock.EXPECT().Now().DoAndReturn(func() time.Time {
		tick++
		return time.Date(2024, 1, 1, 0, 0, tick, 0, time.UTC)
	}).AnyTimes()

	st := store.NewMemoryStore()
	index := membership.NewIndex(st, clock)
	comp := composer.New(st, index, 2)
	t.Cleanup(comp.Close)
	exec := executor.NewExecutor(st, index, comp, clock, executor.Config{DefaultLimit: 10, MaxLimit: 100, TrendingSize: 10})

	router := gin.New()
	SetupRoutes(router, NewHandler(exec))
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type itemsBody[T any] struct {
	Items []T `json:"items"`
}

func (s *testServer) createUser(username string) dto.UserResponse {
	w := s.do(http.MethodPost, "/api/v1/users", dto.CreateUserRequest{Username: username})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.UserResponse](s.t, w)
}

func (s *testServer) createStamp(creatorID, title, price string) dto.StampResponse {
	req := dto.CreateStampRequest{Title: title, Issuer: "Deutsche Post", CreatorID: creatorID}
	if price != "" {
		req.Price = &price
	}
	w := s.do(http.MethodPost, "/api/v1/stamps", req)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.StampResponse](s.t, w)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStampEndpoints(t *testing.T) {
	s := newTestServer(t)
	creator := s.createUser("creator")
	buyer := s.createUser("buyer")
	stamp := s.createStamp(creator.ID, "Saxony Three Pfennig", "10")

	w := s.do(http.MethodGet, "/api/v1/stamps/"+stamp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.StampResponse](t, w)
	assert.Equal(t, "Saxony Three Pfennig", got.Title)
	require.NotNil(t, got.Price)
	assert.Equal(t, "10", *got.Price)

	w = s.do(http.MethodPost, "/api/v1/stamps/"+stamp.ID+"/transfers", dto.TransferStampRequest{OwnerID: buyer.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/stamps/"+stamp.ID+"/prices", dto.SetStampPriceRequest{Price: "42"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/stamps/"+stamp.ID+"/ownerships", nil)
	require.Equal(t, http.StatusOK, w.Code)
	owners := decode[itemsBody[dto.OwnershipResponse]](t, w)
	require.Len(t, owners.Items, 2)
	assert.Equal(t, buyer.ID, owners.Items[0].OwnerID)

	w = s.do(http.MethodGet, "/api/v1/stamps/"+stamp.ID+"/prices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prices := decode[itemsBody[dto.PriceResponse]](t, w)
	require.Len(t, prices.Items, 2)
	assert.Equal(t, "42", prices.Items[0].Price)

	tokenID := "tz-77"
	w = s.do(http.MethodPatch, "/api/v1/stamps/"+stamp.ID+"/token", dto.UpdateStampTokenRequest{TokenID: &tokenID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, "/api/v1/stamps/"+stamp.ID+"/verification", map[string]string{"status": "verified"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPut, "/api/v1/stamps/"+stamp.ID+"/verification", map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPut, "/api/v1/stamps/"+stamp.ID+"/listing", map[string]bool{"is_listed": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[dto.StampResponse](t, w).IsListed)

	for i := 0; i < 2; i++ {
		w = s.do(http.MethodPost, "/api/v1/stamps/"+stamp.ID+"/views", nil)
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	w = s.do(http.MethodPost, "/api/v1/stamps/"+stamp.ID+"/favourites", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/stamps/trending?metric=view_count&size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trending := decode[itemsBody[dto.StampResponse]](t, w)
	require.Len(t, trending.Items, 1)
	assert.Equal(t, int64(2), trending.Items[0].ViewCount)
	assert.Equal(t, int64(1), trending.Items[0].FavouriteCount)

	w = s.do(http.MethodDelete, "/api/v1/stamps/"+stamp.ID+"/counters", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/stamps/"+stamp.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/v1/stamps/"+stamp.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListStamps(t *testing.T) {
	s := newTestServer(t)
	creator := s.createUser("creator")
	for i, title := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		s.createStamp(creator.ID, title, []string{"1", "2", "3", ""}[i])
	}

	w := s.do(http.MethodGet, "/api/v1/stamps?limit=3&sort_by=title&order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[dto.StampListResponse](t, w)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Stamps, 3)
	assert.Equal(t, []string{"Alpha", "Beta", "Delta"}, []string{page.Stamps[0].Title, page.Stamps[1].Title, page.Stamps[2].Title})

	w = s.do(http.MethodGet, "/api/v1/stamps?min_price=2&max_price=3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page = decode[dto.StampListResponse](t, w)
	assert.Equal(t, int64(2), page.Total)

	w = s.do(http.MethodGet, "/api/v1/stamps?limit=150", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, decode[dto.StampListResponse](t, w).Limit)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{name: "unsortable field", query: "sort_by=color", code: "validation_failed"},
		{name: "bad order", query: "order=up", code: "validation_failed"},
		{name: "negative page", query: "page=-2", code: "validation_failed"},
		{name: "malformed owner", query: "owner_id=xyz", code: "validation_failed"},
		{name: "non numeric limit", query: "limit=ten", code: "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/v1/stamps?"+tt.query, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, tt.code, decode[errorBody](t, w).Error.Code)
		})
	}
}

func TestStampErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/stamps/not-a-uuid", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodGet, "/api/v1/stamps/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, w).Error.Code)

	w = s.do(http.MethodPost, "/api/v1/stamps", dto.CreateStampRequest{Title: "Orphan", CreatorID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.createUser("dup")
	w = s.do(http.MethodPost, "/api/v1/users", dto.CreateUserRequest{Username: "dup"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[errorBody](t, w).Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCollectionEndpoints(t *testing.T) {
	s := newTestServer(t)
	owner := s.createUser("owner")
	s1 := s.createStamp(owner.ID, "one", "")
	s2 := s.createStamp(owner.ID, "two", "")

	w := s.do(http.MethodPost, "/api/v1/collections", dto.CreateCollectionRequest{Name: "Germany", OwnerID: owner.ID, Status: "published"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	col := decode[dto.CollectionResponse](t, w)

	for _, id := range []string{s1.ID, s2.ID} {
		w = s.do(http.MethodPut, "/api/v1/collections/"+col.ID+"/items/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, decode[dto.MembershipResponse](t, w).Changed)
	}
	w = s.do(http.MethodPut, "/api/v1/collections/"+col.ID+"/items/"+s1.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[dto.MembershipResponse](t, w).Changed)

	w = s.do(http.MethodGet, "/api/v1/collections/"+col.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.CollectionResponse](t, w)
	assert.Equal(t, int64(2), got.ItemCount)
	assert.Len(t, got.Stamps, 2)

	w = s.do(http.MethodGet, "/api/v1/stamps?collection_id="+col.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[dto.StampListResponse](t, w).Total)

	w = s.do(http.MethodDelete, "/api/v1/collections/"+col.ID+"/items/"+s2.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.MembershipResponse](t, w).Changed)

	w = s.do(http.MethodPost, "/api/v1/collections/"+col.ID+"/views", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodPost, "/api/v1/collections/"+uuid.NewString()+"/favourites", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/collections?status=published&owner_id="+owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[dto.CollectionListResponse](t, w)
	require.Len(t, list.Collections, 1)
	assert.Equal(t, int64(1), list.Collections[0].ItemCount)
	assert.Equal(t, int64(1), list.Collections[0].ViewCount)

	w = s.do(http.MethodGet, "/api/v1/collections/trending?metric=view_count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[itemsBody[dto.CollectionResponse]](t, w).Items, 1)

	w = s.do(http.MethodGet, "/api/v1/collections/trending?metric=likes", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
