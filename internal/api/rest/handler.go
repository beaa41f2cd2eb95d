package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-stamp-market/internal/api/shared/dto"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/executor"
	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// ListStamps retrieves stamps with optional filters
	// GET /api/v1/stamps?title=<text>&issuer=<text>&owner_id=<id>&collection_id=<id1>,<id2>&min_price=<p>&max_price=<p>&is_listed=<bool>&sort_by=<field>&order=<order>&page=<page>&limit=<limit>
	ListStamps(c *gin.Context)

	// GetStamp retrieves a single stamp
	// GET /api/v1/stamps/:id
	GetStamp(c *gin.Context)

	// TrendingStamps retrieves the top stamps by an engagement metric
	// GET /api/v1/stamps/trending?metric=<view_count|favourite_count>&size=<n>
	TrendingStamps(c *gin.Context)

	// GetOwnershipHistory retrieves the ownership log of a stamp, newest first
	// GET /api/v1/stamps/:id/ownerships
	GetOwnershipHistory(c *gin.Context)

	// GetPriceHistory retrieves the pricing log of a stamp, newest first
	// GET /api/v1/stamps/:id/prices
	GetPriceHistory(c *gin.Context)

	// CreateStamp registers a stamp
	// POST /api/v1/stamps
	CreateStamp(c *gin.Context)

	// DeleteStamp deletes a stamp with its logs, insight and memberships
	// DELETE /api/v1/stamps/:id
	DeleteStamp(c *gin.Context)

	// TransferStamp records a new owner
	// POST /api/v1/stamps/:id/transfers
	TransferStamp(c *gin.Context)

	// SetStampPrice records a new asking price
	// POST /api/v1/stamps/:id/prices
	SetStampPrice(c *gin.Context)

	// UpdateStampToken updates the token and media references
	// PATCH /api/v1/stamps/:id/token
	UpdateStampToken(c *gin.Context)

	// SetStampVerification changes the curation state
	// PUT /api/v1/stamps/:id/verification
	SetStampVerification(c *gin.Context)

	// SetStampListing lists or delists a stamp
	// PUT /api/v1/stamps/:id/listing
	SetStampListing(c *gin.Context)

	// ResetStampCounters zeroes the engagement counters
	// DELETE /api/v1/stamps/:id/counters
	ResetStampCounters(c *gin.Context)

	// RecordStampView increments the view counter
	// POST /api/v1/stamps/:id/views
	RecordStampView(c *gin.Context)

	// RecordStampFavourite increments the favourite counter
	// POST /api/v1/stamps/:id/favourites
	RecordStampFavourite(c *gin.Context)

	// ListCollections retrieves collections with optional filters
	// GET /api/v1/collections?name=<text>&owner_id=<id>&status=<status>&sort_by=<field>&order=<order>&page=<page>&limit=<limit>
	ListCollections(c *gin.Context)

	// GetCollection retrieves a collection with its stamps
	// GET /api/v1/collections/:id
	GetCollection(c *gin.Context)

	// TrendingCollections retrieves the top collections by an engagement metric
	// GET /api/v1/collections/trending?metric=<view_count|favourite_count>&size=<n>
	TrendingCollections(c *gin.Context)

	// CreateCollection creates a collection
	// POST /api/v1/collections
	CreateCollection(c *gin.Context)

	// AddCollectionItem adds a stamp to a collection
	// PUT /api/v1/collections/:id/items/:stamp_id
	AddCollectionItem(c *gin.Context)

	// RemoveCollectionItem removes a stamp from a collection
	// DELETE /api/v1/collections/:id/items/:stamp_id
	RemoveCollectionItem(c *gin.Context)

	// RecordCollectionView increments the view counter
	// POST /api/v1/collections/:id/views
	RecordCollectionView(c *gin.Context)

	// RecordCollectionFavourite increments the favourite counter
	// POST /api/v1/collections/:id/favourites
	RecordCollectionFavourite(c *gin.Context)

	// CreateUser registers a user
	// POST /api/v1/users
	CreateUser(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

// =============================================================================
// Stamps
// =============================================================================

func (h *handler) ListStamps(c *gin.Context) {
	q, err := ParseListStampsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.QueryStamps(c.Request.Context(), *q)
	if err != nil {
		respondError(c, err, "Failed to list stamps")
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *handler) GetStamp(c *gin.Context) {
	stamp, err := h.executor.GetStamp(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get stamp")
		return
	}

	c.JSON(http.StatusOK, stamp)
}

func (h *handler) TrendingStamps(c *gin.Context) {
	params, err := ParseTrendingQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	stamps, err := h.executor.TrendingStamps(c.Request.Context(), params.Metric, params.Size)
	if err != nil {
		respondError(c, err, "Failed to get trending stamps")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": stamps})
}

func (h *handler) GetOwnershipHistory(c *gin.Context) {
	entries, err := h.executor.OwnershipHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get ownership history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *handler) GetPriceHistory(c *gin.Context) {
	entries, err := h.executor.PriceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get price history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *handler) CreateStamp(c *gin.Context) {
	var req dto.CreateStampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	stamp, err := h.executor.CreateStamp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create stamp")
		return
	}

	c.JSON(http.StatusCreated, stamp)
}

func (h *handler) DeleteStamp(c *gin.Context) {
	if err := h.executor.DeleteStamp(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete stamp")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) TransferStamp(c *gin.Context) {
	var req dto.TransferStampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	entry, err := h.executor.TransferStamp(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to transfer stamp")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *handler) SetStampPrice(c *gin.Context) {
	var req dto.SetStampPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	entry, err := h.executor.SetStampPrice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to price stamp")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *handler) UpdateStampToken(c *gin.Context) {
	var req dto.UpdateStampTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	stamp, err := h.executor.UpdateStampToken(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to update stamp token")
		return
	}

	c.JSON(http.StatusOK, stamp)
}

func (h *handler) SetStampVerification(c *gin.Context) {
	var req dto.SetStampVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Invalid request body")
		return
	}

	stamp, err := h.executor.SetStampVerification(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err, "Failed to update verification")
		return
	}

	c.JSON(http.StatusOK, stamp)
}

func (h *handler) SetStampListing(c *gin.Context) {
	var req dto.SetStampListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Invalid request body")
		return
	}

	stamp, err := h.executor.SetStampListing(c.Request.Context(), c.Param("id"), *req.IsListed)
	if err != nil {
		respondError(c, err, "Failed to update listing")
		return
	}

	c.JSON(http.StatusOK, stamp)
}

func (h *handler) ResetStampCounters(c *gin.Context) {
	if err := h.executor.ResetInsightCounters(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to reset counters")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) RecordStampView(c *gin.Context) {
	h.increment(c, domain.EntityKindStamp, domain.MetricViewCount)
}

func (h *handler) RecordStampFavourite(c *gin.Context) {
	h.increment(c, domain.EntityKindStamp, domain.MetricFavouriteCount)
}

// =============================================================================
// Collections
// =============================================================================

func (h *handler) ListCollections(c *gin.Context) {
	q, err := ParseListCollectionsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.QueryCollections(c.Request.Context(), *q)
	if err != nil {
		respondError(c, err, "Failed to list collections")
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *handler) GetCollection(c *gin.Context) {
	collection, err := h.executor.GetCollection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get collection")
		return
	}

	c.JSON(http.StatusOK, collection)
}

func (h *handler) TrendingCollections(c *gin.Context) {
	params, err := ParseTrendingQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	collections, err := h.executor.TrendingCollections(c.Request.Context(), params.Metric, params.Size)
	if err != nil {
		respondError(c, err, "Failed to get trending collections")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": collections})
}

func (h *handler) CreateCollection(c *gin.Context) {
	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	collection, err := h.executor.CreateCollection(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create collection")
		return
	}

	c.JSON(http.StatusCreated, collection)
}

func (h *handler) AddCollectionItem(c *gin.Context) {
	result, err := h.executor.AddToCollection(c.Request.Context(), c.Param("id"), c.Param("stamp_id"))
	if err != nil {
		respondError(c, err, "Failed to add stamp to collection")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) RemoveCollectionItem(c *gin.Context) {
	result, err := h.executor.RemoveFromCollection(c.Request.Context(), c.Param("id"), c.Param("stamp_id"))
	if err != nil {
		respondError(c, err, "Failed to remove stamp from collection")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) RecordCollectionView(c *gin.Context) {
	h.increment(c, domain.EntityKindCollection, domain.MetricViewCount)
}

func (h *handler) RecordCollectionFavourite(c *gin.Context) {
	h.increment(c, domain.EntityKindCollection, domain.MetricFavouriteCount)
}

// =============================================================================
// Users and health
// =============================================================================

func (h *handler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	user, err := h.executor.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-stamp-market-api",
	})
}

func (h *handler) increment(c *gin.Context, kind domain.EntityKind, metric domain.Metric) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "id is required")
		return
	}

	if err := h.executor.IncrementCounter(c.Request.Context(), kind, id, metric); err != nil {
		respondError(c, err, "Failed to record engagement")
		return
	}

	c.Status(http.StatusNoContent)
}
