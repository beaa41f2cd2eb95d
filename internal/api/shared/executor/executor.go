package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/constants"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-stamp-market/internal/api/shared/errors"
	"github.com/feral-file/ff-stamp-market/internal/api/shared/types"
	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/pipeline"
	"github.com/feral-file/ff-stamp-market/internal/query"
	"github.com/feral-file/ff-stamp-market/internal/store"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
	"github.com/feral-file/ff-stamp-market/internal/timeline"
	"github.com/feral-file/ff-stamp-market/internal/trending"
)

// Executor is the interface for the API executor.
// Every error it returns is an *apierrors.APIError.
type Executor interface {
	// GetStamp retrieves a single composed stamp
	GetStamp(ctx context.Context, stampID string) (*dto.StampResponse, error)
	// QueryStamps retrieves one page of stamps matching q
	QueryStamps(ctx context.Context, q types.StampQuery) (*dto.StampListResponse, error)
	// TrendingStamps retrieves the top n stamps by metric
	TrendingStamps(ctx context.Context, metric domain.Metric, n int) ([]dto.StampResponse, error)
	// OwnershipHistory retrieves the ownership log of a stamp, newest first
	OwnershipHistory(ctx context.Context, stampID string) ([]dto.OwnershipResponse, error)
	// PriceHistory retrieves the pricing log of a stamp, newest first
	PriceHistory(ctx context.Context, stampID string) ([]dto.PriceResponse, error)

	// GetCollection retrieves a collection summary with its member stamps
	GetCollection(ctx context.Context, collectionID string) (*dto.CollectionResponse, error)
	// QueryCollections retrieves one page of collections matching q
	QueryCollections(ctx context.Context, q types.CollectionQuery) (*dto.CollectionListResponse, error)
	// TrendingCollections retrieves the top n collections by metric
	TrendingCollections(ctx context.Context, metric domain.Metric, n int) ([]dto.CollectionResponse, error)

	// IncrementCounter atomically adds one to an engagement counter of a stamp or collection
	IncrementCounter(ctx context.Context, kind domain.EntityKind, id string, metric domain.Metric) error
	// ResetInsightCounters zeroes the engagement counters of a stamp
	ResetInsightCounters(ctx context.Context, stampID string) error

	// CreateUser registers a user
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	// CreateStamp registers a stamp owned by its creator, optionally priced
	CreateStamp(ctx context.Context, req dto.CreateStampRequest) (*dto.StampResponse, error)
	// UpdateStampToken updates the token and media references of a stamp
	UpdateStampToken(ctx context.Context, stampID string, req dto.UpdateStampTokenRequest) (*dto.StampResponse, error)
	// TransferStamp appends an ownership entry
	TransferStamp(ctx context.Context, stampID string, req dto.TransferStampRequest) (*dto.OwnershipResponse, error)
	// SetStampPrice appends a pricing entry
	SetStampPrice(ctx context.Context, stampID string, req dto.SetStampPriceRequest) (*dto.PriceResponse, error)
	// SetStampVerification changes the curation state of a stamp
	SetStampVerification(ctx context.Context, stampID string, status domain.VerifyStatus) (*dto.StampResponse, error)
	// SetStampListing lists or delists a stamp
	SetStampListing(ctx context.Context, stampID string, listed bool) (*dto.StampResponse, error)
	// DeleteStamp deletes a stamp and everything referring to it
	DeleteStamp(ctx context.Context, stampID string) error

	// CreateCollection creates a collection
	CreateCollection(ctx context.Context, req dto.CreateCollectionRequest) (*dto.CollectionResponse, error)
	// AddToCollection adds a stamp to a collection
	AddToCollection(ctx context.Context, collectionID, stampID string) (*dto.MembershipResponse, error)
	// RemoveFromCollection removes a stamp from a collection
	RemoveFromCollection(ctx context.Context, collectionID, stampID string) (*dto.MembershipResponse, error)
}

// Config holds the executor limits
type Config struct {
	DefaultLimit int
	MaxLimit     int
	TrendingSize int
}

type executor struct {
	store      store.Store
	clock      adapter.Clock
	composer   *composer.Composer
	membership *membership.Index
	cascade    *membership.Cascade
	pipeline   *pipeline.Pipeline
	ranker     *trending.Ranker
}

// NewExecutor creates an executor. The composer is owned by the caller.
func NewExecutor(st store.Store, index *membership.Index, comp *composer.Composer, clock adapter.Clock, cfg Config) Executor {
	return &executor{
		store:      st,
		clock:      clock,
		composer:   comp,
		membership: index,
		cascade:    membership.NewCascade(st, index),
		pipeline:   pipeline.New(st, comp, index, pipeline.Config{DefaultLimit: cfg.DefaultLimit, MaxLimit: cfg.MaxLimit}),
		ranker:     trending.New(st, comp, cfg.TrendingSize),
	}
}

// =============================================================================
// Stamps
// =============================================================================

func (e *executor) GetStamp(ctx context.Context, stampID string) (*dto.StampResponse, error) {
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return nil, err
	}
	return e.composeStamp(ctx, *stamp)
}

func (e *executor) QueryStamps(ctx context.Context, q types.StampQuery) (*dto.StampListResponse, error) {
	filter, err := buildStampFilter(q)
	if err != nil {
		return nil, toAPIError(err, "Failed to query stamps")
	}

	result, err := e.pipeline.QueryStamps(ctx, pipeline.Request{
		Filter: filter,
		Sort:   types.ToStampSort(q.SortBy, q.Order),
		Page:   query.Page{Page: q.Page, Limit: q.Limit},
	})
	if err != nil {
		return nil, toAPIError(err, "Failed to query stamps")
	}

	return &dto.StampListResponse{
		Stamps:     dto.MapCompositesToDTO(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	}, nil
}

func buildStampFilter(q types.StampQuery) (*query.Filter, error) {
	f := query.NewFilter()
	if q.Title != "" {
		f.Contains(query.FieldTitle, q.Title)
	}
	if q.Issuer != "" {
		f.Contains(query.FieldIssuer, q.Issuer)
	}
	if q.Function != "" {
		f.Exact(query.FieldFunction, q.Function)
	}
	if q.Color != "" {
		f.Exact(query.FieldColor, q.Color)
	}
	if q.TokenID != "" {
		f.Exact(query.FieldTokenID, q.TokenID)
	}
	if q.CreatorID != "" {
		f.Exact(query.FieldCreatorID, q.CreatorID)
	}
	if q.OwnerID != "" {
		f.Exact(query.FieldOwnerID, q.OwnerID)
	}
	if len(q.CollectionIDs) > 0 {
		f.In(query.FieldCollectionID, q.CollectionIDs)
	}
	if q.VerifyStatus != "" {
		if !domain.VerifyStatus(q.VerifyStatus).Valid() {
			return nil, fmt.Errorf("%w: unknown verify status %q", domain.ErrInvalidArgument, q.VerifyStatus)
		}
		f.Exact(query.FieldVerifyStatus, q.VerifyStatus)
	}
	if q.IsListed != nil {
		f.Exact(query.FieldIsListed, *q.IsListed)
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		f.Range(query.FieldPrice, optional(q.MinPrice), optional(q.MaxPrice))
	}
	if q.CreatedAfter != nil || q.CreatedBefore != nil {
		f.Range(query.FieldCreatedAt, optional(q.CreatedAfter), optional(q.CreatedBefore))
	}
	if q.IssuedAfter != nil || q.IssuedBefore != nil {
		f.Range(query.FieldDate, optional(q.IssuedAfter), optional(q.IssuedBefore))
	}
	return f, nil
}

// optional dereferences p, keeping an unset bound as an untyped nil
func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (e *executor) TrendingStamps(ctx context.Context, metric domain.Metric, n int) ([]dto.StampResponse, error) {
	records, err := e.ranker.TopN(ctx, metric, n)
	if err != nil {
		return nil, toAPIError(err, "Failed to rank stamps")
	}
	return dto.MapCompositesToDTO(records), nil
}

func (e *executor) OwnershipHistory(ctx context.Context, stampID string) ([]dto.OwnershipResponse, error) {
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return nil, err
	}

	entries, err := e.store.GetOwnerships(ctx, stamp.ID)
	if err != nil {
		return nil, toAPIError(err, "Failed to get ownership history")
	}
	timeline.SortNewestFirst(entries)

	ownerIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		ownerIDs = append(ownerIDs, entry.OwnerID)
	}
	users, err := e.store.GetUsersByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, toAPIError(err, "Failed to get owners")
	}

	out := make([]dto.OwnershipResponse, len(entries))
	for i, entry := range entries {
		out[i] = *dto.MapOwnershipToDTO(entry, users[entry.OwnerID])
	}
	return out, nil
}

func (e *executor) PriceHistory(ctx context.Context, stampID string) ([]dto.PriceResponse, error) {
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return nil, err
	}

	entries, err := e.store.GetPricings(ctx, stamp.ID)
	if err != nil {
		return nil, toAPIError(err, "Failed to get price history")
	}
	timeline.SortNewestFirst(entries)

	out := make([]dto.PriceResponse, len(entries))
	for i, entry := range entries {
		out[i] = *dto.MapPricingToDTO(entry)
	}
	return out, nil
}

func (e *executor) CreateStamp(ctx context.Context, req dto.CreateStampRequest) (*dto.StampResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creatorID, _ := domain.ParseUserID(req.CreatorID)
	if _, err := e.findUser(ctx, string(creatorID), "Creator not found"); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	stamp := schema.Stamp{
		ID:        string(domain.NewStampID()),
		Title:     req.Title,
		Issuer:    req.Issuer,
		Function:  req.Function,
		Date:      req.Date,
		Color:     req.Color,
		ImageURL:  req.ImageURL,
		TokenID:   req.TokenID,
		CreatorID: string(creatorID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(req.Metadata) > 0 {
		canonical, err := jcs.Transform(req.Metadata)
		if err != nil {
			return nil, apierrors.NewValidationError("metadata: " + err.Error())
		}
		stamp.Metadata = datatypes.JSON(canonical)
	}

	if err := e.store.CreateStamp(ctx, &stamp); err != nil {
		return nil, toAPIError(err, "Failed to create stamp")
	}

	// the creator is the first owner
	if err := e.store.AppendOwnership(ctx, &schema.Ownership{StampID: stamp.ID, OwnerID: stamp.CreatorID, CreatedAt: now}); err != nil {
		return nil, toAPIError(err, "Failed to record initial ownership")
	}

	if req.Price != nil {
		price, _ := dto.ParsePrice(*req.Price)
		if err := e.store.AppendPricing(ctx, &schema.Pricing{StampID: stamp.ID, Price: price, CreatedAt: now}); err != nil {
			return nil, toAPIError(err, "Failed to record initial price")
		}
	}

	logger.InfoCtx(ctx, "Stamp created", zap.String("stampID", stamp.ID), zap.String("creatorID", stamp.CreatorID))

	return e.composeStamp(ctx, stamp)
}

func (e *executor) UpdateStampToken(ctx context.Context, stampID string, req dto.UpdateStampTokenRequest) (*dto.StampResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := domain.ParseStampID(stampID)
	if err != nil {
		return nil, toAPIError(err, "Invalid stamp ID")
	}

	ok, err := e.store.UpdateStampToken(ctx, string(id), store.StampTokenUpdate{TokenID: req.TokenID, ImageURL: req.ImageURL}, e.clock.Now())
	if err != nil {
		return nil, toAPIError(err, "Failed to update stamp token")
	}
	if !ok {
		return nil, apierrors.NewNotFoundError("Stamp not found")
	}

	return e.GetStamp(ctx, string(id))
}

func (e *executor) TransferStamp(ctx context.Context, stampID string, req dto.TransferStampRequest) (*dto.OwnershipResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return nil, err
	}

	ownerID, _ := domain.ParseUserID(req.OwnerID)
	owner, err := e.findUser(ctx, string(ownerID), "Owner not found")
	if err != nil {
		return nil, err
	}

	entry := schema.Ownership{StampID: stamp.ID, OwnerID: owner.ID, CreatedAt: e.clock.Now()}
	if err := e.store.AppendOwnership(ctx, &entry); err != nil {
		return nil, toAPIError(err, "Failed to transfer stamp")
	}

	logger.InfoCtx(ctx, "Stamp transferred", zap.String("stampID", stamp.ID), zap.String("ownerID", owner.ID))

	return dto.MapOwnershipToDTO(entry, owner), nil
}

func (e *executor) SetStampPrice(ctx context.Context, stampID string, req dto.SetStampPriceRequest) (*dto.PriceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return nil, err
	}

	price, _ := dto.ParsePrice(req.Price)
	entry := schema.Pricing{StampID: stamp.ID, Price: price, CreatedAt: e.clock.Now()}
	if err := e.store.AppendPricing(ctx, &entry); err != nil {
		return nil, toAPIError(err, "Failed to price stamp")
	}

	return dto.MapPricingToDTO(entry), nil
}

func (e *executor) SetStampVerification(ctx context.Context, stampID string, status domain.VerifyStatus) (*dto.StampResponse, error) {
	if !status.Valid() {
		return nil, apierrors.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}
	return e.updateInsight(ctx, stampID, store.InsightUpdate{VerifyStatus: &status})
}

func (e *executor) SetStampListing(ctx context.Context, stampID string, listed bool) (*dto.StampResponse, error) {
	return e.updateInsight(ctx, stampID, store.InsightUpdate{IsListed: &listed})
}

func (e *executor) updateInsight(ctx context.Context, stampID string, update store.InsightUpdate) (*dto.StampResponse, error) {
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return nil, err
	}

	if err := e.store.UpdateInsight(ctx, stamp.ID, update, e.clock.Now()); err != nil {
		return nil, toAPIError(err, "Failed to update stamp insight")
	}

	return e.composeStamp(ctx, *stamp)
}

func (e *executor) ResetInsightCounters(ctx context.Context, stampID string) error {
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return err
	}

	if err := e.store.ResetInsightCounters(ctx, stamp.ID, e.clock.Now()); err != nil {
		return toAPIError(err, "Failed to reset counters")
	}
	return nil
}

func (e *executor) DeleteStamp(ctx context.Context, stampID string) error {
	stamp, err := e.findStamp(ctx, stampID)
	if err != nil {
		return err
	}

	if err := e.cascade.DeleteStamp(ctx, stamp.ID); err != nil {
		return toAPIError(err, "Failed to delete stamp")
	}
	return nil
}

// =============================================================================
// Collections
// =============================================================================

func (e *executor) GetCollection(ctx context.Context, collectionID string) (*dto.CollectionResponse, error) {
	collection, err := e.findCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	summaries, err := e.composer.ComposeCollections(ctx, []schema.Collection{*collection})
	if err != nil {
		return nil, toAPIError(err, "Failed to compose collection")
	}

	members, err := e.pipeline.QueryStamps(ctx, pipeline.Request{
		Filter: query.NewFilter().Exact(query.FieldCollectionID, collection.ID),
		Page:   query.Page{Page: 1, Limit: constants.MAX_COLLECTION_STAMPS},
	})
	if err != nil {
		return nil, toAPIError(err, "Failed to get collection stamps")
	}

	resp := dto.MapCollectionSummaryToDTO(summaries[0])
	resp.Stamps = dto.MapCompositesToDTO(members.Items)
	return resp, nil
}

func (e *executor) QueryCollections(ctx context.Context, q types.CollectionQuery) (*dto.CollectionListResponse, error) {
	f := query.NewFilter()
	if q.Name != "" {
		f.Contains(query.FieldName, q.Name)
	}
	if q.OwnerID != "" {
		f.Exact(query.FieldOwnerID, q.OwnerID)
	}
	if q.Status != "" {
		if !domain.CollectionStatus(q.Status).Valid() {
			return nil, apierrors.NewValidationError(fmt.Sprintf("invalid status: %s", q.Status))
		}
		f.Exact(query.FieldStatus, q.Status)
	}

	result, err := e.pipeline.QueryCollections(ctx, pipeline.Request{
		Filter: f,
		Sort:   types.ToCollectionSort(q.SortBy, q.Order),
		Page:   query.Page{Page: q.Page, Limit: q.Limit},
	})
	if err != nil {
		return nil, toAPIError(err, "Failed to query collections")
	}

	return &dto.CollectionListResponse{
		Collections: dto.MapCollectionSummariesToDTO(result.Items),
		Total:       result.Total,
		Page:        result.Page,
		Limit:       result.Limit,
		TotalPages:  result.TotalPages,
	}, nil
}

func (e *executor) TrendingCollections(ctx context.Context, metric domain.Metric, n int) ([]dto.CollectionResponse, error) {
	summaries, err := e.ranker.TopCollections(ctx, metric, n)
	if err != nil {
		return nil, toAPIError(err, "Failed to rank collections")
	}
	return dto.MapCollectionSummariesToDTO(summaries), nil
}

func (e *executor) CreateCollection(ctx context.Context, req dto.CreateCollectionRequest) (*dto.CollectionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ownerID, _ := domain.ParseUserID(req.OwnerID)
	owner, err := e.findUser(ctx, string(ownerID), "Owner not found")
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	collection := schema.Collection{
		ID:        string(domain.NewCollectionID()),
		Name:      req.Name,
		OwnerID:   owner.ID,
		Status:    string(req.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateCollection(ctx, &collection); err != nil {
		return nil, toAPIError(err, "Failed to create collection")
	}

	return dto.MapCollectionSummaryToDTO(composer.CollectionSummary{Collection: collection, Owner: owner}), nil
}

func (e *executor) AddToCollection(ctx context.Context, collectionID, stampID string) (*dto.MembershipResponse, error) {
	cID, sID, err := parseMembership(collectionID, stampID)
	if err != nil {
		return nil, err
	}

	added, err := e.membership.Add(ctx, cID, sID)
	if err != nil {
		return nil, toAPIError(err, "Failed to add stamp to collection")
	}
	return &dto.MembershipResponse{CollectionID: cID, StampID: sID, Changed: added}, nil
}

func (e *executor) RemoveFromCollection(ctx context.Context, collectionID, stampID string) (*dto.MembershipResponse, error) {
	cID, sID, err := parseMembership(collectionID, stampID)
	if err != nil {
		return nil, err
	}

	removed, err := e.membership.Remove(ctx, cID, sID)
	if err != nil {
		return nil, toAPIError(err, "Failed to remove stamp from collection")
	}
	return &dto.MembershipResponse{CollectionID: cID, StampID: sID, Changed: removed}, nil
}

func parseMembership(collectionID, stampID string) (string, string, error) {
	cID, err := domain.ParseCollectionID(collectionID)
	if err != nil {
		return "", "", toAPIError(err, "Invalid collection ID")
	}
	sID, err := domain.ParseStampID(stampID)
	if err != nil {
		return "", "", toAPIError(err, "Invalid stamp ID")
	}
	return string(cID), string(sID), nil
}

// =============================================================================
// Counters and users
// =============================================================================

func (e *executor) IncrementCounter(ctx context.Context, kind domain.EntityKind, id string, metric domain.Metric) error {
	if !metric.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid metric: %s", metric))
	}

	switch kind {
	case domain.EntityKindStamp:
		stamp, err := e.findStamp(ctx, id)
		if err != nil {
			return err
		}
		if err := e.store.IncrementInsightCounter(ctx, stamp.ID, metric, 1, e.clock.Now()); err != nil {
			return toAPIError(err, "Failed to increment counter")
		}
		return nil
	case domain.EntityKindCollection:
		cID, err := domain.ParseCollectionID(id)
		if err != nil {
			return toAPIError(err, "Invalid collection ID")
		}
		ok, err := e.store.IncrementCollectionCounter(ctx, string(cID), metric, 1)
		if err != nil {
			return toAPIError(err, "Failed to increment counter")
		}
		if !ok {
			return apierrors.NewNotFoundError("Collection not found")
		}
		return nil
	default:
		return apierrors.NewValidationError(fmt.Sprintf("invalid entity kind: %s", kind))
	}
}

func (e *executor) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user := schema.User{
		ID:          string(domain.NewUserID()),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		CreatedAt:   e.clock.Now(),
	}
	if err := e.store.CreateUser(ctx, &user); err != nil {
		return nil, toAPIError(err, "Failed to create user")
	}

	return dto.MapUserToDTO(&user), nil
}

// =============================================================================
// Helpers
// =============================================================================

func (e *executor) findStamp(ctx context.Context, stampID string) (*schema.Stamp, error) {
	id, err := domain.ParseStampID(stampID)
	if err != nil {
		return nil, toAPIError(err, "Invalid stamp ID")
	}

	stamp, err := e.store.GetStampByID(ctx, string(id))
	if err != nil {
		return nil, toAPIError(err, "Failed to get stamp")
	}
	if stamp == nil {
		return nil, apierrors.NewNotFoundError("Stamp not found")
	}
	return stamp, nil
}

func (e *executor) findCollection(ctx context.Context, collectionID string) (*schema.Collection, error) {
	id, err := domain.ParseCollectionID(collectionID)
	if err != nil {
		return nil, toAPIError(err, "Invalid collection ID")
	}

	collection, err := e.store.GetCollectionByID(ctx, string(id))
	if err != nil {
		return nil, toAPIError(err, "Failed to get collection")
	}
	if collection == nil {
		return nil, apierrors.NewNotFoundError("Collection not found")
	}
	return collection, nil
}

func (e *executor) findUser(ctx context.Context, userID, notFound string) (*schema.User, error) {
	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toAPIError(err, "Failed to get user")
	}
	if user == nil {
		return nil, apierrors.NewNotFoundError(notFound)
	}
	return user, nil
}

func (e *executor) composeStamp(ctx context.Context, stamp schema.Stamp) (*dto.StampResponse, error) {
	record, err := e.composer.ComposeOne(ctx, stamp)
	if err != nil {
		return nil, toAPIError(err, "Failed to compose stamp")
	}
	return dto.MapCompositeToDTO(record), nil
}

// toAPIError converts a domain error to an *apierrors.APIError
func toAPIError(err error, message string) error {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var cascadeErr *membership.CascadeError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apierrors.NewNotFoundError(message, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		return apierrors.NewValidationError(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return apierrors.NewConflictError(message, err.Error())
	case errors.As(err, &cascadeErr):
		return apierrors.NewInternalError(message, cascadeErr.Error())
	case errors.Is(err, domain.ErrInternal):
		return apierrors.NewDatabaseError(message, err.Error())
	default:
		return apierrors.NewInternalError(message, err.Error())
	}
}
