package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/query"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

// StampTokenUpdate carries the mutable references of a stamp. Nil fields are left untouched.
type StampTokenUpdate struct {
	TokenID  *string
	ImageURL *string
}

// InsightUpdate carries curation changes of a stamp insight. Nil fields are left untouched.
type InsightUpdate struct {
	VerifyStatus *domain.VerifyStatus
	IsListed     *bool
}

// RankedStamp is a trending candidate: a stamp together with its insight
type RankedStamp struct {
	Stamp   schema.Stamp
	Insight schema.Insight
}

// Store defines the interface for the marketplace entity store.
// Single-record lookups return (nil, nil) when the record does not exist.
// Failures wrap domain.ErrConflict for uniqueness violations and domain.ErrInternal otherwise.
type Store interface {
	// CreateUser inserts a user
	CreateUser(ctx context.Context, user *schema.User) error
	// GetUserByID retrieves a user by ID
	GetUserByID(ctx context.Context, id string) (*schema.User, error)
	// GetUsersByIDs retrieves users keyed by ID; unknown IDs are absent from the map
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*schema.User, error)

	// CreateStamp inserts a stamp
	CreateStamp(ctx context.Context, stamp *schema.Stamp) error
	// GetStampByID retrieves a stamp by ID
	GetStampByID(ctx context.Context, id string) (*schema.Stamp, error)
	// FindStamps retrieves one window of stamps matching filter in sort order
	FindStamps(ctx context.Context, filter *query.Filter, sort query.Sort, window query.Window) ([]schema.Stamp, error)
	// CountStamps counts the stamps matching filter
	CountStamps(ctx context.Context, filter *query.Filter) (int64, error)
	// UpdateStampToken updates the token and media references; reports whether the stamp exists
	UpdateStampToken(ctx context.Context, id string, update StampTokenUpdate, at time.Time) (bool, error)
	// DeleteStamp deletes a stamp record; deleting a missing stamp is not an error
	DeleteStamp(ctx context.Context, id string) error

	// AppendOwnership appends an ownership log entry and assigns its sequence
	AppendOwnership(ctx context.Context, entry *schema.Ownership) error
	// GetOwnerships retrieves the ownership log of a stamp, newest first
	GetOwnerships(ctx context.Context, stampID string) ([]schema.Ownership, error)
	// GetLatestOwnerships retrieves the current ownership entry of each given stamp
	GetLatestOwnerships(ctx context.Context, stampIDs []string) ([]schema.Ownership, error)
	// DeleteOwnerships deletes the ownership log of a stamp
	DeleteOwnerships(ctx context.Context, stampID string) error

	// AppendPricing appends a pricing log entry and assigns its sequence
	AppendPricing(ctx context.Context, entry *schema.Pricing) error
	// GetPricings retrieves the pricing log of a stamp, newest first
	GetPricings(ctx context.Context, stampID string) ([]schema.Pricing, error)
	// GetLatestPricings retrieves the current pricing entry of each given stamp
	GetLatestPricings(ctx context.Context, stampIDs []string) ([]schema.Pricing, error)
	// DeletePricings deletes the pricing log of a stamp
	DeletePricings(ctx context.Context, stampID string) error

	// GetInsightsByStampIDs retrieves insights keyed by stamp ID
	GetInsightsByStampIDs(ctx context.Context, stampIDs []string) (map[string]*schema.Insight, error)
	// IncrementInsightCounter atomically adds delta to a counter, creating the insight on first use
	IncrementInsightCounter(ctx context.Context, stampID string, metric domain.Metric, delta int64, at time.Time) error
	// UpdateInsight applies curation changes, creating the insight on first use
	UpdateInsight(ctx context.Context, stampID string, update InsightUpdate, at time.Time) error
	// ResetInsightCounters sets both counters back to zero; a missing insight is left absent
	ResetInsightCounters(ctx context.Context, stampID string, at time.Time) error
	// DeleteInsight deletes the insight of a stamp
	DeleteInsight(ctx context.Context, stampID string) error
	// RankStamps retrieves up to limit stamps that have an insight, ordered by metric desc
	// then stamp creation order
	RankStamps(ctx context.Context, metric domain.Metric, limit int) ([]RankedStamp, error)

	// CreateCollection inserts a collection
	CreateCollection(ctx context.Context, collection *schema.Collection) error
	// GetCollectionByID retrieves a collection by ID
	GetCollectionByID(ctx context.Context, id string) (*schema.Collection, error)
	// GetCollectionsByIDs retrieves collections keyed by ID
	GetCollectionsByIDs(ctx context.Context, ids []string) (map[string]*schema.Collection, error)
	// FindCollections retrieves one window of collections matching filter in sort order
	FindCollections(ctx context.Context, filter *query.Filter, sort query.Sort, window query.Window) ([]schema.Collection, error)
	// CountCollections counts the collections matching filter
	CountCollections(ctx context.Context, filter *query.Filter) (int64, error)
	// IncrementCollectionCounter atomically adds delta to a counter; reports whether the collection exists
	IncrementCollectionCounter(ctx context.Context, id string, metric domain.Metric, delta int64) (bool, error)
	// RankCollections retrieves up to limit collections ordered by metric desc then creation order
	RankCollections(ctx context.Context, metric domain.Metric, limit int) ([]schema.Collection, error)

	// AddCollectionItem adds a stamp to a collection; reports false when it was already a member
	AddCollectionItem(ctx context.Context, item *schema.CollectionItem) (bool, error)
	// RemoveCollectionItem removes a stamp from a collection; reports false when it was not a member
	RemoveCollectionItem(ctx context.Context, collectionID, stampID string) (bool, error)
	// RemoveStampFromCollections removes a stamp from every collection and returns the number removed
	RemoveStampFromCollections(ctx context.Context, stampID string) (int64, error)
	// GetCollectionItems retrieves the items of a collection in the order they were added
	GetCollectionItems(ctx context.Context, collectionID string) ([]schema.CollectionItem, error)
	// GetCollectionItemsByStampIDs retrieves the memberships of the given stamps in the order they were added
	GetCollectionItemsByStampIDs(ctx context.Context, stampIDs []string) ([]schema.CollectionItem, error)
	// CountCollectionItems counts the items of each given collection
	CountCollectionItems(ctx context.Context, collectionIDs []string) (map[string]int64, error)
}
