package dto

import (
	"time"

	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// CollectionResponse represents a collection with its owner and item count
type CollectionResponse struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	OwnerID        string                  `json:"owner_id"`
	Owner          *UserResponse           `json:"owner,omitempty"`
	Status         domain.CollectionStatus `json:"status"`
	ViewCount      int64                   `json:"view_count"`
	FavouriteCount int64                   `json:"favourite_count"`
	ItemCount      int64                   `json:"item_count"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`

	// Stamps is only populated for single collection lookups
	Stamps []StampResponse `json:"stamps,omitempty"`
}

// MapCollectionSummaryToDTO maps a collection summary to CollectionResponse
func MapCollectionSummaryToDTO(summary composer.CollectionSummary) *CollectionResponse {
	c := summary.Collection
	return &CollectionResponse{
		ID:             c.ID,
		Name:           c.Name,
		OwnerID:        c.OwnerID,
		Owner:          MapUserToDTO(summary.Owner),
		Status:         domain.CollectionStatus(c.Status),
		ViewCount:      c.ViewCount,
		FavouriteCount: c.FavouriteCount,
		ItemCount:      summary.ItemCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// MapCollectionSummariesToDTO maps collection summaries in order
func MapCollectionSummariesToDTO(summaries []composer.CollectionSummary) []CollectionResponse {
	out := make([]CollectionResponse, len(summaries))
	for i, s := range summaries {
		out[i] = *MapCollectionSummaryToDTO(s)
	}
	return out
}

// CollectionListResponse represents one page of collections
type CollectionListResponse struct {
	Collections []CollectionResponse `json:"items"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
}

// MembershipResponse reports the outcome of a membership change
type MembershipResponse struct {
	CollectionID string `json:"collection_id"`
	StampID      string `json:"stamp_id"`
	// Changed is false when the stamp was already a member (add) or not a member (remove)
	Changed bool `json:"changed"`
}
