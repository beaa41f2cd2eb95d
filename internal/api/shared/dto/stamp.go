package dto

import (
	"encoding/json"
	"time"

	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

// StampResponse represents a stamp joined with its current owner, price,
// engagement and collection
type StampResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Issuer    string          `json:"issuer"`
	Function  string          `json:"function"`
	Date      *time.Time      `json:"date"`
	Color     string          `json:"color"`
	ImageURL  *string         `json:"image_url"`
	TokenID   *string         `json:"token_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatorID string          `json:"creator_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Creator  *UserResponse `json:"creator,omitempty"`
	OwnerID  *string       `json:"owner_id"`
	Owner    *UserResponse `json:"owner,omitempty"`
	Price    *string       `json:"price"`
	PricedAt *time.Time    `json:"priced_at"`

	VerifyStatus   domain.VerifyStatus `json:"verify_status"`
	IsListed       bool                `json:"is_listed"`
	ViewCount      int64               `json:"view_count"`
	FavouriteCount int64               `json:"favourite_count"`

	Collection *CollectionRefResponse `json:"collection,omitempty"`
}

// CollectionRefResponse identifies the collection a stamp belongs to
type CollectionRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MapCompositeToDTO maps a composite record to StampResponse.
// A stamp without an insight reports the insight defaults.
func MapCompositeToDTO(record composer.CompositeRecord) *StampResponse {
	s := record.Stamp
	resp := &StampResponse{
		ID:           s.ID,
		Title:        s.Title,
		Issuer:       s.Issuer,
		Function:     s.Function,
		Date:         s.Date,
		Color:        s.Color,
		ImageURL:     s.ImageURL,
		TokenID:      s.TokenID,
		CreatorID:    s.CreatorID,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Creator:      MapUserToDTO(record.Creator),
		OwnerID:      record.OwnerID,
		Owner:        MapUserToDTO(record.Owner),
		PricedAt:     record.PricedAt,
		VerifyStatus: domain.VerifyStatusUnverified,
	}

	if len(s.Metadata) > 0 {
		resp.Metadata = json.RawMessage(s.Metadata)
	}

	if record.Price != nil {
		price := record.Price.String()
		resp.Price = &price
	}

	if record.Insight != nil {
		resp.VerifyStatus = domain.VerifyStatus(record.Insight.VerifyStatus)
		resp.IsListed = record.Insight.IsListed
		resp.ViewCount = record.Insight.ViewCount
		resp.FavouriteCount = record.Insight.FavouriteCount
	}

	if record.Collection != nil {
		resp.Collection = &CollectionRefResponse{ID: record.Collection.ID, Name: record.Collection.Name}
	}

	return resp
}

// MapCompositesToDTO maps composite records in order
func MapCompositesToDTO(records []composer.CompositeRecord) []StampResponse {
	out := make([]StampResponse, len(records))
	for i, r := range records {
		out[i] = *MapCompositeToDTO(r)
	}
	return out
}

// StampListResponse represents one page of stamps
type StampListResponse struct {
	Stamps     []StampResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// OwnershipResponse represents one entry of a stamp's ownership log
type OwnershipResponse struct {
	ID        int64         `json:"id"`
	StampID   string        `json:"stamp_id"`
	OwnerID   string        `json:"owner_id"`
	Owner     *UserResponse `json:"owner,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// MapOwnershipToDTO maps a schema.Ownership to OwnershipResponse
func MapOwnershipToDTO(entry schema.Ownership, owner *schema.User) *OwnershipResponse {
	return &OwnershipResponse{
		ID:        entry.ID,
		StampID:   entry.StampID,
		OwnerID:   entry.OwnerID,
		Owner:     MapUserToDTO(owner),
		CreatedAt: entry.CreatedAt,
	}
}

// PriceResponse represents one entry of a stamp's pricing log
type PriceResponse struct {
	ID        int64     `json:"id"`
	StampID   string    `json:"stamp_id"`
	Price     string    `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// MapPricingToDTO maps a schema.Pricing to PriceResponse
func MapPricingToDTO(entry schema.Pricing) *PriceResponse {
	return &PriceResponse{
		ID:        entry.ID,
		StampID:   entry.StampID,
		Price:     entry.Price.String(),
		CreatedAt: entry.CreatedAt,
	}
}
