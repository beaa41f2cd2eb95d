package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-stamp-market/internal/api/shared/constants"
	apierrors "github.com/feral-file/ff-stamp-market/internal/api/shared/errors"
	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// CreateUserRequest represents the request body for registering a user
type CreateUserRequest struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Validate validates the request body
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return apierrors.NewValidationError("username is required")
	}
	if len(r.Username) > constants.MAX_USERNAME_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("username must be at most %d characters", constants.MAX_USERNAME_LENGTH))
	}
	return nil
}

// CreateStampRequest represents the request body for registering a stamp
type CreateStampRequest struct {
	Title     string          `json:"title"`
	Issuer    string          `json:"issuer"`
	Function  string          `json:"function"`
	Date      *time.Time      `json:"date,omitempty"`
	Color     string          `json:"color"`
	ImageURL  *string         `json:"image_url,omitempty"`
	TokenID   *string         `json:"token_id,omitempty"`
	CreatorID string          `json:"creator_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	// Price is the optional initial asking price
	Price *string `json:"price,omitempty"`
}

// Validate validates the request body
func (r *CreateStampRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return apierrors.NewValidationError("title is required")
	}
	if len(r.Title) > constants.MAX_TITLE_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("title must be at most %d characters", constants.MAX_TITLE_LENGTH))
	}
	if _, err := domain.ParseUserID(r.CreatorID); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid creator_id: %s", r.CreatorID))
	}
	if len(r.Metadata) > 0 && !json.Valid(r.Metadata) {
		return apierrors.NewValidationError("metadata must be valid JSON")
	}
	if r.Price != nil {
		if _, err := ParsePrice(*r.Price); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStampTokenRequest represents the request body for updating the token and media references of a stamp
type UpdateStampTokenRequest struct {
	TokenID  *string `json:"token_id,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Validate validates the request body
func (r *UpdateStampTokenRequest) Validate() error {
	if r.TokenID == nil && r.ImageURL == nil {
		return apierrors.NewValidationError("at least one of token_id or image_url is required")
	}
	return nil
}

// TransferStampRequest represents the request body for transferring a stamp
type TransferStampRequest struct {
	OwnerID string `json:"owner_id"`
}

// Validate validates the request body
func (r *TransferStampRequest) Validate() error {
	if _, err := domain.ParseUserID(r.OwnerID); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid owner_id: %s", r.OwnerID))
	}
	return nil
}

// SetStampPriceRequest represents the request body for pricing a stamp
type SetStampPriceRequest struct {
	Price string `json:"price"`
}

// Validate validates the request body
func (r *SetStampPriceRequest) Validate() error {
	_, err := ParsePrice(r.Price)
	return err
}

// SetStampVerificationRequest represents the request body for changing the curation state of a stamp
type SetStampVerificationRequest struct {
	Status domain.VerifyStatus `json:"status"`
}

// Validate validates the request body
func (r *SetStampVerificationRequest) Validate() error {
	if !r.Status.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid status: %s", r.Status))
	}
	return nil
}

// SetStampListingRequest represents the request body for listing or delisting a stamp
type SetStampListingRequest struct {
	IsListed *bool `json:"is_listed"`
}

// Validate validates the request body
func (r *SetStampListingRequest) Validate() error {
	if r.IsListed == nil {
		return apierrors.NewValidationError("is_listed is required")
	}
	return nil
}

// CreateCollectionRequest represents the request body for creating a collection
type CreateCollectionRequest struct {
	Name    string                  `json:"name"`
	OwnerID string                  `json:"owner_id"`
	Status  domain.CollectionStatus `json:"status,omitempty"`
}

// Validate validates the request body and applies the default status
func (r *CreateCollectionRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apierrors.NewValidationError("name is required")
	}
	if len(r.Name) > constants.MAX_COLLECTION_NAME_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", constants.MAX_COLLECTION_NAME_LENGTH))
	}
	if _, err := domain.ParseUserID(r.OwnerID); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid owner_id: %s", r.OwnerID))
	}
	if r.Status == "" {
		r.Status = domain.CollectionStatusDraft
	}
	if !r.Status.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid status: %s", r.Status))
	}
	return nil
}

// ParsePrice parses a non-negative decimal price
func ParsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apierrors.NewValidationError(fmt.Sprintf("invalid price: %q", s))
	}
	if price.IsNegative() {
		return decimal.Zero, apierrors.NewValidationError("price must not be negative")
	}
	return price, nil
}
