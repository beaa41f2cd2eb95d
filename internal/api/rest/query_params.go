package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-stamp-market/internal/api/shared/types"
	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// ListStampsQueryParams holds query parameters for GET /stamps
type ListStampsQueryParams struct {
	// Filters
	Title         string     `form:"title"`
	Issuer        string     `form:"issuer"`
	Function      string     `form:"function"`
	Color         string     `form:"color"`
	TokenID       string     `form:"token_id"`
	CreatorID     string     `form:"creator_id"`
	OwnerID       string     `form:"owner_id"`
	CollectionIDs []string   `form:"collection_id" collection_format:"csv"`
	VerifyStatus  string     `form:"verify_status"`
	IsListed      *bool      `form:"is_listed"`
	MinPrice      *string    `form:"min_price"`
	MaxPrice      *string    `form:"max_price"`
	CreatedAfter  *time.Time `form:"created_after" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedBefore *time.Time `form:"created_before" time_format:"2006-01-02T15:04:05Z07:00"`
	IssuedAfter   *time.Time `form:"issued_after" time_format:"2006-01-02"`
	IssuedBefore  *time.Time `form:"issued_before" time_format:"2006-01-02"`

	// Sorting and pagination; zero values use the defaults
	SortBy types.StampSortBy `form:"sort_by"`
	Order  types.Order       `form:"order"`
	Page   int               `form:"page"`
	Limit  int               `form:"limit"`
}

// ParseListStampsQuery parses query parameters for GET /stamps
func ParseListStampsQuery(c *gin.Context) (*types.StampQuery, error) {
	var params ListStampsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	return &types.StampQuery{
		Title:         params.Title,
		Issuer:        params.Issuer,
		Function:      params.Function,
		Color:         params.Color,
		TokenID:       params.TokenID,
		CreatorID:     params.CreatorID,
		OwnerID:       params.OwnerID,
		CollectionIDs: params.CollectionIDs,
		VerifyStatus:  params.VerifyStatus,
		IsListed:      params.IsListed,
		MinPrice:      params.MinPrice,
		MaxPrice:      params.MaxPrice,
		CreatedAfter:  params.CreatedAfter,
		CreatedBefore: params.CreatedBefore,
		IssuedAfter:   params.IssuedAfter,
		IssuedBefore:  params.IssuedBefore,
		SortBy:        params.SortBy,
		Order:         params.Order,
		Page:          params.Page,
		Limit:         params.Limit,
	}, nil
}

// ListCollectionsQueryParams holds query parameters for GET /collections
type ListCollectionsQueryParams struct {
	Name    string `form:"name"`
	OwnerID string `form:"owner_id"`
	Status  string `form:"status"`

	SortBy types.CollectionSortBy `form:"sort_by"`
	Order  types.Order            `form:"order"`
	Page   int                    `form:"page"`
	Limit  int                    `form:"limit"`
}

// ParseListCollectionsQuery parses query parameters for GET /collections
func ParseListCollectionsQuery(c *gin.Context) (*types.CollectionQuery, error) {
	var params ListCollectionsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	return &types.CollectionQuery{
		Name:    params.Name,
		OwnerID: params.OwnerID,
		Status:  params.Status,
		SortBy:  params.SortBy,
		Order:   params.Order,
		Page:    params.Page,
		Limit:   params.Limit,
	}, nil
}

// TrendingQueryParams holds query parameters for the trending endpoints
type TrendingQueryParams struct {
	Metric domain.Metric `form:"metric,default=view_count"`
	Size   int           `form:"size"`
}

// ParseTrendingQuery parses query parameters for GET /stamps/trending and GET /collections/trending
func ParseTrendingQuery(c *gin.Context) (*TrendingQueryParams, error) {
	var params TrendingQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	return &params, nil
}
