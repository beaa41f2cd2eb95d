package types

import "time"

// Order enumeration for sorting
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func (o Order) Desc() bool {
	return o == OrderDesc
}

func (o Order) Asc() bool {
	return o == OrderAsc
}

// Valid checks if an order is valid
func (o Order) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// StampSortBy enumeration for stamp listings
type StampSortBy string

const (
	StampSortByCreatedAt      StampSortBy = "created_at"
	StampSortByTitle          StampSortBy = "title"
	StampSortByIssuer         StampSortBy = "issuer"
	StampSortByDate           StampSortBy = "date"
	StampSortByPrice          StampSortBy = "price"
	StampSortByViewCount      StampSortBy = "view_count"
	StampSortByFavouriteCount StampSortBy = "favourite_count"
)

// Valid checks if a stamp sort field is known
func (s StampSortBy) Valid() bool {
	switch s {
	case StampSortByCreatedAt, StampSortByTitle, StampSortByIssuer, StampSortByDate,
		StampSortByPrice, StampSortByViewCount, StampSortByFavouriteCount:
		return true
	default:
		return false
	}
}

// CollectionSortBy enumeration for collection listings
type CollectionSortBy string

const (
	CollectionSortByCreatedAt      CollectionSortBy = "created_at"
	CollectionSortByName           CollectionSortBy = "name"
	CollectionSortByViewCount      CollectionSortBy = "view_count"
	CollectionSortByFavouriteCount CollectionSortBy = "favourite_count"
)

// Valid checks if a collection sort field is known
func (s CollectionSortBy) Valid() bool {
	switch s {
	case CollectionSortByCreatedAt, CollectionSortByName, CollectionSortByViewCount, CollectionSortByFavouriteCount:
		return true
	default:
		return false
	}
}

// StampQuery holds the filters, sort and page of a stamp listing.
// Zero values are unset.
type StampQuery struct {
	Title         string
	Issuer        string
	Function      string
	Color         string
	TokenID       string
	CreatorID     string
	OwnerID       string
	CollectionIDs []string
	VerifyStatus  string
	IsListed      *bool
	MinPrice      *string
	MaxPrice      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IssuedAfter   *time.Time
	IssuedBefore  *time.Time

	SortBy StampSortBy
	Order  Order
	Page   int
	Limit  int
}

// CollectionQuery holds the filters, sort and page of a collection listing
type CollectionQuery struct {
	Name    string
	OwnerID string
	Status  string

	SortBy CollectionSortBy
	Order  Order
	Page   int
	Limit  int
}
