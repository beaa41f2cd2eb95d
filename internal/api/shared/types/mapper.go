package types

import (
	"github.com/feral-file/ff-stamp-market/internal/query"
)

// ToQueryOrder converts API Order to query Order
func ToQueryOrder(order Order) query.Order {
	switch order {
	case OrderAsc:
		return query.OrderAsc
	case OrderDesc:
		return query.OrderDesc
	default:
		return query.Order(order)
	}
}

// ToStampSort converts API stamp sort parameters to a query.Sort.
// Empty values are left for the pipeline defaults.
func ToStampSort(sortBy StampSortBy, order Order) query.Sort {
	return query.Sort{Field: query.Field(sortBy), Order: ToQueryOrder(order)}
}

// ToCollectionSort converts API collection sort parameters to a query.Sort
func ToCollectionSort(sortBy CollectionSortBy, order Order) query.Sort {
	return query.Sort{Field: query.Field(sortBy), Order: ToQueryOrder(order)}
}
