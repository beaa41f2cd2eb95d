package query

import (
	"fmt"
	"strings"

	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// Order is the sort direction
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Valid checks if the order is valid
func (o Order) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// Sort orders results by Field. Ties are always broken by id in the same direction.
type Sort struct {
	Field Field
	Order Order
}

// ParseOrder parses an order string, empty means desc
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return OrderDesc, nil
	}
	o := Order(strings.ToLower(s))
	if !o.Valid() {
		return "", fmt.Errorf("%w: unsupported sort order %q", domain.ErrInvalidArgument, s)
	}
	return o, nil
}
