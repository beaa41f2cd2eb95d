package query

import (
	"fmt"
	"math"

	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// Page is a requested page. Zero values mean "use the default".
type Page struct {
	Page  int
	Limit int
}

// Window is a resolved page: the effective page number, limit and skip
type Window struct {
	Page  int
	Limit int
	Skip  int
}

// Resolve applies defaults and clamps the limit to [1, maxLimit].
// Negative values and pages whose skip would overflow are rejected.
func (p Page) Resolve(defaultLimit, maxLimit int) (Window, error) {
	if p.Page < 0 {
		return Window{}, fmt.Errorf("%w: page must not be negative", domain.ErrInvalidArgument)
	}
	if p.Limit < 0 {
		return Window{}, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidArgument)
	}
	if maxLimit <= 0 {
		maxLimit = domain.MAX_LIMIT
	}
	if defaultLimit <= 0 {
		defaultLimit = domain.DEFAULT_LIMIT
	}

	page := p.Page
	if page == 0 {
		page = domain.DEFAULT_PAGE
	}
	limit := p.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	limit = max(1, min(limit, maxLimit))
	if page-1 > math.MaxInt/limit {
		return Window{}, fmt.Errorf("%w: page %d is out of range", domain.ErrInvalidArgument, page)
	}

	return Window{
		Page:  page,
		Limit: limit,
		Skip:  (page - 1) * limit,
	}, nil
}

// TotalPages returns ceil(total/limit)
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
