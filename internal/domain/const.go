package domain

const (
	// Paging constants
	DEFAULT_PAGE  = 1
	DEFAULT_LIMIT = 10
	MAX_LIMIT     = 100

	// Trending constants
	DEFAULT_TRENDING_SIZE = 10
	MAX_TRENDING_SIZE     = 100
)
