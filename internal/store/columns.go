package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/query"
)

// Lateral joins resolving the current owner and current price of each stamp.
// The ordering matches timeline.Newer: greatest created_at, then greatest id.
const (
	joinInsights     = `LEFT JOIN insights ON insights.stamp_id = stamps.id`
	joinCurrentOwner = `LEFT JOIN LATERAL (
		SELECT o.owner_id
		FROM ownerships o
		WHERE o.stamp_id = stamps.id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT 1
	) cur_owner ON true`
	joinCurrentPrice = `LEFT JOIN LATERAL (
		SELECT p.price
		FROM pricings p
		WHERE p.stamp_id = stamps.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT 1
	) cur_price ON true`
)

// stampColumns maps stamp filter fields to SQL expressions over the joined stamp row.
// collection_id is absent: it is expanded into an id set before it reaches the store.
var stampColumns = map[query.Field]string{
	query.FieldID:             "stamps.id",
	query.FieldCreatedAt:      "stamps.created_at",
	query.FieldTitle:          "stamps.title",
	query.FieldIssuer:         "stamps.issuer",
	query.FieldFunction:       "stamps.function",
	query.FieldDate:           "stamps.date",
	query.FieldColor:          "stamps.color",
	query.FieldTokenID:        "stamps.token_id",
	query.FieldCreatorID:      "stamps.creator_id",
	query.FieldOwnerID:        "cur_owner.owner_id",
	query.FieldPrice:          "cur_price.price",
	query.FieldVerifyStatus:   "COALESCE(insights.verify_status, 'unverified')",
	query.FieldIsListed:       "COALESCE(insights.is_listed, false)",
	query.FieldViewCount:      "COALESCE(insights.view_count, 0)",
	query.FieldFavouriteCount: "COALESCE(insights.favourite_count, 0)",
}

var collectionColumns = map[query.Field]string{
	query.FieldID:             "collections.id",
	query.FieldCreatedAt:      "collections.created_at",
	query.FieldName:           "collections.name",
	query.FieldOwnerID:        "collections.owner_id",
	query.FieldStatus:         "collections.status",
	query.FieldViewCount:      "collections.view_count",
	query.FieldFavouriteCount: "collections.favourite_count",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// checkFields rejects predicates on fields the store cannot evaluate
func checkFields(columns map[query.Field]string, f *query.Filter) error {
	for _, p := range f.Predicates() {
		if _, ok := columns[p.Target()]; !ok {
			return fmt.Errorf("%w: field %q cannot be queried", domain.ErrInvalidArgument, p.Target())
		}
	}
	return nil
}

// applyFilter adds one parameterized WHERE condition per predicate
func applyFilter(q *gorm.DB, columns map[query.Field]string, f *query.Filter) (*gorm.DB, error) {
	if err := checkFields(columns, f); err != nil {
		return nil, err
	}

	for _, p := range f.Predicates() {
		col := columns[p.Target()]
		switch pred := p.(type) {
		case query.Exact:
			q = q.Where(col+" = ?", pred.Value)
		case query.Contains:
			q = q.Where("LOWER("+col+") LIKE ?", "%"+likeEscaper.Replace(strings.ToLower(pred.Value))+"%")
		case query.Range:
			if pred.Gte != nil {
				q = q.Where(col+" >= ?", pred.Gte)
			}
			if pred.Lte != nil {
				q = q.Where(col+" <= ?", pred.Lte)
			}
		case query.In:
			if len(pred.Values) == 0 {
				q = q.Where("1 = 0")
				continue
			}
			q = q.Where(col+" IN ?", pred.Values)
		default:
			return nil, fmt.Errorf("%w: unsupported predicate %T", domain.ErrInvalidArgument, p)
		}
	}
	return q, nil
}

// orderClause renders the sort with the id tiebreaker in the same direction.
// NULLs sort last in both directions.
func orderClause(columns map[query.Field]string, sort query.Sort) (string, error) {
	col, ok := columns[sort.Field]
	if !ok {
		return "", fmt.Errorf("%w: field %q cannot be sorted", domain.ErrInvalidArgument, sort.Field)
	}
	dir := "DESC"
	if sort.Order == query.OrderAsc {
		dir = "ASC"
	}
	idCol := columns[query.FieldID]
	if sort.Field == query.FieldID {
		return fmt.Sprintf("%s %s", idCol, dir), nil
	}
	return fmt.Sprintf("%s %s NULLS LAST, %s %s", col, dir, idCol, dir), nil
}

// metricColumn returns the counter column of a metric
func metricColumn(metric domain.Metric) (string, error) {
	if !metric.Valid() {
		return "", fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidArgument, metric)
	}
	return string(metric), nil
}
