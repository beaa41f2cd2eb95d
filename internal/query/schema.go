package query

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-stamp-market/internal/domain"
)

// Kind is the value type of a field
type Kind int

const (
	KindText Kind = iota
	KindID
	KindInt
	KindDecimal
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindID:
		return "id"
	case KindInt:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

func (k Kind) ordered() bool {
	return k == KindInt || k == KindDecimal || k == KindTime
}

// FieldSpec declares how a field may be used
type FieldSpec struct {
	Kind     Kind
	Sortable bool
}

// Schema whitelists the fields of an entity kind
type Schema struct {
	Entity      string
	Fields      map[Field]FieldSpec
	DefaultSort Sort
}

const (
	FieldID             Field = "id"
	FieldCreatedAt      Field = "created_at"
	FieldTitle          Field = "title"
	FieldIssuer         Field = "issuer"
	FieldFunction       Field = "function"
	FieldDate           Field = "date"
	FieldColor          Field = "color"
	FieldTokenID        Field = "token_id"
	FieldCreatorID      Field = "creator_id"
	FieldOwnerID        Field = "owner_id"
	FieldPrice          Field = "price"
	FieldVerifyStatus   Field = "verify_status"
	FieldIsListed       Field = "is_listed"
	FieldViewCount      Field = "view_count"
	FieldFavouriteCount Field = "favourite_count"
	FieldCollectionID   Field = "collection_id"
	FieldName           Field = "name"
	FieldStatus         Field = "status"
)

// StampSchema lists the filterable and sortable stamp fields.
// owner_id and price refer to the current values resolved from the logs;
// collection_id is resolved to member ids before reaching the store.
var StampSchema = Schema{
	Entity: "stamp",
	Fields: map[Field]FieldSpec{
		FieldID:             {Kind: KindID},
		FieldCreatedAt:      {Kind: KindTime, Sortable: true},
		FieldTitle:          {Kind: KindText, Sortable: true},
		FieldIssuer:         {Kind: KindText, Sortable: true},
		FieldFunction:       {Kind: KindText},
		FieldDate:           {Kind: KindTime, Sortable: true},
		FieldColor:          {Kind: KindText},
		FieldTokenID:        {Kind: KindText},
		FieldCreatorID:      {Kind: KindID},
		FieldOwnerID:        {Kind: KindID},
		FieldPrice:          {Kind: KindDecimal, Sortable: true},
		FieldVerifyStatus:   {Kind: KindText},
		FieldIsListed:       {Kind: KindBool},
		FieldViewCount:      {Kind: KindInt, Sortable: true},
		FieldFavouriteCount: {Kind: KindInt, Sortable: true},
		FieldCollectionID:   {Kind: KindID},
	},
	DefaultSort: Sort{Field: FieldCreatedAt, Order: OrderDesc},
}

// CollectionSchema lists the filterable and sortable collection fields
var CollectionSchema = Schema{
	Entity: "collection",
	Fields: map[Field]FieldSpec{
		FieldID:             {Kind: KindID},
		FieldCreatedAt:      {Kind: KindTime, Sortable: true},
		FieldName:           {Kind: KindText, Sortable: true},
		FieldOwnerID:        {Kind: KindID},
		FieldStatus:         {Kind: KindText},
		FieldViewCount:      {Kind: KindInt, Sortable: true},
		FieldFavouriteCount: {Kind: KindInt, Sortable: true},
	},
	DefaultSort: Sort{Field: FieldCreatedAt, Order: OrderDesc},
}

// Normalize validates f against the schema and returns an equivalent filter
// whose values are coerced to their canonical Go types
// (string, int64, decimal.Decimal, time.Time, bool).
func (s Schema) Normalize(f *Filter) (*Filter, error) {
	out := NewFilter()
	for _, p := range f.Predicates() {
		def, ok := s.Fields[p.Target()]
		if !ok {
			return nil, fmt.Errorf("%w: unknown %s filter field %q", domain.ErrInvalidArgument, s.Entity, p.Target())
		}

		switch pred := p.(type) {
		case Exact:
			v, err := coerce(def.Kind, pred.Field, pred.Value)
			if err != nil {
				return nil, err
			}
			out.Add(Exact{Field: pred.Field, Value: v})
		case Contains:
			if def.Kind != KindText {
				return nil, fmt.Errorf("%w: substring match is not supported on %s field %q", domain.ErrInvalidArgument, def.Kind, pred.Field)
			}
			out.Add(pred)
		case Range:
			if !def.Kind.ordered() {
				return nil, fmt.Errorf("%w: range is not supported on %s field %q", domain.ErrInvalidArgument, def.Kind, pred.Field)
			}
			if pred.Gte == nil && pred.Lte == nil {
				return nil, fmt.Errorf("%w: range on %q needs at least one bound", domain.ErrInvalidArgument, pred.Field)
			}
			r := Range{Field: pred.Field}
			var err error
			if pred.Gte != nil {
				if r.Gte, err = coerce(def.Kind, pred.Field, pred.Gte); err != nil {
					return nil, err
				}
			}
			if pred.Lte != nil {
				if r.Lte, err = coerce(def.Kind, pred.Field, pred.Lte); err != nil {
					return nil, err
				}
			}
			out.Add(r)
		case In:
			if def.Kind != KindText && def.Kind != KindID {
				return nil, fmt.Errorf("%w: set membership is not supported on %s field %q", domain.ErrInvalidArgument, def.Kind, pred.Field)
			}
			values := make([]string, 0, len(pred.Values))
			for _, raw := range pred.Values {
				v, err := coerce(def.Kind, pred.Field, raw)
				if err != nil {
					return nil, err
				}
				values = append(values, v.(string))
			}
			out.Add(In{Field: pred.Field, Values: values})
		default:
			return nil, fmt.Errorf("%w: unsupported predicate %T", domain.ErrInvalidArgument, p)
		}
	}
	return out, nil
}

// ResolveSort applies the default sort and rejects unsupported fields or orders
func (s Schema) ResolveSort(sort Sort) (Sort, error) {
	if sort.Field == "" {
		sort.Field = s.DefaultSort.Field
	}
	if sort.Order == "" {
		sort.Order = s.DefaultSort.Order
	}
	if !sort.Order.Valid() {
		return Sort{}, fmt.Errorf("%w: unsupported sort order %q", domain.ErrInvalidArgument, sort.Order)
	}
	def, ok := s.Fields[sort.Field]
	if !ok || !def.Sortable {
		return Sort{}, fmt.Errorf("%w: unsupported %s sort field %q", domain.ErrInvalidArgument, s.Entity, sort.Field)
	}
	return sort, nil
}

func coerce(kind Kind, field Field, value any) (any, error) {
	mismatch := func() error {
		return fmt.Errorf("%w: %T is not a valid %s value for %q", domain.ErrInvalidArgument, value, kind, field)
	}

	switch kind {
	case KindText:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch()
		}
		return s, nil
	case KindID:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch()
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed id %q for %q", domain.ErrInvalidArgument, s, field)
		}
		return id.String(), nil
	case KindInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		default:
			return nil, mismatch()
		}
	case KindDecimal:
		switch v := value.(type) {
		case decimal.Decimal:
			return v, nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed decimal %q for %q", domain.ErrInvalidArgument, v, field)
			}
			return d, nil
		default:
			return nil, mismatch()
		}
	case KindTime:
		t, ok := value.(time.Time)
		if !ok {
			return nil, mismatch()
		}
		return t.UTC(), nil
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, mismatch()
		}
		return b, nil
	default:
		return nil, mismatch()
	}
}
