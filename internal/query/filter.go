// Package query describes typed filter, sort and paging requests over the
// marketplace entities. A Filter is a conjunction of predicates; every
// predicate targets a whitelisted field of the entity kind it is applied to.
package query

// Field names an entity attribute that can be filtered or sorted on
type Field string

// Predicate is one condition of a Filter.
// The set of predicates is closed: Exact, Contains, Range and In.
type Predicate interface {
	isPredicate()
	// Target returns the field the predicate applies to
	Target() Field
}

// Exact matches records whose field equals Value
type Exact struct {
	Field Field
	Value any
}

// Contains matches records whose text field contains Value, ignoring case
type Contains struct {
	Field Field
	Value string
}

// Range matches records whose field lies within [Gte, Lte].
// A nil bound is open.
type Range struct {
	Field Field
	Gte   any
	Lte   any
}

// In matches records whose field is one of Values. An empty set matches nothing.
type In struct {
	Field  Field
	Values []string
}

func (Exact) isPredicate() {}
func (Contains) isPredicate() {}
func (Range) isPredicate() {}
func (In) isPredicate() {}

func (p Exact) Target() Field { return p.Field }
func (p Contains) Target() Field { return p.Field }
func (p Range) Target() Field { return p.Field }
func (p In) Target() Field { return p.Field }

// Filter is a conjunction of predicates. The zero value and nil match everything.
type Filter struct {
	predicates []Predicate
}

// NewFilter creates an empty filter
func NewFilter() *Filter {
	return &Filter{}
}

// Add appends a predicate
func (f *Filter) Add(p Predicate) *Filter {
	f.predicates = append(f.predicates, p)
	return f
}

// Exact appends an equality predicate
func (f *Filter) Exact(field Field, value any) *Filter {
	return f.Add(Exact{Field: field, Value: value})
}

// Contains appends a case-insensitive substring predicate
func (f *Filter) Contains(field Field, value string) *Filter {
	return f.Add(Contains{Field: field, Value: value})
}

// Range appends a bounded predicate; pass nil for an open bound
func (f *Filter) Range(field Field, gte, lte any) *Filter {
	return f.Add(Range{Field: field, Gte: gte, Lte: lte})
}

// In appends a set membership predicate
func (f *Filter) In(field Field, values []string) *Filter {
	vs := make([]string, len(values))
	copy(vs, values)
	return f.Add(In{Field: field, Values: vs})
}

// Predicates returns a copy of the filter's predicates
func (f *Filter) Predicates() []Predicate {
	if f == nil {
		return nil
	}
	ps := make([]Predicate, len(f.predicates))
	copy(ps, f.predicates)
	return ps
}

// Has reports whether any predicate targets field
func (f *Filter) Has(field Field) bool {
	if f == nil {
		return false
	}
	for _, p := range f.predicates {
		if p.Target() == field {
			return true
		}
	}
	return false
}

// Len returns the number of predicates
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.predicates)
}
