// Package filter defines the declarative lookup and ordering expressions accepted by list views.
package filter

// ComparisonType is a lookup operator, the part after "__" in a filter key.
type ComparisonType string

const (
	Exact       ComparisonType = "exact"       // col = v
	IExact      ComparisonType = "iexact"      // case-insensitive equality
	NotEqual    ComparisonType = "ne"          // col <> v
	Greater     ComparisonType = "gt"          // col > v
	GreaterOrEq ComparisonType = "gte"         // col >= v
	Less        ComparisonType = "lt"          // col < v
	LessOrEqual ComparisonType = "lte"         // col <= v
	InList      ComparisonType = "in"          // col IN (...)
	NotInList   ComparisonType = "nin"         // col NOT IN (...)
	Contains    ComparisonType = "contains"    // LIKE %v%
	IContains   ComparisonType = "icontains"   // ILIKE %v%
	StartsWith  ComparisonType = "startswith"  // LIKE v%
	IStartsWith ComparisonType = "istartswith" // ILIKE v%
	EndsWith    ComparisonType = "endswith"    // LIKE %v
	IEndsWith   ComparisonType = "iendswith"   // ILIKE %v
	IsNull      ComparisonType = "isnull"      // col IS [NOT] NULL
)

// Separator splits a filter key into field and operator: "price__gte".
const Separator = "__"

var operators = map[ComparisonType]struct{}{
	Exact: {}, IExact: {}, NotEqual: {}, Greater: {}, GreaterOrEq: {}, Less: {}, LessOrEqual: {},
	InList: {}, NotInList: {}, Contains: {}, IContains: {}, StartsWith: {}, IStartsWith: {},
	EndsWith: {}, IEndsWith: {}, IsNull: {},
}

// Valid reports whether op is a known operator.
func (op ComparisonType) Valid() bool {
	_, ok := operators[op]
	return ok
}

// IsList reports whether the operator takes a list of values.
func (op ComparisonType) IsList() bool {
	return op == InList || op == NotInList
}

// IsPattern reports whether the operator builds a LIKE pattern.
func (op ComparisonType) IsPattern() bool {
	switch op {
	case Contains, IContains, StartsWith, IStartsWith, EndsWith, IEndsWith, IExact:
		return true
	}
	return false
}

// Item is a single filter clause.
type Item struct {
	Field    string         `json:"field"`
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is one ordering term. Terms apply in slice order.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}
