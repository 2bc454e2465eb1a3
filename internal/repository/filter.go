package repository

import (
	"fmt"
	"time"

	"github.com/sakif/needley/internal/apperror"
)

// Operator is a comparison applied to a filterable field.
type Operator string

const (
	OpExact     Operator = "exact"
	OpIContains Operator = "icontains"
	OpLT        Operator = "lt"
	OpGT        Operator = "gt"
)

// Kind is the value type of a filterable field.
type Kind int

const (
	KindString Kind = iota
	KindTime
	KindID
)

// Field describes one filterable attribute of an entity.
type Field struct {
	Name string
	Kind Kind
	Ops  []Operator
}

func (f Field) allows(op Operator) bool {
	for _, o := range f.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// Fields is the whitelist of filterable attributes for one entity.
type Fields struct {
	Entity string
	byName map[string]Field
}

func NewFields(entity string, fields ...Field) Fields {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return Fields{Entity: entity, byName: m}
}

// Lookup returns the field declaration by API name.
func (fs Fields) Lookup(name string) (Field, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

var (
	stringOps = []Operator{OpExact, OpIContains}
	timeOps   = []Operator{OpExact, OpLT, OpGT}
	idOps     = []Operator{OpExact}
)

// UserFields lists what allUsers can be filtered by.
var UserFields = NewFields("User",
	Field{Name: "username", Kind: KindString, Ops: stringOps},
	Field{Name: "nickname", Kind: KindString, Ops: stringOps},
	Field{Name: "createdAt", Kind: KindTime, Ops: timeOps},
	Field{Name: "updatedAt", Kind: KindTime, Ops: timeOps},
	Field{Name: "lastLogin", Kind: KindTime, Ops: timeOps},
)

// ArticleFields lists what allArticles can be filtered by.
var ArticleFields = NewFields("Article",
	Field{Name: "author", Kind: KindID, Ops: idOps},
	Field{Name: "title", Kind: KindString, Ops: stringOps},
	Field{Name: "content", Kind: KindString, Ops: stringOps},
	Field{Name: "slug", Kind: KindString, Ops: stringOps},
	Field{Name: "createdAt", Kind: KindTime, Ops: timeOps},
	Field{Name: "updatedAt", Kind: KindTime, Ops: timeOps},
)

// Condition is a single predicate. Value is a string for string and id
// fields and a time.Time for time fields.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Filter is a conjunction of conditions.
type Filter []Condition

// Where appends a condition and returns the extended filter.
func (f Filter) Where(field string, op Operator, value any) Filter {
	return append(f, Condition{Field: field, Op: op, Value: value})
}

// Validate checks every condition against the whitelist.
func (fs Fields) Validate(f Filter) error {
	for _, c := range f {
		field, ok := fs.Lookup(c.Field)
		if !ok {
			return apperror.ValidationFailed(c.Field, fmt.Sprintf("%s cannot be filtered by %s", fs.Entity, c.Field))
		}
		if !field.allows(c.Op) {
			return apperror.ValidationFailed(c.Field, fmt.Sprintf("operator %s is not supported on %s", c.Op, c.Field))
		}
		switch field.Kind {
		case KindTime:
			if _, ok := c.Value.(time.Time); !ok {
				return apperror.ValidationFailed(c.Field, fmt.Sprintf("%s expects a timestamp", c.Field))
			}
		default:
			if _, ok := c.Value.(string); !ok {
				return apperror.ValidationFailed(c.Field, fmt.Sprintf("%s expects a string", c.Field))
			}
		}
	}
	return nil
}

// ValidateOptions checks pagination arguments and the filter together.
func (fs Fields) ValidateOptions(opts ListOptions) error {
	if opts.First != nil && *opts.First < 0 {
		return apperror.ValidationFailed("first", "first must not be negative")
	}
	if opts.Last != nil && *opts.Last < 0 {
		return apperror.ValidationFailed("last", "last must not be negative")
	}
	if opts.First != nil && opts.Last != nil {
		return apperror.ValidationFailed("last", "first and last cannot be combined")
	}
	return fs.Validate(opts.Filter)
}
