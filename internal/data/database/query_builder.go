// Package database builds the parameterized list queries used by the read side of the job store.
package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is the comparison operator of a Condition.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	In                 ConditionType = "IN"

	unset = -1
)

// Condition is one AND-ed predicate of a WHERE clause.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond returns a condition on field.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// ListQueryOptions describes a single-table SELECT.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    []string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions returns options for table with no limit or offset.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{
		Table:  table,
		Limit:  unset,
		Offset: unset,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithColumns sets the selected columns. Columns are quoted as identifiers.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition appends a condition. Conditions with a nil Value are skipped.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithOrderBy sets the ordering columns and direction (ASC or DESC).
func WithOrderBy(direction string, columns ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = columns
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly turns the query into SELECT COUNT(*).
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) {
		o.CountOnly = true
	}
}

func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func selectClause(o *ListQueryOptions) string {
	if o.CountOnly {
		return "SELECT COUNT(*)"
	}
	if len(o.Columns) == 0 {
		return "SELECT *"
	}
	cols := make([]string, len(o.Columns))
	for i, c := range o.Columns {
		cols[i] = ident(c)
	}
	return "SELECT " + strings.Join(cols, ", ")
}

func whereClause(conds []Condition, next int) (string, []any, int) {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		if c.Field == "" || c.Value == nil {
			continue
		}
		switch c.Type {
		case In:
			values, ok := c.Value.([]any)
			if !ok || len(values) == 0 {
				continue
			}
			ph := make([]string, len(values))
			for i, v := range values {
				ph[i] = fmt.Sprintf("$%d", next)
				args = append(args, v)
				next++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", ident(c.Field), strings.Join(ph, ", ")))
		case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual:
			parts = append(parts, fmt.Sprintf("%s %s $%d", ident(c.Field), c.Type, next))
			args = append(args, c.Value)
			next++
		}
	}
	if len(parts) == 0 {
		return "", args, next
	}
	return " WHERE " + strings.Join(parts, " AND "), args, next
}

// BuildListQuery renders options into SQL and positional arguments.
//
//	q, args := BuildListQuery(NewListQueryOptions("email_jobs",
//		WithCondition(WhereCond("status", Equal, "sent")),
//		WithOrderBy("ASC", "id"),
//		WithLimit(50),
//	))
func BuildListQuery(o *ListQueryOptions) (string, []any) {
	if o == nil {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(selectClause(o))
	b.WriteString(" FROM ")
	b.WriteString(ident(o.Table))

	where, args, next := whereClause(o.Conditions, 1)
	b.WriteString(where)
	if o.CountOnly {
		return b.String(), args
	}

	if len(o.OrderBy) > 0 {
		cols := make([]string, len(o.OrderBy))
		dir := strings.ToUpper(o.OrderDir)
		for i, c := range o.OrderBy {
			cols[i] = ident(c)
			if dir == "ASC" || dir == "DESC" {
				cols[i] += " " + dir
			}
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(cols, ", "))
	}
	if o.Limit != unset {
		fmt.Fprintf(&b, " LIMIT $%d", next)
		args = append(args, o.Limit)
		next++
	}
	if o.Offset != unset {
		fmt.Fprintf(&b, " OFFSET $%d", next)
		args = append(args, o.Offset)
	}
	return b.String(), args
}
