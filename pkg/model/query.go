package model

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/keel-orm/keel/pkg/schema"
	"github.com/keel-orm/keel/pkg/session"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	// Asc represents ascending order.
	Asc OrderDirection = "ASC"
	// Desc represents descending order.
	Desc OrderDirection = "DESC"
)

type orderBy struct {
	column    string
	direction OrderDirection
}

// Query is a composable SELECT over one registered table. It accumulates
// conditions and rendering options, then executes inside the repository's
// session. Building never runs SQL; only All, First, Count, and Exists do.
type Query[T any] struct {
	sess     *session.Session
	table    *schema.Table
	columns  []string
	where    []Condition
	orderBy  []orderBy
	limit    *int
	offset   *int
	distinct bool
	err      error
}

func newQuery[T any](sess *session.Session, table *schema.Table) *Query[T] {
	return &Query[T]{sess: sess, table: table}
}

// Columns restricts the projected columns. The default is *.
func (q *Query[T]) Columns(cols ...string) *Query[T] {
	q.columns = cols
	return q
}

// Where adds a condition.
func (q *Query[T]) Where(condition Condition) *Query[T] {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition (alias for Where).
func (q *Query[T]) And(condition Condition) *Query[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *Query[T]) Or(condition Condition) *Query[T] {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// FilterBy adds equality conditions for every entry of the patch, combined
// with AND in column declaration order. A key that names no column poisons
// the query; the error surfaces on ToSQL or execution.
func (q *Query[T]) FilterBy(fields Fields) *Query[T] {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if !q.table.HasColumn(name) {
			q.err = &session.ValidationError{
				Field:   name,
				Message: fmt.Sprintf("no column %q in table %s", name, q.table.Name),
			}
			return q
		}
	}
	for _, name := range fields.columns(q.table) {
		q.where = append(q.where, Eq(name, fields[name]))
	}
	return q
}

// OrderBy adds an ORDER BY clause.
func (q *Query[T]) OrderBy(column string, direction OrderDirection) *Query[T] {
	q.orderBy = append(q.orderBy, orderBy{column: column, direction: direction})
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *Query[T]) OrderByAsc(column string) *Query[T] {
	return q.OrderBy(column, Asc)
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *Query[T]) OrderByDesc(column string) *Query[T] {
	return q.OrderBy(column, Desc)
}

// Limit sets the LIMIT clause.
func (q *Query[T]) Limit(limit int) *Query[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *Query[T]) Offset(offset int) *Query[T] {
	q.offset = &offset
	return q
}

// Distinct adds DISTINCT to the query.
func (q *Query[T]) Distinct() *Query[T] {
	q.distinct = true
	return q
}

// ToSQL generates the SELECT statement and arguments.
func (q *Query[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == nil {
		return "", nil, fmt.Errorf("table metadata not available")
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("SELECT ")
	if q.distinct {
		sql.WriteString("DISTINCT ")
	}

	if len(q.columns) == 0 || (len(q.columns) == 1 && q.columns[0] == "*") {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(q.columns, ", "))
	}

	sql.WriteString(" FROM ")
	sql.WriteString(q.table.Name)

	if len(q.where) > 0 {
		whereSQL, whereArgs, err := newWhereBuilder(q.where).build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		if whereSQL != "" {
			sql.WriteString(" ")
			sql.WriteString(whereSQL)
			args = append(args, whereArgs...)
		}
	}

	if len(q.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		orderParts := make([]string, len(q.orderBy))
		for i, order := range q.orderBy {
			orderParts[i] = order.column + " " + string(order.direction)
		}
		sql.WriteString(strings.Join(orderParts, ", "))
	}

	if q.limit != nil {
		sql.WriteString(fmt.Sprintf(" LIMIT %d", *q.limit))
	}

	if q.offset != nil {
		sql.WriteString(fmt.Sprintf(" OFFSET %d", *q.offset))
	}

	return sql.String(), args, nil
}

// All executes the query and returns every matching record.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := q.sess.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, q.table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// First executes the query and returns the first record, or nil when
// nothing matches.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	q.Limit(1)

	results, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, nil
	}

	return &results[0], nil
}

// Count executes a COUNT query with the accumulated conditions.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if q.table == nil {
		return 0, fmt.Errorf("table metadata not available")
	}

	var sql strings.Builder
	sql.WriteString("SELECT COUNT(*) FROM ")
	sql.WriteString(q.table.Name)

	var args []any
	if len(q.where) > 0 {
		whereSQL, whereArgs, err := newWhereBuilder(q.where).build()
		if err != nil {
			return 0, err
		}
		if whereSQL != "" {
			sql.WriteString(" ")
			sql.WriteString(whereSQL)
			args = append(args, whereArgs...)
		}
	}

	var count int64
	if err := q.sess.QueryRow(ctx, sql.String(), args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// Exists reports whether any rows match the query.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
