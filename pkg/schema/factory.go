package schema

import (
	"reflect"
	"strings"
	"time"
)

// TimestampOption configures a column returned by TimestampColumn.
type TimestampOption func(*Column)

// CreatedNow marks the column to be assigned the current instant when a
// record is first persisted.
func CreatedNow() TimestampOption {
	return func(c *Column) { c.AutoCreate = true }
}

// UpdatedNow marks the column to be reassigned the current instant on
// every successful update.
func UpdatedNow() TimestampOption {
	return func(c *Column) { c.AutoUpdate = true }
}

// TimestampColumn returns metadata for a timestamptz column. With no
// options the column is an ordinary timestamp; CreatedNow and
// UpdatedNow attach the automatic clock behavior used by created_at
// and updated_at. Purely declarative, no side effects.
func TimestampColumn(name string, opts ...TimestampOption) Column {
	col := Column{
		Name:    name,
		GoType:  reflect.TypeOf(time.Time{}),
		SQLType: "timestamptz",
	}
	for _, opt := range opts {
		opt(&col)
	}
	return col
}

// ForeignKeyColumn returns metadata for an integer column referencing
// another table's id. ref is "table" or "table.column"; the referenced
// column defaults to id. Foreign keys are NOT NULL unless nullable is
// set, matching the usual shape of link tables.
func ForeignKeyColumn(name, ref string, nullable bool) Column {
	table, column := ref, "id"
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		table, column = ref[:i], ref[i+1:]
	}
	return Column{
		Name:       name,
		GoType:     reflect.TypeOf(int64(0)),
		SQLType:    "bigint",
		Nullable:   nullable,
		References: table,
		RefColumn:  column,
	}
}
