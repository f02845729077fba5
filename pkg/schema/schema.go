package schema

import "reflect"

// Table describes one mapped struct type: its table name, model name,
// and ordered column metadata. A Table is built once by the Parser and
// shared read-only afterwards.
type Table struct {
	// Name is the table name in PostgreSQL.
	Name string
	// Model is the Go struct name, used in errors and diagnostics.
	Model string
	// GoType is the struct type the table was parsed from.
	GoType reflect.Type
	// Columns holds column metadata in struct declaration order. The
	// order is fixed at parse time and every generated statement and
	// rendered row follows it.
	Columns []Column
}

// Column describes one mapped struct field.
type Column struct {
	// Name is the column name in PostgreSQL.
	Name string
	// GoField is the struct field the column maps to.
	GoField string
	// GoType is the field's Go type.
	GoType reflect.Type
	// Position is the column's index within Table.Columns.
	Position int
	// SQLType is the PostgreSQL type, from the tag or the type mapper.
	SQLType string

	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	// Default is a SQL default expression, empty when none.
	Default string

	// AutoCreate marks a timestamp assigned the current instant when a
	// record is created. AutoUpdate marks one reassigned on every
	// update. A column may carry both, like updated_at.
	AutoCreate bool
	AutoUpdate bool

	// References names the table a foreign key points at; empty for
	// ordinary columns. RefColumn is the referenced column, "id" unless
	// the tag says otherwise.
	References string
	RefColumn  string
}

// IsForeignKey reports whether the column references another table.
func (c *Column) IsForeignKey() bool {
	return c.References != ""
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnByField returns the column mapped from the given struct field,
// or nil.
func (t *Table) ColumnByField(field string) *Column {
	for i := range t.Columns {
		if t.Columns[i].GoField == field {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// PrimaryKey returns the primary key column, or nil when the table
// declares none.
func (t *Table) PrimaryKey() *Column {
	for i := range t.Columns {
		if t.Columns[i].PrimaryKey {
			return &t.Columns[i]
		}
	}
	return nil
}

// ForeignKeys returns the foreign key columns in declaration order.
func (t *Table) ForeignKeys() []*Column {
	var fks []*Column
	for i := range t.Columns {
		if t.Columns[i].IsForeignKey() {
			fks = append(fks, &t.Columns[i])
		}
	}
	return fks
}

// ForeignKeyNames returns the names of the foreign key columns in
// declaration order. For association tables this set is the natural
// key used by upserts.
func (t *Table) ForeignKeyNames() []string {
	var names []string
	for i := range t.Columns {
		if t.Columns[i].IsForeignKey() {
			names = append(names, t.Columns[i].Name)
		}
	}
	return names
}

// TableNamer overrides the table name derived from the struct name.
// Implement it on the model (pointer receivers work) to map a struct
// to an existing table.
type TableNamer interface {
	TableName() string
}
