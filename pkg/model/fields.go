package model

import (
	"database/sql"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/keel-orm/keel/pkg/schema"
	"github.com/keel-orm/keel/pkg/session"
)

// Fields is a column-keyed patch applied to a record. Keys are column names
// from the registered table, not Go field names. Unknown columns and values
// that cannot be stored in the target field are rejected with a
// *session.ValidationError before any SQL runs.
type Fields map[string]any

// Validate checks every key against the table's column set. Patches to the
// auto-increment primary key are rejected: ids are engine-assigned.
func (f Fields) Validate(table *schema.Table) error {
	for _, name := range slices.Sorted(maps.Keys(f)) {
		col := table.Column(name)
		if col == nil {
			return &session.ValidationError{
				Field:   name,
				Message: fmt.Sprintf("no column %q in table %s", name, table.Name),
			}
		}
		if col.PrimaryKey && col.AutoIncrement {
			return &session.ValidationError{
				Field:   name,
				Message: "engine-assigned column cannot be set",
			}
		}
	}
	return nil
}

// apply writes the patch onto dest, which must be an addressable struct
// value of the table's model type. Columns are visited in declaration order.
func (f Fields) apply(dest reflect.Value, table *schema.Table) error {
	for i := range table.Columns {
		col := &table.Columns[i]
		value, ok := f[col.Name]
		if !ok {
			continue
		}

		field := dest.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			return &session.ValidationError{
				Field:   col.Name,
				Message: fmt.Sprintf("field %s is not settable", col.GoField),
			}
		}

		if err := setField(field, value, col); err != nil {
			return err
		}
	}
	return nil
}

// columns returns the patched column names in declaration order.
func (f Fields) columns(table *schema.Table) []string {
	names := make([]string, 0, len(f))
	for i := range table.Columns {
		if _, ok := f[table.Columns[i].Name]; ok {
			names = append(names, table.Columns[i].Name)
		}
	}
	return names
}

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// setField stores value into a struct field, allowing the conversions a
// caller would reasonably expect: direct assignment, pointer wrapping,
// sql.Scanner types, and numeric widening.
func setField(field reflect.Value, value any, col *schema.Column) error {
	if value == nil {
		return setNil(field, col)
	}

	rv := reflect.ValueOf(value)
	ft := field.Type()

	// Direct assignment covers identical types and interface satisfaction.
	if rv.Type().AssignableTo(ft) {
		field.Set(rv)
		return nil
	}

	// Pointer fields accept the element value.
	if ft.Kind() == reflect.Ptr {
		elem := reflect.New(ft.Elem())
		if err := setField(elem.Elem(), value, col); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	// sql.Null* and friends take anything their Scan accepts.
	if field.CanAddr() && field.Addr().Type().Implements(scannerType) {
		if err := field.Addr().Interface().(sql.Scanner).Scan(value); err != nil {
			return &session.ValidationError{Field: col.Name, Message: err.Error()}
		}
		return nil
	}

	if convertibleKinds(rv.Kind(), ft.Kind()) && rv.Type().ConvertibleTo(ft) {
		field.Set(rv.Convert(ft))
		return nil
	}

	return &session.ValidationError{
		Field:   col.Name,
		Message: fmt.Sprintf("cannot assign %T to %s", value, ft),
	}
}

func setNil(field reflect.Value, col *schema.Column) error {
	if field.Kind() == reflect.Ptr {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if field.CanAddr() && field.Addr().Type().Implements(scannerType) {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	return &session.ValidationError{
		Field:   col.Name,
		Message: fmt.Sprintf("cannot assign NULL to %s", field.Type()),
	}
}

// convertibleKinds limits reflect conversions to ones that do not change the
// meaning of the value. Numeric kinds convert among themselves; string kinds
// convert to each other. Anything like int-to-string is rejected even though
// reflect would permit it.
func convertibleKinds(src, dst reflect.Kind) bool {
	if isNumericKind(src) && isNumericKind(dst) {
		return true
	}
	return src == reflect.String && dst == reflect.String
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
