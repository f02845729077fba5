package model

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"

	"github.com/keel-orm/keel/pkg/schema"
	"github.com/keel-orm/keel/pkg/session"
)

// scanIntoStruct scans the current row into a struct. Columns are matched by
// name against the registered metadata; FieldByName resolves fields promoted
// from embedded structs. Result columns with no matching field are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.Table) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("dest must be a pointer to struct")
	}

	destValue = destValue.Elem()
	if destValue.Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}

	fieldDescriptions := rows.FieldDescriptions()

	scanTargets := make([]any, len(fieldDescriptions))
	columnMap := make(map[string]int)
	for i, fd := range fieldDescriptions {
		columnMap[fd.Name] = i
	}

	for i := range table.Columns {
		col := &table.Columns[i]
		idx, ok := columnMap[col.Name]
		if !ok {
			continue
		}

		field := destValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		scanTargets[idx] = field.Addr().Interface()
	}

	var dummy any
	for i := range scanTargets {
		if scanTargets[i] == nil {
			scanTargets[i] = &dummy
		}
	}

	if err := rows.Scan(scanTargets...); err != nil {
		return fmt.Errorf("failed to scan row: %w", err)
	}

	return nil
}

// structToValues extracts insert columns and values from a record in column
// declaration order. Auto-increment primary keys are always omitted, and a
// zero-valued field whose column carries a database default is omitted so
// the default applies.
func structToValues(model any, table *schema.Table) ([]string, []any, error) {
	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Ptr {
		modelValue = modelValue.Elem()
	}

	if modelValue.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct")
	}

	var columns []string
	var values []any

	for i := range table.Columns {
		col := &table.Columns[i]
		if col.PrimaryKey && col.AutoIncrement {
			continue
		}

		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}

		if col.Default != "" && field.IsZero() {
			continue
		}

		columns = append(columns, col.Name)
		values = append(values, field.Interface())
	}

	return columns, values, nil
}

// primaryKeyValue reads the primary key field from a record. The bool result
// is false when the key holds its zero value, meaning the record has never
// been persisted.
func primaryKeyValue(model any, table *schema.Table) (any, bool, error) {
	pk := table.PrimaryKey()
	if pk == nil {
		return nil, false, fmt.Errorf("table %s: %w", table.Name, session.ErrNoPrimaryKey)
	}

	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Ptr {
		modelValue = modelValue.Elem()
	}

	field := modelValue.FieldByName(pk.GoField)
	if !field.IsValid() {
		return nil, false, fmt.Errorf("table %s primary key field %s not found", table.Name, pk.GoField)
	}

	return field.Interface(), !field.IsZero(), nil
}

// touchTimestamps sets the automatic timestamp fields on a record. At
// creation the creation and update columns receive the same instant unless
// the caller provided a value; on update the update columns are always
// reset.
func touchTimestamps(model any, table *schema.Table, creating bool) {
	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Ptr {
		modelValue = modelValue.Elem()
	}

	now := timeNow()
	for i := range table.Columns {
		col := &table.Columns[i]

		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if creating {
			if !(col.AutoCreate || col.AutoUpdate) || !field.IsZero() {
				continue
			}
		} else if !col.AutoUpdate {
			continue
		}

		nowValue := reflect.ValueOf(now)
		if nowValue.Type().AssignableTo(field.Type()) {
			field.Set(nowValue)
		}
	}
}
