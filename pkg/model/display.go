package model

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Rows returns the table contents as strings, one slice per record, values
// in column declaration order. A positive limit caps the row count.
func (r *Repo[T]) Rows(ctx context.Context, limit int) ([][]string, error) {
	records, err := r.Find(ctx, limit)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(records))
	for i := range records {
		modelValue := reflect.ValueOf(&records[i]).Elem()
		row := make([]string, len(r.table.Columns))
		for j := range r.table.Columns {
			row[j] = formatValue(modelValue.FieldByName(r.table.Columns[j].GoField))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Render writes the table name followed by a bordered grid of rows to w. A
// positive limit caps the row count.
func (r *Repo[T]) Render(ctx context.Context, w io.Writer, limit int) error {
	rows, err := r.Rows(ctx, limit)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, r.TableName()); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, renderGrid(r.ColumnNames(), rows))
	return err
}

// Display prints the table to standard output. Diagnostic helper.
func (r *Repo[T]) Display(ctx context.Context, limit int) error {
	return r.Render(ctx, os.Stdout, limit)
}

// renderGrid draws a bordered grid with a header row. No colors: the output
// is meant for logs and terminals alike.
func renderGrid(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(int, int) lipgloss.Style { return cell }).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func formatValue(field reflect.Value) string {
	if !field.IsValid() {
		return "NULL"
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return "NULL"
		}
		field = field.Elem()
	}

	switch v := field.Interface().(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case driver.Valuer:
		val, err := v.Value()
		if err != nil {
			return fmt.Sprintf("%v", field.Interface())
		}
		if val == nil {
			return "NULL"
		}
		if t, ok := val.(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
