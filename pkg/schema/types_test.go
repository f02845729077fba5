package schema

import (
	"database/sql"
	"reflect"
	"testing"
	"time"
)

func TestPostgresType(t *testing.T) {
	tm := NewTypeMapper()

	tests := []struct {
		goType reflect.Type
		want   string
	}{
		{reflect.TypeFor[bool](), "boolean"},
		{reflect.TypeFor[int16](), "smallint"},
		{reflect.TypeFor[int](), "integer"},
		{reflect.TypeFor[int64](), "bigint"},
		{reflect.TypeFor[float32](), "real"},
		{reflect.TypeFor[float64](), "double precision"},
		{reflect.TypeFor[string](), "text"},
		{reflect.TypeFor[time.Time](), "timestamptz"},
		{reflect.TypeFor[*string](), "text"},
		{reflect.TypeFor[sql.NullInt64](), "bigint"},
		{reflect.TypeFor[sql.NullTime](), "timestamptz"},
		{reflect.TypeFor[[]string](), ""},
		{reflect.TypeFor[map[string]any](), ""},
	}

	for _, tt := range tests {
		t.Run(tt.goType.String(), func(t *testing.T) {
			if got := tm.PostgresType(tt.goType); got != tt.want {
				t.Errorf("PostgresType(%s) = %q, want %q", tt.goType, got, tt.want)
			}
		})
	}
}

func TestPostgresType_CustomMapping(t *testing.T) {
	tm := NewTypeMapper()
	tm.RegisterType(reflect.TypeFor[[]string](), "text")

	if got := tm.PostgresType(reflect.TypeFor[[]string]()); got != "text" {
		t.Errorf("expected custom mapping 'text', got %q", got)
	}
}

func TestIsNullable(t *testing.T) {
	tests := []struct {
		goType reflect.Type
		want   bool
	}{
		{reflect.TypeFor[*int64](), true},
		{reflect.TypeFor[sql.NullString](), true},
		{reflect.TypeFor[sql.NullBool](), true},
		{reflect.TypeFor[string](), false},
		{reflect.TypeFor[time.Time](), false},
	}

	for _, tt := range tests {
		if got := IsNullable(tt.goType); got != tt.want {
			t.Errorf("IsNullable(%s) = %v, want %v", tt.goType, got, tt.want)
		}
	}
}
