package model

import (
	"reflect"
	"testing"
	"time"
)

func freezeTime(t *testing.T, instant time.Time) {
	t.Helper()
	restore := timeNow
	timeNow = func() time.Time { return instant }
	t.Cleanup(func() { timeNow = restore })
}

func TestStructToValues(t *testing.T) {
	table := mustTable(t, &Student{})

	t.Run("skips auto-increment primary key", func(t *testing.T) {
		rec := Student{Name: "Ada", Email: "ada@example.com", Year: 2}
		rec.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		rec.UpdatedAt = rec.CreatedAt

		columns, values, err := structToValues(&rec, table)
		if err != nil {
			t.Fatalf("structToValues() error = %v", err)
		}

		want := []string{"created_at", "updated_at", "name", "email", "year", "bio"}
		if !reflect.DeepEqual(columns, want) {
			t.Errorf("columns = %v, want %v", columns, want)
		}
		if len(values) != len(columns) {
			t.Errorf("len(values) = %d, want %d", len(values), len(columns))
		}
	})

	t.Run("skips zero fields with database defaults", func(t *testing.T) {
		courseTable := mustTable(t, &Course{})
		rec := Course{Title: "Algorithms"}
		rec.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		rec.UpdatedAt = rec.CreatedAt

		columns, _, err := structToValues(&rec, courseTable)
		if err != nil {
			t.Fatalf("structToValues() error = %v", err)
		}

		for _, c := range columns {
			if c == "credits" {
				t.Error("zero credits should be omitted so the database default applies")
			}
		}
	})

	t.Run("keeps non-zero fields with database defaults", func(t *testing.T) {
		courseTable := mustTable(t, &Course{})
		rec := Course{Title: "Algorithms", Credits: 4}

		columns, _, err := structToValues(&rec, courseTable)
		if err != nil {
			t.Fatalf("structToValues() error = %v", err)
		}

		found := false
		for _, c := range columns {
			if c == "credits" {
				found = true
			}
		}
		if !found {
			t.Error("non-zero credits should be included")
		}
	})

	t.Run("rejects non-struct values", func(t *testing.T) {
		if _, _, err := structToValues(42, table); err == nil {
			t.Error("expected error for non-struct value")
		}
	})
}

func TestPrimaryKeyValue(t *testing.T) {
	table := mustTable(t, &Student{})

	t.Run("zero id means not persisted", func(t *testing.T) {
		var rec Student
		_, persisted, err := primaryKeyValue(&rec, table)
		if err != nil {
			t.Fatalf("primaryKeyValue() error = %v", err)
		}
		if persisted {
			t.Error("zero id reported as persisted")
		}
	})

	t.Run("non-zero id is returned", func(t *testing.T) {
		rec := Student{Timestamped: Timestamped{ID: 42}}
		val, persisted, err := primaryKeyValue(&rec, table)
		if err != nil {
			t.Fatalf("primaryKeyValue() error = %v", err)
		}
		if !persisted {
			t.Error("non-zero id reported as not persisted")
		}
		if val != int64(42) {
			t.Errorf("value = %v, want 42", val)
		}
	})
}

func TestTouchTimestamps(t *testing.T) {
	table := mustTable(t, &Student{})
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	freezeTime(t, now)

	t.Run("creation sets both to the same instant", func(t *testing.T) {
		var rec Student
		touchTimestamps(&rec, table, true)

		if !rec.CreatedAt.Equal(now) {
			t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, now)
		}
		if !rec.UpdatedAt.Equal(rec.CreatedAt) {
			t.Errorf("UpdatedAt = %v, want CreatedAt %v", rec.UpdatedAt, rec.CreatedAt)
		}
	})

	t.Run("creation keeps provided values", func(t *testing.T) {
		given := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
		rec := Student{Timestamped: Timestamped{CreatedAt: given}}
		touchTimestamps(&rec, table, true)

		if !rec.CreatedAt.Equal(given) {
			t.Errorf("CreatedAt = %v, want provided %v", rec.CreatedAt, given)
		}
		if !rec.UpdatedAt.Equal(now) {
			t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, now)
		}
	})

	t.Run("update resets only the update column", func(t *testing.T) {
		created := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
		rec := Student{Timestamped: Timestamped{CreatedAt: created, UpdatedAt: created}}
		touchTimestamps(&rec, table, false)

		if !rec.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want unchanged %v", rec.CreatedAt, created)
		}
		if !rec.UpdatedAt.Equal(now) {
			t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, now)
		}
	})
}

func TestIsAssociation(t *testing.T) {
	if !isAssociation(new(Enrollment)) {
		t.Error("Enrollment embeds Association and should be detected")
	}
	if isAssociation(new(Student)) {
		t.Error("Student is not an association table")
	}
}
