package schema

import (
	"reflect"
	"testing"
	"time"
)

type Author struct {
	ID        int64     `keel:"id,primaryKey,serial"`
	Name      string    `keel:"name,varchar(255),notNull"`
	Email     string    `keel:"email,varchar(320),unique,notNull"`
	Rating    float64   `keel:"rating,default(0),notNull"`
	CreatedAt time.Time `keel:"created_at,autoCreate"`
	UpdatedAt time.Time `keel:"updated_at,autoCreate,autoUpdate"`
}

type Review struct {
	ID       int64  `keel:"id,primaryKey,serial"`
	AuthorID int64  `keel:"author_id,fk(authors)"`
	BookID   int64  `keel:"book_id,fk(books.id)"`
	EditorID *int64 `keel:"editor_id,fk(editors),nullable"`
	Body     string `keel:"body,text"`
}

type base struct {
	ID int64 `keel:"id,primaryKey,serial"`
}

type Shelf struct {
	base
	Label string `keel:"label,notNull"`
}

type Legacy struct {
	ID int64 `keel:"id,primaryKey"`
}

func (Legacy) TableName() string { return "legacy_records" }

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	t.Run("basic struct parsing", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeOf(Author{}))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if table.Name != "authors" {
			t.Errorf("expected table name 'authors', got '%s'", table.Name)
		}
		if table.Model != "Author" {
			t.Errorf("expected model name 'Author', got '%s'", table.Model)
		}
		if len(table.Columns) != 6 {
			t.Errorf("expected 6 columns, got %d", len(table.Columns))
		}

		pk := table.PrimaryKey()
		if pk == nil {
			t.Fatal("expected primary key to be set")
		}
		if pk.Name != "id" || !pk.AutoIncrement {
			t.Errorf("expected auto-increment primary key 'id', got %+v", pk)
		}
	})

	t.Run("column metadata", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeOf(Author{}))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		nameCol := table.Column("name")
		if nameCol == nil {
			t.Fatal("name column not found")
		}
		if nameCol.SQLType != "varchar(255)" {
			t.Errorf("expected varchar(255), got '%s'", nameCol.SQLType)
		}
		if nameCol.Nullable {
			t.Error("expected name to be not null")
		}

		emailCol := table.Column("email")
		if emailCol == nil {
			t.Fatal("email column not found")
		}
		if !emailCol.Unique {
			t.Error("expected email to be unique")
		}
		if table.ColumnByField("Email") != emailCol {
			t.Error("ColumnByField(Email) should resolve to the email column")
		}

		ratingCol := table.Column("rating")
		if ratingCol == nil {
			t.Fatal("rating column not found")
		}
		if ratingCol.SQLType != "double precision" {
			t.Errorf("expected double precision, got '%s'", ratingCol.SQLType)
		}
		if ratingCol.Default != "0" {
			t.Errorf("expected default 0, got %q", ratingCol.Default)
		}
	})

	t.Run("automatic timestamps", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeOf(Author{}))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		created := table.Column("created_at")
		if created == nil {
			t.Fatal("created_at column not found")
		}
		if !created.AutoCreate || created.AutoUpdate {
			t.Errorf("created_at: want autoCreate only, got create=%v update=%v",
				created.AutoCreate, created.AutoUpdate)
		}
		if created.SQLType != "timestamptz" {
			t.Errorf("expected timestamptz, got '%s'", created.SQLType)
		}

		updated := table.Column("updated_at")
		if updated == nil {
			t.Fatal("updated_at column not found")
		}
		if !updated.AutoCreate || !updated.AutoUpdate {
			t.Errorf("updated_at: want autoCreate and autoUpdate, got create=%v update=%v",
				updated.AutoCreate, updated.AutoUpdate)
		}
	})

	t.Run("foreign keys", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeFor[Review]())
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		fkNames := table.ForeignKeyNames()
		want := []string{"author_id", "book_id", "editor_id"}
		if !reflect.DeepEqual(fkNames, want) {
			t.Errorf("expected fk names %v, got %v", want, fkNames)
		}

		authorFK := table.Column("author_id")
		if authorFK.References != "authors" || authorFK.RefColumn != "id" {
			t.Errorf("author_id: expected authors.id, got %s.%s",
				authorFK.References, authorFK.RefColumn)
		}
		if authorFK.Nullable {
			t.Error("foreign keys default to not null")
		}

		bookFK := table.Column("book_id")
		if bookFK.References != "books" || bookFK.RefColumn != "id" {
			t.Errorf("book_id: expected books.id, got %s.%s",
				bookFK.References, bookFK.RefColumn)
		}

		editorFK := table.Column("editor_id")
		if !editorFK.Nullable {
			t.Error("expected editor_id to be nullable")
		}
	})

	t.Run("embedded struct promotion", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeFor[Shelf]())
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		names := table.ColumnNames()
		want := []string{"id", "label"}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("expected columns %v, got %v", want, names)
		}
		if table.Column("id").Position != 0 || table.Column("label").Position != 1 {
			t.Error("expected embedded columns to come first")
		}
	})

	t.Run("table name override", func(t *testing.T) {
		table, err := parser.Parse(reflect.TypeOf(&Legacy{}))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if table.Name != "legacy_records" {
			t.Errorf("expected 'legacy_records', got '%s'", table.Name)
		}
	})

	t.Run("duplicate column", func(t *testing.T) {
		type Clash struct {
			base
			Other int64 `keel:"id"`
		}
		if _, err := parser.Parse(reflect.TypeFor[Clash]()); err == nil {
			t.Error("expected duplicate column error")
		}
	})

	t.Run("untagged struct", func(t *testing.T) {
		type Bare struct {
			Name string
		}
		if _, err := parser.Parse(reflect.TypeFor[Bare]()); err == nil {
			t.Error("expected error for struct without tags")
		}
	})

	t.Run("cache returns same instance", func(t *testing.T) {
		table1, _ := parser.Parse(reflect.TypeOf(Author{}))
		table2, _ := parser.Parse(reflect.TypeOf(&Author{}))
		if table1 != table2 {
			t.Error("expected cached result to be the same instance")
		}
	})
}

func TestParseTag(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		tag      string
		expected *TagOptions
		wantErr  bool
	}{
		{
			name: "simple column name",
			tag:  "id",
			expected: &TagOptions{
				Name:    "id",
				Options: map[string]string{},
			},
		},
		{
			name: "column with single option",
			tag:  "id,primaryKey",
			expected: &TagOptions{
				Name: "id",
				Options: map[string]string{
					"primaryKey": "",
				},
			},
		},
		{
			name: "column with value option",
			tag:  "name,varchar(255)",
			expected: &TagOptions{
				Name: "name",
				Options: map[string]string{
					"varchar": "255",
				},
			},
		},
		{
			name: "foreign key with dotted ref",
			tag:  "student_id,fk(students.id),notNull",
			expected: &TagOptions{
				Name: "student_id",
				Options: map[string]string{
					"fk":      "students.id",
					"notNull": "",
				},
			},
		},
		{
			name: "default with nested commas",
			tag:  "balance,numeric(8,2),default(0),notNull",
			expected: &TagOptions{
				Name: "balance",
				Options: map[string]string{
					"numeric": "8,2",
					"default": "0",
					"notNull": "",
				},
			},
		},
		{
			name:    "empty tag",
			tag:     "",
			wantErr: true,
		},
		{
			name:    "unbalanced option",
			tag:     "name,varchar(255",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.parseTag(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseTag() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if result.Name != tt.expected.Name {
				t.Errorf("expected name '%s', got '%s'", tt.expected.Name, result.Name)
			}
			if len(result.Options) != len(tt.expected.Options) {
				t.Errorf("expected %d options, got %d", len(tt.expected.Options), len(result.Options))
			}
			for key, expectedVal := range tt.expected.Options {
				if actualVal, ok := result.Options[key]; !ok || actualVal != expectedVal {
					t.Errorf("option '%s': expected '%s', got '%s'", key, expectedVal, actualVal)
				}
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "user"},
		{"CourseGrade", "course_grade"},
		{"BankAccount", "bank_account"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := toSnakeCase(tt.input)
			if result != tt.expected {
				t.Errorf("toSnakeCase(%s) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSplitTag(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		expected []string
	}{
		{
			name:     "simple split",
			tag:      "id,primaryKey,serial",
			expected: []string{"id", "primaryKey", "serial"},
		},
		{
			name:     "with parentheses",
			tag:      "name,varchar(255),notNull",
			expected: []string{"name", "varchar(255)", "notNull"},
		},
		{
			name:     "nested commas",
			tag:      "balance,numeric(8,2),default(0)",
			expected: []string{"balance", "numeric(8,2)", "default(0)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitTag(tt.tag)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d parts, got %d", len(tt.expected), len(result))
				return
			}
			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("part %d: expected '%s', got '%s'", i, expected, result[i])
				}
			}
		})
	}
}

func TestTableNamePluralization(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		model reflect.Type
		want  string
	}{
		{reflect.TypeFor[Author](), "authors"},
		{reflect.TypeFor[Shelf](), "shelves"},
		{reflect.TypeFor[Review](), "reviews"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			table, err := parser.Parse(tt.model)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if table.Name != tt.want {
				t.Errorf("expected '%s', got '%s'", tt.want, table.Name)
			}
		})
	}
}
