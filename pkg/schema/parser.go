package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"
)

// TagKey is the struct tag key keel reads (e.g. `keel:"..."`).
const TagKey = "keel"

// Parser extracts Table metadata from struct types. Results are cached
// per type; a Parser is not safe for concurrent use on its own, the
// registry serializes access.
type Parser struct {
	mapper *TypeMapper
	cache  map[reflect.Type]*Table
}

// NewParser creates a Parser backed by the default type mapper.
func NewParser() *Parser {
	return &Parser{
		mapper: DefaultTypeMapper,
		cache:  make(map[reflect.Type]*Table),
	}
}

// Parse extracts Table metadata from a struct type. Pointer types are
// dereferenced. Fields of embedded structs are promoted in declaration
// order, so a model embedding a base type lists the base columns first.
func (p *Parser) Parse(modelType reflect.Type) (*Table, error) {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &Table{
		Name:   p.tableName(modelType),
		Model:  modelType.Name(),
		GoType: modelType,
	}
	if err := p.parseFields(modelType, table); err != nil {
		return nil, fmt.Errorf("%s: %w", modelType.Name(), err)
	}
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("%s: no %s-tagged fields", modelType.Name(), TagKey)
	}

	p.cache[modelType] = table
	return table, nil
}

// tableName derives the table name for a struct type. A TableName
// method wins; otherwise the struct name is snake_cased and pluralized
// (Author -> authors, CourseGrade -> course_grades).
func (p *Parser) tableName(modelType reflect.Type) string {
	if namer, ok := reflect.New(modelType).Interface().(TableNamer); ok {
		return namer.TableName()
	}
	return inflection.Plural(toSnakeCase(modelType.Name()))
}

// parseFields appends column metadata for every tagged field of t,
// recursing into embedded structs. An embedded struct may be of an
// unexported type; its promoted exported fields still map to columns.
func (p *Parser) parseFields(t reflect.Type, table *Table) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			ft := field.Type
			for ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := p.parseFields(ft, table); err != nil {
					return err
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(TagKey)
		if tagValue == "" || tagValue == "-" {
			continue
		}
		opts, err := p.parseTag(tagValue)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		column, err := p.newColumn(field, opts)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if table.HasColumn(column.Name) {
			return fmt.Errorf("field %s: duplicate column %q", field.Name, column.Name)
		}
		column.Position = len(table.Columns)
		table.Columns = append(table.Columns, column)
	}
	return nil
}

// newColumn builds column metadata from a struct field and its parsed
// tag. Foreign key and automatic timestamp tags route through the
// column factories so the tag and factory paths agree.
func (p *Parser) newColumn(field reflect.StructField, opts *TagOptions) (Column, error) {
	var column Column
	switch {
	case opts.Has("fk"):
		ref := opts.Get("fk")
		if ref == "" {
			return Column{}, fmt.Errorf("fk option needs a referenced table, e.g. fk(authors)")
		}
		column = ForeignKeyColumn(opts.Name, ref, opts.Has("nullable"))
	case opts.Has("autoCreate") || opts.Has("autoUpdate"):
		var topts []TimestampOption
		if opts.Has("autoCreate") {
			topts = append(topts, CreatedNow())
		}
		if opts.Has("autoUpdate") {
			topts = append(topts, UpdatedNow())
		}
		column = TimestampColumn(opts.Name, topts...)
	default:
		column = Column{Name: opts.Name}
	}
	column.GoField = field.Name
	column.GoType = field.Type

	if sqlType := opts.GetSQLType(); sqlType != "" {
		column.SQLType = sqlType
	} else if column.SQLType == "" {
		mapped := p.mapper.PostgresType(field.Type)
		if mapped == "" {
			return Column{}, fmt.Errorf("no PostgreSQL type for %s; declare one in the tag", field.Type)
		}
		column.SQLType = mapped
	}

	column.AutoIncrement = column.AutoIncrement || opts.Has("serial") || opts.Has("autoIncrement")
	if !column.IsForeignKey() {
		column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")
	}
	if opts.Has("notNull") {
		column.Nullable = false
	}
	if IsNullable(field.Type) {
		column.Nullable = true
	}
	if opts.Has("primaryKey") {
		column.PrimaryKey = true
		column.Nullable = false
	}
	if defaultVal := opts.Get("default"); defaultVal != "" {
		if err := ValidateDefault(defaultVal); err != nil {
			return Column{}, err
		}
		column.Default = defaultVal
	}
	column.Unique = opts.Has("unique")
	return column, nil
}

// TagOptions represents a parsed tag: the column name and the remaining
// options.
type TagOptions struct {
	Name    string
	Options map[string]string
}

// parseTag parses a tag value of the form
// "column_name,option1,option2(value)".
func (p *Parser) parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	for _, opt := range parts[1:] {
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

// GetSQLType returns an explicit SQL type named in the options, with
// its parameter when present (varchar(255), numeric(8,2)).
func (t *TagOptions) GetSQLType() string {
	pgTypes := []string{
		"varchar", "char", "text",
		"smallint", "integer", "bigint", "serial", "bigserial",
		"numeric", "decimal", "real", "double precision",
		"boolean", "bool",
		"date", "time", "timestamp", "timestamptz",
	}
	for _, pgType := range pgTypes {
		if t.Has(pgType) {
			if value := t.Get(pgType); value != "" {
				return fmt.Sprintf("%s(%s)", pgType, value)
			}
			return pgType
		}
	}
	return ""
}

// splitTag splits a tag value by commas, keeping parenthesized
// parameters intact.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts a string from PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && ch >= 'A' && ch <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}
