package model

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/keel-orm/keel/pkg/registry"
	"github.com/keel-orm/keel/pkg/schema"
	"github.com/keel-orm/keel/pkg/session"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// Repo is a generic repository over one registered model type, bound to a
// single session. Writes are staged in the session's transaction; pass
// commit=true to make them durable immediately, or commit=false to batch
// several writes and call Commit once.
type Repo[T any] struct {
	sess  *session.Session
	table *schema.Table
}

// New builds a repository for T on the given session, registering the type's
// table metadata on first use.
func New[T any](sess *session.Session) (*Repo[T], error) {
	var zero T
	table, err := registry.GetOrRegister(&zero)
	if err != nil {
		return nil, err
	}
	return &Repo[T]{sess: sess, table: table}, nil
}

// Session returns the session the repository operates in.
func (r *Repo[T]) Session() *session.Session {
	return r.sess
}

// Table returns the registered table metadata.
func (r *Repo[T]) Table() *schema.Table {
	return r.table
}

// ModelName returns the Go struct name of the model.
func (r *Repo[T]) ModelName() string {
	return r.table.Model
}

// TableName returns the table name in PostgreSQL.
func (r *Repo[T]) TableName() string {
	return r.table.Name
}

// Columns returns the column metadata in declaration order.
func (r *Repo[T]) Columns() []schema.Column {
	return r.table.Columns
}

// ColumnNames returns the column names in declaration order.
func (r *Repo[T]) ColumnNames() []string {
	return r.table.ColumnNames()
}

// Create validates the patch, builds a record from it, and inserts it. The
// returned record carries the engine-assigned id and both timestamps.
func (r *Repo[T]) Create(ctx context.Context, fields Fields, commit bool) (*T, error) {
	if err := fields.Validate(r.table); err != nil {
		return nil, err
	}

	rec := new(T)
	if err := fields.apply(reflect.ValueOf(rec).Elem(), r.table); err != nil {
		return nil, err
	}

	return r.insert(ctx, rec, commit)
}

// Update applies the validated patch to a persisted record and writes the
// patched columns back. The update timestamp is reset even when the patch is
// empty, and the record is refreshed from the row the database returns.
func (r *Repo[T]) Update(ctx context.Context, rec *T, fields Fields, commit bool) (*T, error) {
	if err := fields.Validate(r.table); err != nil {
		return nil, err
	}

	pkVal, persisted, err := primaryKeyValue(rec, r.table)
	if err != nil {
		return nil, err
	}
	if !persisted {
		return nil, session.ErrNotPersisted
	}

	if err := fields.apply(reflect.ValueOf(rec).Elem(), r.table); err != nil {
		return nil, err
	}
	touchTimestamps(rec, r.table, false)

	cols := r.patchedColumns(fields)
	if len(cols) == 0 {
		if commit {
			if err := r.sess.Commit(ctx); err != nil {
				return nil, err
			}
		}
		return rec, nil
	}

	return r.update(ctx, rec, cols, pkVal, commit)
}

// Save persists the record as it stands: an insert when the primary key is
// zero, otherwise a full-row update.
func (r *Repo[T]) Save(ctx context.Context, rec *T, commit bool) (*T, error) {
	pkVal, persisted, err := primaryKeyValue(rec, r.table)
	if err != nil {
		return nil, err
	}

	if !persisted {
		return r.insert(ctx, rec, commit)
	}

	touchTimestamps(rec, r.table, false)

	var cols []string
	for i := range r.table.Columns {
		if !r.table.Columns[i].PrimaryKey {
			cols = append(cols, r.table.Columns[i].Name)
		}
	}

	return r.update(ctx, rec, cols, pkVal, commit)
}

// Delete removes a persisted record. Deleting a row that is already gone is
// not an error.
func (r *Repo[T]) Delete(ctx context.Context, rec *T, commit bool) error {
	pkVal, persisted, err := primaryKeyValue(rec, r.table)
	if err != nil {
		return err
	}
	if !persisted {
		return session.ErrNotPersisted
	}

	sql, args, err := r.deleteSQL(pkVal)
	if err != nil {
		return err
	}

	if _, err := r.sess.Exec(ctx, sql, args...); err != nil {
		return err
	}

	if commit {
		return r.sess.Commit(ctx)
	}
	return nil
}

// Commit flushes the session's staged work.
func (r *Repo[T]) Commit(ctx context.Context) error {
	return r.sess.Commit(ctx)
}

// GetByID fetches a record by primary key. The id may be any integer type,
// a float with no fractional part, or a string of digits; anything else,
// including negative numbers, resolves to (nil, nil).
func (r *Repo[T]) GetByID(ctx context.Context, id any) (*T, error) {
	n, ok := ParseID(id)
	if !ok {
		return nil, nil
	}

	pk := r.table.PrimaryKey()
	if pk == nil {
		return nil, session.ErrNoPrimaryKey
	}

	return r.Select(Eq(pk.Name, n)).First(ctx)
}

// GetByIDs fetches the records whose primary keys appear in ids. Ids that do
// not parse are skipped; when none parse, no query runs.
func (r *Repo[T]) GetByIDs(ctx context.Context, ids ...any) ([]T, error) {
	vals := make([]any, 0, len(ids))
	for _, id := range ids {
		if n, ok := ParseID(id); ok {
			vals = append(vals, n)
		}
	}
	if len(vals) == 0 {
		return nil, nil
	}

	pk := r.table.PrimaryKey()
	if pk == nil {
		return nil, session.ErrNoPrimaryKey
	}

	return r.Select(In(pk.Name, vals...)).All(ctx)
}

// Select starts a query with the given conditions.
func (r *Repo[T]) Select(conds ...Condition) *Query[T] {
	q := newQuery[T](r.sess, r.table)
	for _, c := range conds {
		q.Where(c)
	}
	return q
}

// Find returns the records matching the conditions, up to limit when limit
// is positive.
func (r *Repo[T]) Find(ctx context.Context, limit int, conds ...Condition) ([]T, error) {
	q := r.Select(conds...)
	if limit > 0 {
		q.Limit(limit)
	}
	return q.All(ctx)
}

// All returns every record in the table.
func (r *Repo[T]) All(ctx context.Context) ([]T, error) {
	return r.Select().All(ctx)
}

// First returns the first record matching the equality filters, or nil when
// nothing matches.
func (r *Repo[T]) First(ctx context.Context, by Fields) (*T, error) {
	return r.Select().FilterBy(by).First(ctx)
}

// Count returns the number of records matching the conditions.
func (r *Repo[T]) Count(ctx context.Context, conds ...Condition) (int64, error) {
	return r.Select(conds...).Count(ctx)
}

// Exists reports whether any record matches the conditions.
func (r *Repo[T]) Exists(ctx context.Context, conds ...Condition) (bool, error) {
	return r.Select(conds...).Exists(ctx)
}

// UpdateByID looks a record up by id and applies the patch. A missing or
// unparseable id is a *session.NotFoundError.
func (r *Repo[T]) UpdateByID(ctx context.Context, id any, fields Fields, commit bool) (*T, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		n, _ := ParseID(id)
		return nil, &session.NotFoundError{Model: r.ModelName(), ID: n}
	}
	return r.Update(ctx, rec, fields, commit)
}

// DeleteByID looks a record up by id and deletes it. A missing or
// unparseable id is a *session.NotFoundError.
func (r *Repo[T]) DeleteByID(ctx context.Context, id any, commit bool) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		n, _ := ParseID(id)
		return &session.NotFoundError{Model: r.ModelName(), ID: n}
	}
	return r.Delete(ctx, rec, commit)
}

// CreateOrUpdate inserts the record described by the patch, or for
// association tables upserts it keyed on the foreign key combination: when a
// record with the same foreign key values exists it is updated, otherwise
// one is created. Every foreign key column must appear in the patch. The
// result is committed either way.
//
// A unique violation on the insert, from a second session winning the same
// key, is retried as an update, so a composite unique constraint on the
// foreign key columns makes the upsert exact instead of best effort.
func (r *Repo[T]) CreateOrUpdate(ctx context.Context, fields Fields) (*T, error) {
	if !isAssociation(new(T)) {
		return r.Create(ctx, fields, true)
	}

	fkNames := r.table.ForeignKeyNames()
	if len(fkNames) == 0 {
		return r.Create(ctx, fields, true)
	}

	key := make(Fields, len(fkNames))
	for _, name := range fkNames {
		value, ok := fields[name]
		if !ok {
			return nil, &session.ValidationError{
				Field:   name,
				Message: "missing foreign key for upsert",
			}
		}
		key[name] = value
	}

	rec, err := r.First(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return r.Update(ctx, rec, fields, true)
	}

	created, err := r.Create(ctx, fields, true)
	if err == nil {
		return created, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, err
	}

	// Lost the insert race. The failed insert aborted the transaction, so
	// roll back before looking the winner up.
	if rbErr := r.sess.Rollback(ctx); rbErr != nil {
		return nil, rbErr
	}

	rec, err = r.First(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &session.PersistenceError{Op: "upsert", Err: pgErr}
	}
	return r.Update(ctx, rec, fields, true)
}

// insert writes a new row and refreshes the record from RETURNING.
func (r *Repo[T]) insert(ctx context.Context, rec *T, commit bool) (*T, error) {
	touchTimestamps(rec, r.table, true)

	sql, args, err := r.insertSQL(rec)
	if err != nil {
		return nil, err
	}

	found, err := r.queryOne(ctx, rec, "insert", sql, args)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &session.PersistenceError{Op: "insert", Err: errors.New("no row returned")}
	}

	if commit {
		if err := r.sess.Commit(ctx); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// update writes the named columns of a persisted record and refreshes the
// record from RETURNING.
func (r *Repo[T]) update(ctx context.Context, rec *T, cols []string, pkVal any, commit bool) (*T, error) {
	sql, args, err := r.updateSQL(rec, cols, pkVal)
	if err != nil {
		return nil, err
	}

	found, err := r.queryOne(ctx, rec, "update", sql, args)
	if err != nil {
		return nil, err
	}
	if !found {
		n, _ := ParseID(pkVal)
		return nil, &session.NotFoundError{Model: r.ModelName(), ID: n}
	}

	if commit {
		if err := r.sess.Commit(ctx); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// queryOne runs a statement expected to return at most one row and scans it
// into rec. The bool result reports whether a row came back.
func (r *Repo[T]) queryOne(ctx context.Context, rec *T, op, sql string, args []any) (bool, error) {
	rows, err := r.sess.Query(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, &session.PersistenceError{Op: op, Err: err}
		}
		return false, nil
	}

	if err := scanIntoStruct(rows, rec, r.table); err != nil {
		return false, err
	}

	rows.Close()
	if err := rows.Err(); err != nil {
		return false, &session.PersistenceError{Op: op, Err: err}
	}
	return true, nil
}

// patchedColumns returns the columns an update must write: the patched ones
// plus every auto-update timestamp, in declaration order. The primary key is
// never written.
func (r *Repo[T]) patchedColumns(fields Fields) []string {
	var cols []string
	for i := range r.table.Columns {
		col := &r.table.Columns[i]
		if col.PrimaryKey {
			continue
		}
		if _, ok := fields[col.Name]; ok || col.AutoUpdate {
			cols = append(cols, col.Name)
		}
	}
	return cols
}

func (r *Repo[T]) insertSQL(rec *T) (string, []any, error) {
	columns, values, err := structToValues(rec, r.table)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no values to insert")
	}

	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		r.table.Name,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
	return sql, values, nil
}

func (r *Repo[T]) updateSQL(rec *T, cols []string, pkVal any) (string, []any, error) {
	pk := r.table.PrimaryKey()
	if pk == nil {
		return "", nil, session.ErrNoPrimaryKey
	}

	modelValue := reflect.ValueOf(rec).Elem()

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("UPDATE ")
	sql.WriteString(r.table.Name)
	sql.WriteString(" SET ")

	setClauses := make([]string, 0, len(cols))
	for _, name := range cols {
		col := r.table.Column(name)
		if col == nil || col.PrimaryKey {
			continue
		}
		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", name, paramNum))
		args = append(args, field.Interface())
		paramNum++
	}
	if len(setClauses) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}
	sql.WriteString(strings.Join(setClauses, ", "))

	sql.WriteString(fmt.Sprintf(" WHERE %s = $%d", pk.Name, paramNum))
	args = append(args, pkVal)
	sql.WriteString(" RETURNING *")

	return sql.String(), args, nil
}

func (r *Repo[T]) deleteSQL(pkVal any) (string, []any, error) {
	pk := r.table.PrimaryKey()
	if pk == nil {
		return "", nil, session.ErrNoPrimaryKey
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table.Name, pk.Name)
	return sql, []any{pkVal}, nil
}
