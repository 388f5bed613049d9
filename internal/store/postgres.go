package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

// Postgres implements RecordStore on a pgx pool.
type Postgres struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool}
}

// EnsureSchema creates any missing tables.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// FetchRows selects rows matching filter ordered by id.
func (p *Postgres) FetchRows(ctx context.Context, table string, filter Filter) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	query, args := buildSelect(table, filter)
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapError(table, err)
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

// InsertRow inserts fields and returns the stored row including defaults.
func (p *Postgres) InsertRow(ctx context.Context, table string, fields Row) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	query, args := buildInsert(table, fields)
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(table, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapError(table, err)
	}
	return Row(m), nil
}

// UpdateRow updates the row with the given id.
func (p *Postgres) UpdateRow(ctx context.Context, table string, id int64, fields Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	query, args := buildUpdate(table, id, fields)
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	return nil
}

// DeleteRow deletes the row with the given id.
func (p *Postgres) DeleteRow(ctx context.Context, table string, id int64) error {
	if err := checkTable(table); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", pgx.Identifier{table}.Sanitize())
	tag, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return mapError(table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	return nil
}

// WithTx runs fn inside a single database transaction. Nested calls reuse the
// outer transaction.
func (p *Postgres) WithTx(ctx context.Context, fn func(context.Context, RecordStore) error) error {
	if p.pool == nil {
		return fn(ctx, p)
	}
	return db.WithTx(ctx, p.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &Postgres{db: tx})
	})
}

func buildSelect(table string, filter Filter) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", pgx.Identifier{table}.Sanitize())
	cols := sortedKeys(filter)
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, filter[col])
		fmt.Fprintf(&b, "%s = $%d", pgx.Identifier{col}.Sanitize(), len(args))
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args
}

func buildInsert(table string, fields Row) (string, []any) {
	cols := sortedKeys(fields)
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", pgx.Identifier{table}.Sanitize()), nil
	}
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = pgx.Identifier{col}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pgx.Identifier{table}.Sanitize(), strings.Join(names, ", "), strings.Join(params, ", "))
	return query, args
}

func buildUpdate(table string, id int64, fields Row) (string, []any) {
	cols := sortedKeys(fields)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		if col == "id" {
			continue
		}
		args = append(args, fields[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{table}.Sanitize(), strings.Join(sets, ", "), len(args))
	return query, args
}

func mapError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s (%s)", ErrDuplicate, table, pgErr.ConstraintName)
		case pgUndefinedTable:
			return fmt.Errorf("%w: %s", ErrUnknownTable, table)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return fmt.Errorf("store: %s: %w", table, err)
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
