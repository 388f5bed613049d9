package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process RecordStore used for demos and tests. It enforces the
// same unique keys as the Postgres schema.
type Memory struct {
	// txMu serialises transactions; single statements only take mu.
	txMu   sync.Mutex
	mu     sync.Mutex
	tables map[string][]Row
	nextID map[string]int64
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row), nextID: make(map[string]int64)}
}

// FetchRows returns copies of matching rows ordered by id.
func (m *Memory) FetchRows(ctx context.Context, table string, filter Filter) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Row
	for _, row := range m.tables[table] {
		if matches(row, filter) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

// InsertRow stores fields under a fresh id and returns the stored row.
func (m *Memory) InsertRow(ctx context.Context, table string, fields Row) (Row, error) {
	return m.insert(table, fields, nil)
}

// UpdateRow merges fields into the row with the given id.
func (m *Memory) UpdateRow(ctx context.Context, table string, id int64, fields Row) error {
	return m.update(table, id, fields, nil)
}

// DeleteRow removes the row with the given id.
func (m *Memory) DeleteRow(ctx context.Context, table string, id int64) error {
	return m.delete(table, id, nil)
}

// WithTx runs fn with exclusive use of the transaction slot and undoes fn's
// own writes when it fails. Ids consumed by undone inserts are not reused.
func (m *Memory) WithTx(ctx context.Context, fn func(context.Context, RecordStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{m: m}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// undo reverts one write. It runs with m.mu held.
type undo func()

// memoryTx is the RecordStore handed to a WithTx callback.
type memoryTx struct {
	m    *Memory
	undo []undo
}

func (tx *memoryTx) FetchRows(ctx context.Context, table string, filter Filter) ([]Row, error) {
	return tx.m.FetchRows(ctx, table, filter)
}

func (tx *memoryTx) InsertRow(_ context.Context, table string, fields Row) (Row, error) {
	return tx.m.insert(table, fields, tx.record)
}

func (tx *memoryTx) UpdateRow(_ context.Context, table string, id int64, fields Row) error {
	return tx.m.update(table, id, fields, tx.record)
}

func (tx *memoryTx) DeleteRow(_ context.Context, table string, id int64) error {
	return tx.m.delete(table, id, tx.record)
}

// WithTx joins the running transaction.
func (tx *memoryTx) WithTx(ctx context.Context, fn func(context.Context, RecordStore) error) error {
	return fn(ctx, tx)
}

func (tx *memoryTx) record(u undo) {
	tx.undo = append(tx.undo, u)
}

func (tx *memoryTx) rollback() {
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (m *Memory) insert(table string, fields Row, record func(undo)) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row := normalizeRow(fields)
	if err := m.checkUnique(table, row, 0); err != nil {
		return nil, err
	}
	m.nextID[table]++
	id := m.nextID[table]
	row["id"] = id
	m.tables[table] = append(m.tables[table], row)
	if record != nil {
		record(func() { m.remove(table, id) })
	}
	return cloneRow(row), nil
}

func (m *Memory) update(table string, id int64, fields Row, record func(undo)) error {
	if err := checkTable(table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table]
	for i, row := range rows {
		if row.Int64("id") != id {
			continue
		}
		merged := cloneRow(row)
		for k, v := range normalizeRow(fields) {
			if k == "id" {
				continue
			}
			merged[k] = v
		}
		if err := m.checkUnique(table, merged, id); err != nil {
			return err
		}
		rows[i] = merged
		if record != nil {
			before := row
			record(func() {
				m.remove(table, id)
				m.place(table, before)
			})
		}
		return nil
	}
	return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
}

func (m *Memory) delete(table string, id int64, record func(undo)) error {
	if err := checkTable(table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed, ok := m.remove(table, id)
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	if record != nil {
		record(func() { m.place(table, removed) })
	}
	return nil
}

// remove drops the row with id. Callers hold mu.
func (m *Memory) remove(table string, id int64) (Row, bool) {
	rows := m.tables[table]
	for i, row := range rows {
		if row.Int64("id") == id {
			m.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return row, true
		}
	}
	return nil, false
}

// place inserts row keeping the table ordered by id. Callers hold mu.
func (m *Memory) place(table string, row Row) {
	rows := m.tables[table]
	id := row.Int64("id")
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Int64("id") > id })
	rows = append(rows, nil)
	copy(rows[i+1:], rows[i:])
	rows[i] = row
	m.tables[table] = rows
}

func (m *Memory) checkUnique(table string, row Row, selfID int64) error {
	for _, cols := range uniqueKeys[table] {
		for _, existing := range m.tables[table] {
			if existing.Int64("id") == selfID && selfID != 0 {
				continue
			}
			same := true
			for _, col := range cols {
				if !equalValues(existing[col], row[col]) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%w: %s %v", ErrDuplicate, table, cols)
			}
		}
	}
	return nil
}

func matches(row Row, filter Filter) bool {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !equalValues(row[k], normalizeValue(filter[k])) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	da, aok := a.(decimal.Decimal)
	db, bok := b.(decimal.Decimal)
	if aok && bok {
		return da.Equal(db)
	}
	return reflect.DeepEqual(a, b)
}

func normalizeRow(fields Row) Row {
	out := make(Row, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case *int:
		if n == nil {
			return nil
		}
		return int64(*n)
	case *decimal.Decimal:
		if n == nil {
			return nil
		}
		return *n
	}
	return v
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
