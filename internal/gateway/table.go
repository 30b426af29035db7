package gateway

import (
	"context"
	"fmt"
	"math"

	"datadesk/internal/domain"
)

// ── Managed-table Gateway ───────────────────────────────────
// Maps load/persist onto a table store's select/insert/update/delete.

// TableClient is the table-store surface the gateway needs.
// dbclient connectors satisfy it.
type TableClient interface {
	Select(ctx context.Context, table, orderBy string) ([]domain.Record, error)
	Insert(ctx context.Context, table, idField string, rec domain.Record) (domain.Record, error)
	Update(ctx context.Context, table, idField string, id any, changes domain.Record) error
	Delete(ctx context.Context, table, idField string, id any) error
	Close() error
}

// Table is the managed-table gateway.
type Table struct {
	client  TableClient
	table   string
	orderBy string
	idField string
}

// NewTable creates a table gateway, filling in default order and id columns.
func NewTable(client TableClient, cfg domain.TableSettings) *Table {
	t := &Table{
		client:  client,
		table:   cfg.Table,
		orderBy: cfg.OrderBy,
		idField: cfg.IDField,
	}
	if t.table == "" {
		t.table = domain.DefaultTable
	}
	if t.orderBy == "" {
		t.orderBy = domain.DefaultOrderBy
	}
	if t.idField == "" {
		t.idField = domain.DefaultIDField
	}
	return t
}

func (t *Table) Load(ctx context.Context) ([]domain.Record, error) {
	records, err := t.client.Select(ctx, t.table, t.orderBy)
	if err != nil {
		return nil, &RemoteStoreError{Op: "select", Err: err}
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

func (t *Table) Persist(ctx context.Context, m domain.Mutation) (Result, error) {
	switch m.Action {
	case domain.ActionCreate:
		rec := m.Record.Clone()
		if rec.ID(t.idField) == "" {
			rec.Delete(t.idField)
		}
		inserted, err := t.client.Insert(ctx, t.table, t.idField, rec)
		if err != nil {
			return Result{}, &RemoteStoreError{Op: "insert", Err: err}
		}
		if inserted.Len() == 0 {
			inserted = rec
		}
		return Result{Record: inserted}, nil

	case domain.ActionUpdate:
		id, err := t.identifier(m.Record)
		if err != nil {
			return Result{}, err
		}
		changes := m.Record.Clone()
		changes.Delete(t.idField)
		if err := t.client.Update(ctx, t.table, t.idField, id, changes); err != nil {
			return Result{}, &RemoteStoreError{Op: "update", Err: err}
		}
		return Result{Record: m.Record}, nil

	case domain.ActionDelete:
		id, err := t.identifier(m.Record)
		if err != nil {
			return Result{}, err
		}
		if err := t.client.Delete(ctx, t.table, t.idField, id); err != nil {
			return Result{}, &RemoteStoreError{Op: "delete", Err: err}
		}
		return Result{Record: m.Record}, nil

	default:
		return Result{}, fmt.Errorf("unknown action: %s", m.Action)
	}
}

func (t *Table) Close() error { return t.client.Close() }

// identifier returns the record's id as a driver argument. Integral numbers
// are passed as int64 so integer key columns match.
func (t *Table) identifier(rec domain.Record) (any, error) {
	v, ok := rec.Get(t.idField)
	if !ok || v.String() == "" {
		return nil, &RemoteStoreError{Op: "address", Err: fmt.Errorf("record has no %s", t.idField)}
	}
	if v.IsNumber() && v.Number == math.Trunc(v.Number) {
		return int64(v.Number), nil
	}
	return v.Interface(), nil
}
