package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"datadesk/internal/domain"
)

// dialect captures the differences between the SQL engines.
type dialect struct {
	driverName string
	quote      byte
	dollarArgs bool // $1, $2 instead of ?
	returning  bool // INSERT ... RETURNING *
}

var (
	dialectSQLite   = dialect{driverName: "sqlite", quote: '"', returning: true}
	dialectMySQL    = dialect{driverName: "mysql", quote: '`'}
	dialectPostgres = dialect{driverName: "postgres", quote: '"', dollarArgs: true, returning: true}
)

// ident quotes a table or column name.
func (d dialect) ident(name string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// arg returns the placeholder for the n-th (1-based) argument.
func (d dialect) arg(n int) string {
	if d.dollarArgs {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	dialect dialect
	db      *sql.DB
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(d dialect, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driverName, err)
	}
	// Sensible pool settings for a desktop app
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if d.driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	return &sqlConnector{dialect: d, db: db}, nil
}

func (c *sqlConnector) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) Select(ctx context.Context, table, orderBy string) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := "SELECT * FROM " + c.dialect.ident(table)
	if orderBy != "" {
		query += " ORDER BY " + c.dialect.ident(orderBy)
	}
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (c *sqlConnector) Insert(ctx context.Context, table, idField string, rec domain.Record) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cols := make([]string, 0, rec.Len())
	marks := make([]string, 0, rec.Len())
	args := make([]any, 0, rec.Len())
	for i, f := range rec.Fields() {
		cols = append(cols, c.dialect.ident(f.Name))
		marks = append(marks, c.dialect.arg(i+1))
		args = append(args, f.Value.Interface())
	}

	var query string
	switch {
	case len(cols) > 0:
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			c.dialect.ident(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	case c.dialect.driverName == "mysql":
		query = fmt.Sprintf("INSERT INTO %s () VALUES ()", c.dialect.ident(table))
	default:
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", c.dialect.ident(table))
	}

	if c.dialect.returning {
		rows, err := c.db.QueryContext(ctx, query+" RETURNING *", args...)
		if err != nil {
			return domain.Record{}, fmt.Errorf("insert: %w", err)
		}
		defer rows.Close()
		records, err := scanRecords(rows)
		if err != nil {
			return domain.Record{}, err
		}
		if len(records) == 0 {
			return rec, nil
		}
		return records[0], nil
	}

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Record{}, fmt.Errorf("insert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil || id == 0 || idField == "" {
		return rec, nil
	}
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", c.dialect.ident(table), c.dialect.ident(idField), c.dialect.arg(1)), id)
	if err != nil {
		return rec, nil
	}
	defer rows.Close()
	records, err := scanRecords(rows)
	if err != nil || len(records) == 0 {
		return rec, nil
	}
	return records[0], nil
}

func (c *sqlConnector) Update(ctx context.Context, table, idField string, id any, changes domain.Record) error {
	if changes.Len() == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	setClauses := make([]string, 0, changes.Len())
	args := make([]any, 0, changes.Len()+1)
	for i, f := range changes.Fields() {
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", c.dialect.ident(f.Name), c.dialect.arg(i+1)))
		args = append(args, f.Value.Interface())
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		c.dialect.ident(table), strings.Join(setClauses, ", "), c.dialect.ident(idField), c.dialect.arg(len(args)))

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return checkAffected(result, id)
}

func (c *sqlConnector) Delete(ctx context.Context, table, idField string, id any) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		c.dialect.ident(table), c.dialect.ident(idField), c.dialect.arg(1))
	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return checkAffected(result, id)
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}

func checkAffected(result sql.Result, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%w: %v", ErrRowNotFound, id)
	}
	return nil
}

// scanRecords reads all rows into records, keeping column order.
func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	types, _ := rows.ColumnTypes()

	records := []domain.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		fields := make([]domain.Field, len(cols))
		for j, col := range cols {
			var ct *sql.ColumnType
			if j < len(types) {
				ct = types[j]
			}
			fields[j] = domain.Field{Name: col, Value: formatValue(values[j], ct)}
		}
		records = append(records, domain.NewRecord(fields...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return records, nil
}

// formatValue converts a database value to a record Value. Numeric columns
// returned as text (MySQL's text protocol) are parsed back into numbers.
func formatValue(v any, ct *sql.ColumnType) domain.Value {
	b, ok := v.([]byte)
	if !ok {
		return domain.ValueOf(v)
	}
	if ct != nil && isNumericType(ct.DatabaseTypeName()) {
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return domain.Number(f)
		}
	}
	return domain.Text(string(b))
}

func isNumericType(name string) bool {
	switch strings.ToUpper(name) {
	case "INT", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "INTEGER",
		"UNSIGNED INT", "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED BIGINT",
		"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL",
		"INT2", "INT4", "INT8", "FLOAT4", "FLOAT8":
		return true
	}
	return false
}
