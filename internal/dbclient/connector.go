package dbclient

import (
	"context"
	"errors"
	"fmt"

	"datadesk/internal/domain"
)

// ErrRowNotFound is returned when an update or delete matched nothing.
var ErrRowNotFound = errors.New("row not found")

// Connector adapts one database engine to the table-store primitives the
// managed-table backend uses.
type Connector interface {
	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Select returns every row of table, ordered by orderBy when it is set.
	Select(ctx context.Context, table, orderBy string) ([]domain.Record, error)

	// Insert adds rec and returns the stored row, including a generated idField.
	Insert(ctx context.Context, table, idField string, rec domain.Record) (domain.Record, error)

	// Update sets changes on the row whose idField equals id.
	Update(ctx context.Context, table, idField string, id any, changes domain.Record) error

	// Delete removes the row whose idField equals id.
	Delete(ctx context.Context, table, idField string, id any) error

	// Close closes the connection.
	Close() error
}

// NewConnector creates a Connector for the given table settings.
// The password must be provided separately (from SecretStore).
func NewConnector(cfg domain.TableSettings, password string) (Connector, error) {
	switch cfg.Driver {
	case domain.DatabaseDriverSQLite, "":
		return newSQLConnector(dialectSQLite, sqliteDSN(cfg))
	case domain.DatabaseDriverMySQL:
		return newSQLConnector(dialectMySQL, mysqlDSN(cfg, password))
	case domain.DatabaseDriverPostgres:
		return newSQLConnector(dialectPostgres, postgresDSN(cfg, password))
	case domain.DatabaseDriverMongoDB:
		return newMongoConnector(cfg, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
