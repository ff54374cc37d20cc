package postgres

import (
	"context"

	"covidsql/internal/errors"
	"covidsql/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ProbeImpl implements DatabaseProbe for PostgreSQL
type ProbeImpl struct {
	db *sqlx.DB
}

// NewProbe wraps an open connection pool
func NewProbe(db *sqlx.DB) ports.DatabaseProbe {
	return &ProbeImpl{db: db}
}

// Connect opens and pings a PostgreSQL database
func Connect(ctx context.Context, url string) (ports.DatabaseProbe, error) {
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(1)

	return NewProbe(db), nil
}

// ServerVersion returns the server_version setting
func (p *ProbeImpl) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := p.db.GetContext(ctx, &version, `SHOW server_version`); err != nil {
		return "", errors.DatabaseError("failed to read server version", err)
	}
	return version, nil
}

// ListTables returns base tables and views of the current schema
func (p *ProbeImpl) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := p.db.SelectContext(ctx, &tables, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name
	`)
	if err != nil {
		return nil, errors.DatabaseError("failed to list tables", err)
	}
	return tables, nil
}

// Close releases the connection pool
func (p *ProbeImpl) Close() error {
	return p.db.Close()
}
