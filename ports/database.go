package ports

import (
	"context"
)

// DatabaseProbe is the read-only view of the covid-sql database the smoke
// test needs
type DatabaseProbe interface {
	// ServerVersion returns the server's version string
	ServerVersion(ctx context.Context) (string, error)
	// ListTables returns table names visible in the current schema
	ListTables(ctx context.Context) ([]string, error)
	Close() error
}

// DatabaseOpener connects a DatabaseProbe to the given URL
type DatabaseOpener func(ctx context.Context, url string) (DatabaseProbe, error)
