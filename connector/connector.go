package connector

import (
	"context"

	"github.com/Konsultn-Engineering/tagsql/database"
	"github.com/Konsultn-Engineering/tagsql/dialect"
)

// Connection is an open, verified pool to one database.
type Connection interface {
	Database() database.Database
	Dialect() dialect.Dialect
	Health(ctx context.Context) error
	Stats() database.Stats
	Close() error
}

// Connector opens connections for one provider and config.
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
}

// connection pairs a database adapter with the dialect it speaks.
type connection struct {
	db      database.Database
	dialect dialect.Dialect
}

func (c *connection) Database() database.Database {
	return c.db
}

func (c *connection) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *connection) Health(ctx context.Context) error {
	return c.db.Ping(ctx)
}

func (c *connection) Stats() database.Stats {
	return c.db.Stats()
}

func (c *connection) Close() error {
	return c.db.Close()
}
