package cftemplate

import (
	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteConnMaxLifetime disables connection recycling
const sqliteConnMaxLifetime = -1

// SQLiteFetcherDriver is the driver for SQLite-backed fetchers.
type SQLiteFetcherDriver struct{}

func init() {
	RegisterFetcherDriver(FetcherDriverSQLite, &SQLiteFetcherDriver{})
}

// Open creates a SQLite fetcher. The source is a database file path or
// ":memory:". The schema is migrated automatically when opened through the
// registry.
func (d *SQLiteFetcherDriver) Open(source string) (FetcherCloser, error) {
	config := DefaultSQLConfig()
	config.ConnectionString = source
	config.AutoMigrate = true
	return NewSQLiteFetcher(config)
}

// NewSQLiteFetcher opens a fetcher over SQLite. The pool holds a single
// connection that is never recycled, so ":memory:" databases live as long
// as the fetcher.
func NewSQLiteFetcher(config SQLConfig) (*SQLFetcher, error) {
	config.MaxOpenConns = 1
	config.MaxIdleConns = 1
	config.ConnMaxLifetime = sqliteConnMaxLifetime
	return openSQLFetcher(sqliteDialect, config)
}
