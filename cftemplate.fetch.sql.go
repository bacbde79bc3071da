package cftemplate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SQLConfig configures a SQL-backed fetcher.
type SQLConfig struct {
	// ConnectionString is the driver-specific DSN.
	ConnectionString string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime.
	// Default: 5 minutes
	ConnMaxLifetime time.Duration

	// TablePrefix is prepended to every table name.
	// Default: "cftemplate_"
	TablePrefix string

	// AutoMigrate creates the schema on open.
	AutoMigrate bool

	// QueryTimeout bounds each query.
	// Default: 30 seconds
	QueryTimeout time.Duration

	// Logger receives migration and query logs.
	Logger *zap.Logger
}

// DefaultSQLConfig returns a configuration with sensible defaults
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		MaxOpenConns:    SQLDefaultMaxOpenConns,
		MaxIdleConns:    SQLDefaultMaxIdleConns,
		ConnMaxLifetime: SQLDefaultConnMaxLifetime,
		TablePrefix:     SQLDefaultTablePrefix,
		QueryTimeout:    SQLDefaultQueryTimeout,
	}
}

func (c *SQLConfig) applyDefaults() {
	d := DefaultSQLConfig()
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = d.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if c.TablePrefix == "" {
		c.TablePrefix = d.TablePrefix
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// sqlDialect captures the differences between the supported databases
type sqlDialect struct {
	driverName  string
	placeholder func(n int) string
}

var (
	postgresDialect = sqlDialect{
		driverName:  "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	sqliteDialect = sqlDialect{
		driverName:  "sqlite",
		placeholder: func(int) string { return "?" },
	}
)

// SQLFetcher serves forms and publications from a relational database.
// The schema has two tables, <prefix>forms and <prefix>publications.
type SQLFetcher struct {
	db      *sql.DB
	dialect sqlDialect
	config  SQLConfig
	mu      sync.RWMutex
	closed  bool
}

type sqlMigration struct {
	Version     int
	Description string
	Statements  []string
}

func openSQLFetcher(dialect sqlDialect, config SQLConfig) (*SQLFetcher, error) {
	if config.ConnectionString == "" {
		return nil, NewConnectionError(dialect.driverName, errors.New(ErrMsgEmptyConnString))
	}
	config.applyDefaults()

	db, err := sql.Open(dialect.driverName, config.ConnectionString)
	if err != nil {
		return nil, NewConnectionError(dialect.driverName, err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, NewConnectionError(dialect.driverName, err)
	}

	fetcher := &SQLFetcher{db: db, dialect: dialect, config: config}
	config.Logger.Debug(LogMsgFetcherOpened, zap.String(LogFieldDriver, dialect.driverName))

	if config.AutoMigrate {
		if err := fetcher.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return fetcher, nil
}

func (s *SQLFetcher) formsTable() string {
	return s.config.TablePrefix + "forms"
}

func (s *SQLFetcher) publicationsTable() string {
	return s.config.TablePrefix + "publications"
}

func (s *SQLFetcher) migrationsTable() string {
	return s.config.TablePrefix + "schema_migrations"
}

func (s *SQLFetcher) ph(n int) string {
	return s.dialect.placeholder(n)
}

func (s *SQLFetcher) migrations() []sqlMigration {
	return []sqlMigration{
		{
			Version:     1,
			Description: "forms and publications",
			Statements: []string{
				fmt.Sprintf(`
					CREATE TABLE IF NOT EXISTS %s (
						digest     VARCHAR(64) PRIMARY KEY,
						form       TEXT NOT NULL
					)`, s.formsTable()),
				fmt.Sprintf(`
					CREATE TABLE IF NOT EXISTS %s (
						publisher  VARCHAR(255) NOT NULL,
						project    VARCHAR(255) NOT NULL,
						edition    VARCHAR(64) NOT NULL,
						digest     VARCHAR(64) NOT NULL,
						PRIMARY KEY (publisher, project, edition)
					)`, s.publicationsTable()),
			},
		},
	}
}

// RunMigrations applies pending schema migrations
func (s *SQLFetcher) RunMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version     INTEGER PRIMARY KEY,
			description VARCHAR(255)
		)`, s.migrationsTable()))
	if err != nil {
		return NewMigrationError(0, err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT version FROM %s", s.migrationsTable()))
	if err != nil {
		return NewMigrationError(0, err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return NewMigrationError(0, err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range s.migrations() {
		if applied[m.Version] {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return NewMigrationError(m.Version, err)
		}
		for _, stmt := range m.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return NewMigrationError(m.Version, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (version, description) VALUES (%s, %s)",
				s.migrationsTable(), s.ph(1), s.ph(2)),
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return NewMigrationError(m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return NewMigrationError(m.Version, err)
		}

		s.config.Logger.Debug(LogMsgMigrationApplied,
			zap.String(LogFieldDriver, s.dialect.driverName),
			zap.Int(LogFieldVersion, m.Version))
	}
	return nil
}

// FetchForm selects the form stored under digest
func (s *SQLFetcher) FetchForm(ctx context.Context, digest string) (*Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDigest(digest); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewFetcherClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT form FROM %s WHERE digest = %s", s.formsTable(), s.ph(1))
	var data string
	if err := s.db.QueryRowContext(ctx, query, digest).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewFormNotFoundError(digest)
		}
		return nil, NewFetchError(s.dialect.driverName, err)
	}
	return ParseFormJSON([]byte(data))
}

// FetchPublication selects the digest published as publisher/project@edition
func (s *SQLFetcher) FetchPublication(ctx context.Context, publisher, project, edition string) (*Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPublication(publisher, project, edition); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewFetcherClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(
		"SELECT digest FROM %s WHERE publisher = %s AND project = %s AND edition = %s",
		s.publicationsTable(), s.ph(1), s.ph(2), s.ph(3))
	pub := &Publication{Publisher: publisher, Project: project, Edition: edition}
	if err := s.db.QueryRowContext(ctx, query, publisher, project, edition).Scan(&pub.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewPublicationNotFoundError(pub.Ref())
		}
		return nil, NewFetchError(s.dialect.driverName, err)
	}
	return pub, nil
}

// PutForm stores form under its digest. Storing the same form twice is a no-op.
func (s *SQLFetcher) PutForm(ctx context.Context, form *Form) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	digest, err := form.Digest()
	if err != nil {
		return "", NewStoreError(ErrMsgStoreFailed, err)
	}
	data, err := form.CanonicalJSON()
	if err != nil {
		return "", NewStoreError(ErrMsgStoreFailed, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", NewFetcherClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(
		"INSERT INTO %s (digest, form) VALUES (%s, %s) ON CONFLICT (digest) DO NOTHING",
		s.formsTable(), s.ph(1), s.ph(2))
	if _, err := s.db.ExecContext(ctx, query, digest, string(data)); err != nil {
		return "", NewStoreError(ErrMsgStoreFailed, err)
	}
	return digest, nil
}

// PutPublication stores or replaces a publication record
func (s *SQLFetcher) PutPublication(ctx context.Context, pub Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPublication(pub.Publisher, pub.Project, pub.Edition); err != nil {
		return err
	}
	if err := checkDigest(pub.Digest); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return NewFetcherClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (publisher, project, edition, digest)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (publisher, project, edition) DO UPDATE SET digest = excluded.digest`,
		s.publicationsTable(), s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	if _, err := s.db.ExecContext(ctx, query, pub.Publisher, pub.Project, pub.Edition, pub.Digest); err != nil {
		return NewStoreError(ErrMsgStoreFailed, err)
	}
	return nil
}

// Close closes the database pool. Closing twice returns an error.
func (s *SQLFetcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewFetcherClosedError()
	}
	s.closed = true
	return s.db.Close()
}
