// Package store keeps bib summaries in a SQL catalog. SQLite (modernc) and
// PostgreSQL (pgx) are supported; queries are built with goqu and run with
// sqlx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/bookops/sierramarc/internal/config"
	"github.com/bookops/sierramarc/internal/export"
)

const (
	tableBibs   = "bibs"
	tableOrders = "orders"
	tableOclc   = "oclc_numbers"

	colLibrary       = "library"
	colBibID         = "bib_id"
	colControlNumber = "control_number"
	colRecordType    = "record_type"
	colBranchCallNo  = "branch_call_no"
	colDewey         = "dewey"
	colSuppressed    = "suppressed"
	colSummary       = "summary"
	colLoadID        = "load_id"
	colLoadedAt      = "loaded_at"
	colOID           = "oid"
	colVendor        = "vendor"
	colCopies        = "copies"
	colPrice         = "price"
	colCreated       = "created"
	colTag           = "tag"
	colNumber        = "number"

	// MetricSaveDuration is recorded for every saved summary, labelled with
	// the driver.
	MetricSaveDuration = "store_save_seconds"
	labelDriver        = "driver"
)

var (
	ErrNotFound      = errors.New("bib not found")
	ErrMissingBibID  = errors.New("summary has no Sierra bib id")
	ErrUnknownDriver = errors.New("unknown store driver")
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bibs (
		library TEXT NOT NULL,
		bib_id TEXT NOT NULL,
		control_number TEXT NOT NULL,
		record_type TEXT NOT NULL,
		branch_call_no TEXT NOT NULL,
		dewey TEXT NOT NULL,
		suppressed INTEGER NOT NULL,
		summary TEXT NOT NULL,
		load_id TEXT NOT NULL,
		loaded_at TEXT NOT NULL,
		PRIMARY KEY (library, bib_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		library TEXT NOT NULL,
		bib_id TEXT NOT NULL,
		oid INTEGER NOT NULL,
		vendor TEXT NOT NULL,
		copies INTEGER NOT NULL,
		price REAL NOT NULL,
		created TEXT NOT NULL,
		PRIMARY KEY (library, bib_id, oid)
	)`,
	`CREATE TABLE IF NOT EXISTS oclc_numbers (
		library TEXT NOT NULL,
		bib_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		number TEXT NOT NULL,
		PRIMARY KEY (library, bib_id, tag)
	)`,
	`CREATE INDEX IF NOT EXISTS oclc_numbers_number ON oclc_numbers (number)`,
}

// MetricsCollector receives the duration of store operations.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
}

type Option func(*Store)

func WithMetrics(metrics MetricsCollector) Option {
	return func(s *Store) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithClock sets the clock used for load timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	db      *sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
	metrics MetricsCollector
	now     func() time.Time
}

// Record is a stored summary with its load metadata.
type Record struct {
	Summary  export.Summary
	LoadID   uuid.UUID
	LoadedAt time.Time
}

// Ref identifies a stored bib.
type Ref struct {
	Library string `db:"library"`
	BibID   string `db:"bib_id"`
}

// Open connects to the catalog database of cfg.
func Open(cfg config.Store, opts ...Option) (*Store, error) {
	var sqlDriver string
	switch cfg.Driver {
	case config.DriverSQLite:
		sqlDriver = "sqlite"
	case config.DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	db, err := sqlx.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return New(db, cfg.Driver, opts...)
}

// New wraps an open database. driver selects the SQL dialect.
func New(db *sqlx.DB, driver string, opts ...Option) (*Store, error) {
	var dialect string
	switch driver {
	case config.DriverSQLite:
		dialect = "sqlite3"
	case config.DriverPostgres:
		dialect = "postgres"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	s := &Store{
		db:      db,
		driver:  driver,
		dialect: goqu.Dialect(dialect),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Save replaces the stored summary of a bib, its orders and its OCLC
// numbers in a single transaction.
func (s *Store) Save(ctx context.Context, sum export.Summary, loadID uuid.UUID) (err error) {
	if sum.BibID == "" {
		return ErrMissingBibID
	}
	start := time.Now()
	defer func() {
		if err == nil {
			s.metrics.RecordDuration(MetricSaveDuration, time.Since(start), map[string]string{labelDriver: s.driver})
		}
	}()

	payload, err := jsoniter.ConfigFastest.MarshalToString(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	key := goqu.Ex{colLibrary: sum.Library, colBibID: sum.BibID}
	for _, table := range []string{tableOclc, tableOrders, tableBibs} {
		if err = s.exec(ctx, tx, s.dialect.Delete(table).Where(key).Prepared(true)); err != nil {
			return err
		}
	}

	suppressed := 0
	if sum.Suppressed {
		suppressed = 1
	}
	err = s.exec(ctx, tx, s.dialect.Insert(tableBibs).Rows(goqu.Record{
		colLibrary:       sum.Library,
		colBibID:         sum.BibID,
		colControlNumber: sum.ControlNumber,
		colRecordType:    sum.RecordType,
		colBranchCallNo:  sum.BranchCallNo,
		colDewey:         sum.Dewey,
		colSuppressed:    suppressed,
		colSummary:       payload,
		colLoadID:        loadID.String(),
		colLoadedAt:      s.now().UTC().Format(time.RFC3339Nano),
	}).Prepared(true))
	if err != nil {
		return err
	}

	if len(sum.Orders) > 0 {
		rows := make([]any, 0, len(sum.Orders))
		for _, o := range sum.Orders {
			created := ""
			if o.Created != nil {
				created = o.Created.Format(time.DateOnly)
			}
			rows = append(rows, goqu.Record{
				colLibrary: sum.Library,
				colBibID:   sum.BibID,
				colOID:     o.OID,
				colVendor:  o.Vendor,
				colCopies:  o.Copies,
				colPrice:   o.Price,
				colCreated: created,
			})
		}
		if err = s.exec(ctx, tx, s.dialect.Insert(tableOrders).Rows(rows...).Prepared(true)); err != nil {
			return err
		}
	}

	if len(sum.OclcNumbers) > 0 {
		rows := make([]any, 0, len(sum.OclcNumbers))
		for tag, number := range sum.OclcNumbers {
			rows = append(rows, goqu.Record{
				colLibrary: sum.Library,
				colBibID:   sum.BibID,
				colTag:     tag,
				colNumber:  number,
			})
		}
		if err = s.exec(ctx, tx, s.dialect.Insert(tableOclc).Rows(rows...).Prepared(true)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (s *Store) exec(ctx context.Context, tx *sqlx.Tx, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec %q: %w", query, err)
	}
	return nil
}

type bibRow struct {
	Summary  string `db:"summary"`
	LoadID   string `db:"load_id"`
	LoadedAt string `db:"loaded_at"`
}

// Get returns the stored summary of a bib.
func (s *Store) Get(ctx context.Context, library, bibID string) (Record, error) {
	query, args, err := s.dialect.From(tableBibs).
		Select(colSummary, colLoadID, colLoadedAt).
		Where(goqu.Ex{colLibrary: library, colBibID: bibID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Record{}, fmt.Errorf("build statement: %w", err)
	}
	var row bibRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s %s", ErrNotFound, library, bibID)
		}
		return Record{}, err
	}

	var rec Record
	if err := jsoniter.ConfigFastest.UnmarshalFromString(row.Summary, &rec.Summary); err != nil {
		return Record{}, fmt.Errorf("decode summary: %w", err)
	}
	if rec.LoadID, err = uuid.Parse(row.LoadID); err != nil {
		return Record{}, fmt.Errorf("decode load id: %w", err)
	}
	if rec.LoadedAt, err = time.Parse(time.RFC3339Nano, row.LoadedAt); err != nil {
		return Record{}, fmt.Errorf("decode load time: %w", err)
	}
	return rec, nil
}

// FindByOclc returns the bibs carrying an OCLC number, in any tag.
func (s *Store) FindByOclc(ctx context.Context, number string) ([]Ref, error) {
	query, args, err := s.dialect.From(tableOclc).
		SelectDistinct(colLibrary, colBibID).
		Where(goqu.Ex{colNumber: number}).
		Order(goqu.I(colLibrary).Asc(), goqu.I(colBibID).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	var refs []Ref
	if err := s.db.SelectContext(ctx, &refs, query, args...); err != nil {
		return nil, err
	}
	return refs, nil
}

// Count returns the number of stored bibs of a library.
func (s *Store) Count(ctx context.Context, library string) (int, error) {
	query, args, err := s.dialect.From(tableBibs).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{colLibrary: library}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordDuration(string, time.Duration, map[string]string) {}
