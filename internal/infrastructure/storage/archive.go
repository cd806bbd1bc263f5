package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
	"DogDigest/internal/ports"
)

// Supported archive drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const snapshotsTable = "listing_snapshots"

// ArchiveRepository keeps one row per listing ever seen, updated on every run.
type ArchiveRepository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ListingArchive = (*ArchiveRepository)(nil)

// Open connects to the configured database and creates the snapshot table.
func Open(ctx context.Context, cfg config.ArchiveConfig) (*ArchiveRepository, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	repo, err := NewArchiveRepository(db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewArchiveRepository wires a sql.DB implementation.
func NewArchiveRepository(db *sql.DB, driver string) (*ArchiveRepository, error) {
	builder := sq.StatementBuilder
	switch driver {
	case DriverPostgres:
		builder = builder.PlaceholderFormat(sq.Dollar)
	case DriverSQLite:
		builder = builder.PlaceholderFormat(sq.Question)
	default:
		return nil, fmt.Errorf("unsupported archive driver %q", driver)
	}
	return &ArchiveRepository{db: db, driver: driver, builder: builder, now: time.Now}, nil
}

// Migrate creates the snapshot table if needed.
func (r *ArchiveRepository) Migrate(ctx context.Context) error {
	timestamp := "TIMESTAMP"
	if r.driver == DriverPostgres {
		timestamp = "TIMESTAMPTZ"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		listing_id    TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		breeds        TEXT NOT NULL,
		zip           TEXT NOT NULL,
		url           TEXT NOT NULL,
		published_at  %[2]s NULL,
		first_seen_at %[2]s NOT NULL,
		last_seen_at  %[2]s NOT NULL,
		last_run_id   TEXT NOT NULL,
		payload       TEXT NOT NULL
	)`, snapshotsTable, timestamp)

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate archive: %w", err)
	}
	return nil
}

// Record upserts every listing of the run in one transaction.
// first_seen_at survives later runs; the remaining columns follow the newest copy.
func (r *ArchiveRepository) Record(ctx context.Context, runID string, listings []domain.Listing) error {
	if r.db == nil || len(listings) == 0 {
		return nil
	}
	seenAt := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, l := range listings {
		query, args, err := r.upsert(runID, seenAt, l).ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert snapshot %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) upsert(runID string, seenAt time.Time, l domain.Listing) sq.InsertBuilder {
	var published any
	if !l.PublishedAt.IsZero() {
		published = l.PublishedAt.UTC()
	}
	return r.builder.
		Insert(snapshotsTable).
		Columns("listing_id", "name", "breeds", "zip", "url", "published_at",
			"first_seen_at", "last_seen_at", "last_run_id", "payload").
		Values(l.ID, l.Name, strings.Join(l.Breeds, ", "), l.Zip, l.URL, published,
			seenAt, seenAt, runID, string(l.Raw)).
		Suffix(`ON CONFLICT (listing_id) DO UPDATE
			SET name = excluded.name,
			    breeds = excluded.breeds,
			    zip = excluded.zip,
			    url = excluded.url,
			    published_at = excluded.published_at,
			    last_seen_at = excluded.last_seen_at,
			    last_run_id = excluded.last_run_id,
			    payload = excluded.payload`)
}

// Close releases the database handle.
func (r *ArchiveRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
