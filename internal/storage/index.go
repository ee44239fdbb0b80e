package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	sqlregexp "github.com/ncruces/go-sqlite3/ext/regexp"

	"github.com/bull/logsearch/internal/schema"
)

// Options tunes a writable index.
type Options struct {
	// MemoryBudgetMB caps the writer's page cache. Zero means 500.
	MemoryBudgetMB int
	// BusyTimeout is how long SQLite waits on a lock before retrying.
	BusyTimeout time.Duration
	// MaxLockWait bounds the backoff retries when another writer holds the lock.
	MaxLockWait time.Duration
	Logger      *slog.Logger
}

// Index is a handle on one index directory. Handles opened with Open may
// write; handles opened with OpenReader reject writes at the SQL level.
type Index struct {
	db       *sql.DB
	dir      string
	schema   *schema.Schema
	stmts    statements
	readOnly bool
	opts     Options
	logger   *slog.Logger
}

// Open opens or creates the index in dir for writing. A database written
// under another schema version is dropped and recreated with a new index id.
func Open(ctx context.Context, dir string, sch *schema.Schema, opts Options) (*Index, error) {
	if opts.MemoryBudgetMB <= 0 {
		opts.MemoryBudgetMB = 500
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.MaxLockWait <= 0 {
		opts.MaxLockWait = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %w", ErrIndexOpen, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=cache_size(-%d)&_txlock=immediate",
		filepath.Join(dir, DBFileName), opts.BusyTimeout.Milliseconds(), opts.MemoryBudgetMB*1024,
	)
	db, err := driver.Open(dsn, sqlregexp.Register)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}
	// One connection: the writer's transaction owns it for the whole build.
	db.SetMaxOpenConns(1)

	ix := &Index{
		db:     db,
		dir:    dir,
		schema: sch,
		stmts:  buildStatements(sch),
		opts:   opts,
		logger: logger,
	}
	if err := ix.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}
	return ix, nil
}

// OpenReader opens an existing index for queries only.
func OpenReader(ctx context.Context, dir string, sch *schema.Schema) (*Index, error) {
	path := filepath.Join(dir, DBFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
		}
		return nil, fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=query_only(1)", path)
	db, err := driver.Open(dsn, sqlregexp.Register)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}

	ix := &Index{
		db:       db,
		dir:      dir,
		schema:   sch,
		stmts:    buildStatements(sch),
		readOnly: true,
		logger:   slog.Default(),
	}
	if err := ix.Health(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Dir returns the index directory.
func (ix *Index) Dir() string { return ix.dir }

// Schema returns the schema the index was opened with.
func (ix *Index) Schema() *schema.Schema { return ix.schema }

// Health verifies the database answers queries and has the expected layout.
func (ix *Index) Health(ctx context.Context) error {
	var n int
	err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN (?, ?, 'index_info')`,
		ix.schema.Table(), ix.schema.FTSTable(),
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexOpen, err)
	}
	if n != 3 {
		return fmt.Errorf("%w: %s has no document tables", ErrIndexNotFound, ix.dir)
	}
	return nil
}

func (ix *Index) ensureSchema(ctx context.Context) error {
	tx, err := ix.beginWithRetry(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// On a fresh database index_info does not exist and the lookup fails.
	var stored string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM index_info WHERE key = ?`, infoSchemaVersion,
	).Scan(&stored)
	if err == nil && stored != ix.schema.Version() {
		ix.logger.Warn("Schema version changed, recreating index",
			"dir", ix.dir, "stored", stored, "current", ix.schema.Version())
		for _, stmt := range ix.stmts.drop {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("drop old schema: %w", err)
			}
		}
	}

	for _, stmt := range ix.stmts.create {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	seed := map[string]string{
		infoIndexID:       uuid.NewString(),
		infoSchemaVersion: ix.schema.Version(),
		infoNextDocID:     "0",
		infoCreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range seed {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO index_info (key, value) VALUES (?, ?)`, key, value,
		); err != nil {
			return fmt.Errorf("seed index info: %w", err)
		}
	}

	return tx.Commit()
}

// beginWithRetry starts an immediate transaction, backing off while another
// writer holds the database lock.
func (ix *Index) beginWithRetry(ctx context.Context) (*sql.Tx, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = ix.opts.MaxLockWait

	var tx *sql.Tx
	operation := func() error {
		var err error
		tx, err = ix.db.BeginTx(ctx, nil)
		if err == nil {
			return nil
		}
		if errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED) {
			ix.logger.Debug("Index locked, retrying", "dir", ix.dir, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

func (ix *Index) info(ctx context.Context, key string) (string, error) {
	var value string
	err := ix.db.QueryRowContext(ctx, `SELECT value FROM index_info WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

// IndexID returns the random id assigned when the index was created.
func (ix *Index) IndexID(ctx context.Context) (string, error) {
	return ix.info(ctx, infoIndexID)
}

// DocCount returns the number of committed documents.
func (ix *Index) DocCount(ctx context.Context) (uint64, error) {
	var n int64
	err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ix.schema.Table()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return uint64(n), nil
}

// Stats reports identity, size and document count. It must not be called
// while a Writer from the same handle is open.
func (ix *Index) Stats(ctx context.Context) (*Stats, error) {
	id, err := ix.IndexID(ctx)
	if err != nil {
		return nil, err
	}
	version, err := ix.info(ctx, infoSchemaVersion)
	if err != nil {
		return nil, err
	}
	count, err := ix.DocCount(ctx)
	if err != nil {
		return nil, err
	}
	size, err := DirSize(ix.dir)
	if err != nil {
		return nil, err
	}
	return &Stats{
		IndexID:       id,
		SchemaVersion: version,
		DocCount:      count,
		SizeBytes:     size,
	}, nil
}

// DirSize sums the sizes of regular files under dir.
func DirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure index dir: %w", err)
	}
	return total, nil
}
