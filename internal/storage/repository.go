// Package storage keeps expenses in a SQL database. SQLite (modernc, no
// cgo) and PostgreSQL (lib/pq) share one schema and one query set.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

type Option func(*Repository)

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, opts ...Option) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	r, err := open(DialectSQLite, dbPath, opts)
	if err != nil {
		return nil, err
	}
	// modernc serializes writers per file; one connection avoids SQLITE_BUSY.
	r.db.SetMaxOpenConns(1)
	return r, nil
}

// NewPostgresRepository connects to url and migrates the schema.
func NewPostgresRepository(url string, opts ...Option) (*Repository, error) {
	return open(DialectPostgres, url, opts)
}

func open(dialect Dialect, dsn string, opts []Option) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &Repository{
		db:      db,
		dialect: dialect,
		now:     core.Now,
		newID:   core.NewID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default().With(applog.FieldComponent, applog.ComponentStorage, applog.FieldBackend, string(dialect))
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (core.Expense, error) {
	var (
		e                 core.Expense
		amount, createdAt string
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &e.Category, &createdAt); err != nil {
		return core.Expense{}, err
	}
	// Unparseable stored amounts count as zero, like the JSON document.
	if d, err := decimal.NewFromString(amount); err == nil {
		e.Amount = core.Amount{Decimal: d}
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		e.Date = t
	} else if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		e.Date = t.UTC()
	}
	return e, nil
}

const selectColumns = `SELECT id, description, amount, category, created_at FROM expenses`

// LoadAll implements ports.ExpenseReader.
func (r *Repository) LoadAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, &core.PersistenceError{Op: applog.OpList, Err: err}
	}
	defer rows.Close()

	items := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, &core.PersistenceError{Op: applog.OpList, Err: err}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: applog.OpList, Err: err}
	}
	return items, nil
}

// Add implements ports.ExpenseWriter.
func (r *Repository) Add(ctx context.Context, d core.Draft) (core.Expense, error) {
	id, err := r.uniqueID(ctx)
	if err != nil {
		return core.Expense{}, &core.PersistenceError{Op: applog.OpCreate, Err: err}
	}
	e, err := core.NewExpense(id, d, r.now())
	if err != nil {
		return core.Expense{}, err
	}

	_, err = r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO expenses (id, description, amount, category, created_at) VALUES (?, ?, ?, ?, ?)`),
		e.ID, e.Description, e.Amount.String(), e.Category, e.Date.UTC().Format(timeLayout))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert expense", "error", err, applog.FieldOperation, applog.OpCreate)
		return core.Expense{}, &core.PersistenceError{Op: applog.OpCreate, Err: err}
	}

	r.logger.InfoContext(ctx, "Expense saved",
		applog.FieldExpenseID, e.ID,
		applog.FieldAmount, e.Amount.String(),
		applog.FieldCategory, e.Category)
	return e, nil
}

func (r *Repository) uniqueID(ctx context.Context) (string, error) {
	for {
		id := r.newID()
		var one int
		err := r.db.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM expenses WHERE id = ?`), id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Update implements ports.ExpenseWriter.
func (r *Repository) Update(ctx context.Context, id string, p core.Patch) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, &core.PersistenceError{Op: applog.OpUpdate, Err: err}
	}
	defer tx.Rollback()

	current, err := scanExpense(tx.QueryRowContext(ctx, r.rebind(selectColumns+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, &core.PersistenceError{Op: applog.OpUpdate, Err: err}
	}

	updated, err := current.Apply(p)
	if err != nil {
		return core.Expense{}, err
	}

	_, err = tx.ExecContext(ctx,
		r.rebind(`UPDATE expenses SET description = ?, amount = ?, category = ? WHERE id = ?`),
		updated.Description, updated.Amount.String(), updated.Category, id)
	if err != nil {
		return core.Expense{}, &core.PersistenceError{Op: applog.OpUpdate, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, &core.PersistenceError{Op: applog.OpUpdate, Err: err}
	}
	return updated, nil
}

// Remove implements ports.ExpenseWriter.
func (r *Repository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return &core.PersistenceError{Op: applog.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: applog.OpDelete, Err: err}
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Summarize implements ports.SummaryReader. Totals are computed in Go so
// that decimal amounts never pass through floating point.
func (r *Repository) Summarize(ctx context.Context) (core.Summary, error) {
	items, err := r.LoadAll(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(items), nil
}
