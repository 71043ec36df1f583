// Package jsonfile persists expenses as a single JSON document.
//
// Every mutation reads the whole document, changes it in memory and writes
// the whole document back. Writes go to a temporary file in the same
// directory which is then renamed over the original, so readers only ever
// observe a complete snapshot. A mutex serializes read-modify-write cycles
// inside one process; separate processes sharing a file can still lose
// updates.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

type Store struct {
	mu     sync.Mutex
	path   string
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New opens the document at path, creating it as an empty array when it
// does not exist yet.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:  path,
		now:   core.Now,
		newID: core.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With(applog.FieldComponent, applog.ComponentStorage)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write([]core.Expense{}); err != nil {
			return nil, fmt.Errorf("initialize data file: %w", err)
		}
		s.logger.Info("Initialized empty data file", "path", path)
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// LoadAll implements ports.ExpenseReader. Unreadable or malformed
// documents are logged and treated as empty.
func (s *Store) LoadAll(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.read(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Unreadable data file, treating as empty", "error", err, "path", s.path)
		return []core.Expense{}, nil
	}
	return items, nil
}

// load reads the document for a mutation. A document that cannot be read
// is never overwritten, so the mutation fails instead.
func (s *Store) load(ctx context.Context, op string) ([]core.Expense, error) {
	items, err := s.read(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Refusing to overwrite unreadable data file", "error", err, "operation", op, "path", s.path)
		return nil, &core.PersistenceError{Op: op, Err: err}
	}
	return items, nil
}

// Add implements ports.ExpenseWriter.
func (s *Store) Add(ctx context.Context, d core.Draft) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, applog.OpCreate)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := core.NewExpense(core.UniqueID(items, s.newID), d, s.now())
	if err != nil {
		return core.Expense{}, err
	}
	items = append(items, e)
	if err := s.write(items); err != nil {
		s.logger.ErrorContext(ctx, "Data write error", "error", err, "operation", applog.OpCreate, "path", s.path)
		return core.Expense{}, &core.PersistenceError{Op: applog.OpCreate, Err: err}
	}
	return e, nil
}

// Update implements ports.ExpenseWriter.
func (s *Store) Update(ctx context.Context, id string, p core.Patch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, applog.OpUpdate)
	if err != nil {
		return core.Expense{}, err
	}
	i := core.IndexOf(items, id)
	if i < 0 {
		return core.Expense{}, core.ErrNotFound
	}
	updated, err := items[i].Apply(p)
	if err != nil {
		return core.Expense{}, err
	}
	items[i] = updated
	if err := s.write(items); err != nil {
		s.logger.ErrorContext(ctx, "Data write error", "error", err, "operation", applog.OpUpdate, "path", s.path)
		return core.Expense{}, &core.PersistenceError{Op: applog.OpUpdate, Err: err}
	}
	return updated, nil
}

// Remove implements ports.ExpenseWriter.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, applog.OpDelete)
	if err != nil {
		return err
	}
	i := core.IndexOf(items, id)
	if i < 0 {
		return core.ErrNotFound
	}
	items = append(items[:i], items[i+1:]...)
	if err := s.write(items); err != nil {
		s.logger.ErrorContext(ctx, "Data write error", "error", err, "operation", applog.OpDelete, "path", s.path)
		return &core.PersistenceError{Op: applog.OpDelete, Err: err}
	}
	return nil
}

// Summarize implements ports.SummaryReader.
func (s *Store) Summarize(ctx context.Context) (core.Summary, error) {
	items, err := s.LoadAll(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(items), nil
}

// read returns the current document. A missing document is recreated as
// an empty array; blank content is empty. Any other failure is returned.
func (s *Store) read(ctx context.Context) ([]core.Expense, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.write([]core.Expense{}); err != nil {
			s.logger.ErrorContext(ctx, "Data write error", "error", err, "operation", applog.OpStartup, "path", s.path)
		}
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []core.Expense{}, nil
	}
	var items []core.Expense
	if err := json.Unmarshal(jsonc.ToJSON(data), &items); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}
	if items == nil {
		items = []core.Expense{}
	}
	return items, nil
}

func (s *Store) write(items []core.Expense) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary data file: %w", err)
	}
	tmp := file.Name()

	// Write, sync, close, rename. Any failure removes the temporary file.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temporary data file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temporary data file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temporary data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
