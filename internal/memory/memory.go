// Package memory keeps expenses in process memory. It backs tests and the
// "memory" data backend; nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	"expensetracker/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
	now   func() time.Time
	newID func() string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithSeed preloads records. A record whose id is already present is
// skipped, so the first occurrence wins.
func WithSeed(items ...core.Expense) Option {
	return func(s *Store) {
		for _, e := range items {
			if core.IndexOf(s.items, e.ID) < 0 {
				s.items = append(s.items, e)
			}
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{now: core.Now, newID: core.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFile seeds the store from a JSON document in the same format the
// jsonfile backend writes. A missing file yields an empty store.
func NewFromFile(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Expense
	if len(data) > 0 {
		if err := json.Unmarshal(jsonc.ToJSON(data), &seed); err != nil {
			return nil, fmt.Errorf("decode seed file %s: %w", path, err)
		}
	}
	return New(append([]Option{WithSeed(seed...)}, opts...)...), nil
}

func (s *Store) LoadAll(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.items)
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func (s *Store) Add(_ context.Context, d core.Draft) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := core.NewExpense(core.UniqueID(s.items, s.newID), d, s.now())
	if err != nil {
		return core.Expense{}, err
	}
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) Update(_ context.Context, id string, p core.Patch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := core.IndexOf(s.items, id)
	if i < 0 {
		return core.Expense{}, core.ErrNotFound
	}
	updated, err := s.items[i].Apply(p)
	if err != nil {
		return core.Expense{}, err
	}
	s.items[i] = updated
	return updated, nil
}

func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := core.IndexOf(s.items, id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) Summarize(ctx context.Context) (core.Summary, error) {
	items, _ := s.LoadAll(ctx)
	return core.Summarize(items), nil
}
