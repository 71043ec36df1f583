package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// Publisher announces committed changes. *amqp.Client satisfies it.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService orchestrates expense operations across the store and the
// optional event publisher.
type ExpenseService struct {
	store     ports.ExpenseStore
	publisher Publisher
	cleanup   func() error
	logger    *slog.Logger
}

type Option func(*ExpenseService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithCleanup registers a function run by Close, typically the backend's
// resource release.
func WithCleanup(fn func() error) Option {
	return func(s *ExpenseService) { s.cleanup = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func NewExpenseService(store ports.ExpenseStore, opts ...Option) *ExpenseService {
	s := &ExpenseService{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With(applog.FieldComponent, applog.ComponentExpense)
	}
	return s
}

// List returns every expense, newest first.
func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	core.SortNewestFirst(items)
	return items, nil
}

// Create validates and stores a new expense.
func (s *ExpenseService) Create(ctx context.Context, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.Add(ctx, d)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().WithExpense(e.ID, e.Amount.String(), e.Category).ToSlice()...)
	s.publish(ctx, amqp.EventExpenseCreated, e.ID, &e)
	return e, nil
}

// Get returns the expense with id.
func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	items, err := s.store.LoadAll(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expenses: %w", err)
	}
	i := core.IndexOf(items, id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	return items[i], nil
}

// Update applies the present fields of p to the expense with id. An
// unknown id is reported before any field error.
func (s *ExpenseService) Update(ctx context.Context, id string, p core.Patch) (core.Expense, error) {
	e, err := s.store.Update(ctx, id, p)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense updated", applog.FieldExpenseID, e.ID)
	s.publish(ctx, amqp.EventExpenseUpdated, e.ID, &e)
	return e, nil
}

// Delete removes the expense with id.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id)
	s.publish(ctx, amqp.EventExpenseDeleted, id, nil)
	return nil
}

// Summary aggregates the current collection. It is recomputed on every call.
func (s *ExpenseService) Summary(ctx context.Context) (core.Summary, error) {
	sum, err := s.store.Summarize(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize expenses: %w", err)
	}
	return sum, nil
}

// Ready reports whether the store can currently be read.
func (s *ExpenseService) Ready(ctx context.Context) error {
	if s.store == nil {
		return errors.New("no store configured")
	}
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.LoadAll(ctx)
	return err
}

// publish is best effort: the change is already durable.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, id string, e *core.Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, id, e)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			"error", err,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventType, t,
			applog.FieldExpenseID, id)
	}
}

// Close releases the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.cleanup != nil {
		if err := s.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
