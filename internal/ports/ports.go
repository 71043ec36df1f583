// Package ports declares the storage contracts the expense service depends on.
package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	ExpenseReader interface {
		// LoadAll returns every stored record in persisted order.
		LoadAll(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		// Add stores a new record with a fresh id and creation date.
		Add(ctx context.Context, d core.Draft) (core.Expense, error)
		// Update overwrites the present patch fields; core.ErrNotFound if id is unknown.
		Update(ctx context.Context, id string, p core.Patch) (core.Expense, error)
		// Remove deletes the record; core.ErrNotFound if id is unknown.
		Remove(ctx context.Context, id string) error
	}

	// SummaryReader computes the aggregate view from the current snapshot.
	SummaryReader interface {
		Summarize(ctx context.Context) (core.Summary, error)
	}

	ExpenseStore interface {
		ExpenseReader
		ExpenseWriter
		SummaryReader
	}
)
