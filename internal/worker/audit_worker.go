// Package worker consumes expense events outside the request path.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
)

// AuditWorker appends every received expense event to a JSON-lines file.
type AuditWorker struct {
	path   string
	logger *applog.Logger
	now    func() time.Time

	mu     sync.Mutex
	file   *os.File
	counts map[amqp.EventType]int
}

// AuditEntry is one line of the audit trail.
type AuditEntry struct {
	ReceivedAt time.Time `json:"receivedAt"`
	*amqp.ExpenseEvent
}

// NewAuditWorker opens (or creates) the audit file at path for appending.
func NewAuditWorker(path string, logger *applog.Logger) (*AuditWorker, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AuditWorker{
		path:   path,
		logger: logger.WithComponent(applog.ComponentWorker),
		now:    time.Now,
		file:   f,
		counts: make(map[amqp.EventType]int),
	}, nil
}

// HandleExpenseEvent records ev. A returned error makes the consumer
// requeue the message.
func (w *AuditWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	line, err := json.Marshal(AuditEntry{ReceivedAt: w.now().UTC(), ExpenseEvent: ev})
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("audit log %s is closed", w.path)
	}
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	w.counts[ev.Type]++

	w.logger.DebugContext(ctx, "Expense event recorded",
		applog.FieldEventType, ev.Type,
		applog.FieldExpenseID, ev.ID)
	return nil
}

// Counts returns how many events of each type were recorded so far.
func (w *AuditWorker) Counts() map[amqp.EventType]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[amqp.EventType]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// ReportPeriodically logs the running counts every interval until ctx ends.
func (w *AuditWorker) ReportPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c := w.Counts()
			w.logger.InfoContext(ctx, "Audit progress",
				"created", c[amqp.EventExpenseCreated],
				"updated", c[amqp.EventExpenseUpdated],
				"deleted", c[amqp.EventExpenseDeleted])
		}
	}
}

// Close flushes and closes the audit file.
func (w *AuditWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
