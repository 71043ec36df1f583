package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/jsonfile"
	applog "expensetracker/internal/log"
	"expensetracker/internal/memory"
	"expensetracker/internal/ports"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend opens the configured store, connects the optional event
// publisher and wires both into an ExpenseService.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store      ports.ExpenseStore
		closeStore func() error
		err        error
	)
	switch config.Type {
	case JSONBackend:
		store, err = f.createJSONBackend(config)
	case MemoryBackend:
		store, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		var repo *storage.Repository
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err == nil {
			store, closeStore = repo, repo.Close
			f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		} else {
			err = fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
	case PostgresBackend:
		var repo *storage.Repository
		repo, err = storage.NewPostgresRepository(config.PostgresURL)
		if err == nil {
			store, closeStore = repo, repo.Close
			f.logger.Info("Initialized PostgreSQL backend")
		} else {
			err = fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	opts := []services.Option{services.WithCleanup(closeStore)}
	if publisher := f.createPublisher(ctx, config); publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}
	svc := services.NewExpenseService(store, opts...)

	return &BackendResult{
		Store:   store,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createJSONBackend(config Config) (ports.ExpenseStore, error) {
	store, err := jsonfile.New(config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JSON data file: %w", err)
	}
	f.logger.Info("Initialized JSON file backend", "path", config.DataFile)
	return store, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (ports.ExpenseStore, error) {
	if config.DataFile == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	store, err := memory.NewFromFile(config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed", config.DataFile)
	return store, nil
}

// createPublisher returns nil when AMQP is not configured or unreachable;
// the service then runs without change events.
func (f *DefaultFactory) createPublisher(ctx context.Context, config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
