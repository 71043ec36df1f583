package backend

import (
	"context"

	"expensetracker/internal/ports"
	"expensetracker/internal/services"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult bundles the store, the service built on top of it and the
// function that releases both.
type BackendResult struct {
	Store   ports.ExpenseStore
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// json, and the seed document for memory
	DataFile string

	// sqlite
	SQLiteDBPath string

	// postgres
	PostgresURL string

	// optional event publishing, any backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	JSONBackend     BackendType = "json"
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
