package api

import (
	"context"

	"teambalance/domain"
)

// Storage abstracts snapshot reads for handlers.
type Storage interface {
	FetchTasks(ctx context.Context) ([]domain.Task, error)
}

// Deduper prevents processing of duplicate commands.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, key string) error
}
