package generator

import (
	"context"

	"github.com/abhisek/findata/internal/dataset"
)

// BatchRequest asks a backend for Count items grounded in Chunk.
type BatchRequest struct {
	Index int // chunk position in the run
	Chunk string
	Count int
}

// Backend produces one batch of items per chunk. Implementations may
// return more or fewer items than requested.
type Backend interface {
	GenerateBatch(ctx context.Context, req BatchRequest) ([]dataset.Item, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req BatchRequest) ([]dataset.Item, error)

func (f BackendFunc) GenerateBatch(ctx context.Context, req BatchRequest) ([]dataset.Item, error) {
	return f(ctx, req)
}
