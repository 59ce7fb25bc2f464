package api

import (
	"context"

	"todo-api/domain"
)

// Store abstracts persistence for handlers.
type Store interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Create(ctx context.Context, title string) (domain.Todo, error)
	Update(ctx context.Context, id string, upd domain.TodoUpdate) (domain.Todo, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
