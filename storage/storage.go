package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"todo-api/domain"
)

// partitionKey groups all todos into a single partition so one filtered
// list query returns the whole collection.
const partitionKey = "todos"

const edmInt64 = "Edm.Int64"

// Storage persists todos in an Azure Storage table.
type Storage struct {
	table *aztables.Client
}

// New creates a Storage instance from the given connection string and
// table name.
func New(connStr, table string) (*Storage, error) {
	clientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &clientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{table: svc.NewClient(table)}, nil
}

type todoEntity struct {
	aztables.Entity
	Title         string `json:"Title"`
	Completed     bool   `json:"Completed"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
}

// todoPatch carries a partial merge payload; nil fields stay untouched
// server-side.
type todoPatch struct {
	aztables.Entity
	Title     *string `json:"Title,omitempty"`
	Completed *bool   `json:"Completed,omitempty"`
}

func decodeTodoEntity(data []byte) (domain.Todo, error) {
	var ent todoEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Todo{}, err
	}
	return domain.Todo{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Completed: ent.Completed,
		CreatedAt: ent.CreatedAt,
	}, nil
}

// List returns all todos ordered newest-first by creation time. An empty
// table yields an empty slice, never nil.
func (s *Storage) List(ctx context.Context) ([]domain.Todo, error) {
	filter := "PartitionKey eq '" + partitionKey + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	todos := []domain.Todo{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &domain.StoreUnavailableError{Err: err}
		}
		for _, e := range resp.Entities {
			todo, err := decodeTodoEntity(e)
			if err != nil {
				return nil, err
			}
			todos = append(todos, todo)
		}
	}
	sortNewestFirst(todos)
	return todos, nil
}

func sortNewestFirst(todos []domain.Todo) {
	sort.Slice(todos, func(i, j int) bool { return todos[i].CreatedAt > todos[j].CreatedAt })
}

// Create persists a new todo with a fresh id, completed=false and a
// strictly increasing creation timestamp.
func (s *Storage) Create(ctx context.Context, title string) (domain.Todo, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return domain.Todo{}, err
	}
	todo := domain.Todo{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: nextCreationTime(),
	}
	ent := todoEntity{
		Entity:        aztables.Entity{PartitionKey: partitionKey, RowKey: todo.ID},
		Title:         todo.Title,
		Completed:     todo.Completed,
		CreatedAt:     todo.CreatedAt,
		CreatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return domain.Todo{}, err
	}
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		return domain.Todo{}, entityErr(err)
	}
	return todo, nil
}

// Update merges the supplied fields into an existing todo and returns the
// merged record. An update carrying no fields is a no-op returning the
// record unchanged. Concurrent updates to the same id are last-writer-wins.
func (s *Storage) Update(ctx context.Context, id string, upd domain.TodoUpdate) (domain.Todo, error) {
	if upd.Title != nil {
		if err := domain.ValidateTitle(*upd.Title); err != nil {
			return domain.Todo{}, err
		}
	}
	resp, err := s.table.GetEntity(ctx, partitionKey, id, nil)
	if err != nil {
		return domain.Todo{}, entityErr(err)
	}
	current, err := decodeTodoEntity(resp.Value)
	if err != nil {
		return domain.Todo{}, err
	}
	if upd.IsZero() {
		return current, nil
	}
	patch := todoPatch{
		Entity:    aztables.Entity{PartitionKey: partitionKey, RowKey: id},
		Title:     upd.Title,
		Completed: upd.Completed,
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return domain.Todo{}, err
	}
	et := azcore.ETagAny
	opts := aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge}
	if _, err := s.table.UpdateEntity(ctx, payload, &opts); err != nil {
		return domain.Todo{}, entityErr(err)
	}
	return upd.Apply(current), nil
}

// Delete removes a todo permanently. Deleting an unknown id fails with
// domain.ErrNotFound, and keeps failing that way on repeated attempts.
func (s *Storage) Delete(ctx context.Context, id string) error {
	if _, err := s.table.DeleteEntity(ctx, partitionKey, id, nil); err != nil {
		return entityErr(err)
	}
	return nil
}

// Ping issues a minimal list query to verify the table is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	top := int32(1)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Top: &top})
	if pager.More() {
		if _, err := pager.NextPage(ctx); err != nil {
			return &domain.StoreUnavailableError{Err: err}
		}
	}
	return nil
}

// entityErr translates table responses for single-entity operations into
// the domain error taxonomy.
func entityErr(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return &domain.StoreUnavailableError{Err: err}
}
