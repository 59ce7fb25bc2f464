package api

import "todo-api/domain"

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// POST /api/todos request body
type createTodoRequest struct {
	Title string `json:"title"`
}

// PUT /api/todos/:id request body; absent fields are left untouched.
type updateTodoRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

func (r updateTodoRequest) toUpdate() domain.TodoUpdate {
	return domain.TodoUpdate{Title: r.Title, Completed: r.Completed}
}

// Body returned on every failed request.
type errorResponse struct {
	Error string `json:"error"`
}
