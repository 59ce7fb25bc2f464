package domain

import "strings"

// Todo represents a single task with a title and completion state.
type Todo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
}

// TodoUpdate carries a partial update for a todo. Nil fields are left
// untouched.
type TodoUpdate struct {
	Title     *string
	Completed *bool
}

// IsZero reports whether the update supplies no fields.
func (u TodoUpdate) IsZero() bool {
	return u.Title == nil && u.Completed == nil
}

// Apply returns a copy of t with the supplied fields merged in.
func (u TodoUpdate) Apply(t Todo) Todo {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	return t
}

// ValidateTitle rejects titles that are empty after trimming whitespace.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ValidationError("title must not be empty")
	}
	return nil
}
