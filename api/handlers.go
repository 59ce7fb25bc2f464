package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, logger *log.Logger) {
	e.Use(RequestLogMiddleware(logger))

	e.GET("/api/todos", listTodos(store))
	e.POST("/api/todos", createTodo(store))
	e.PUT("/api/todos/:id", updateTodo(store))
	e.DELETE("/api/todos/:id", deleteTodo(store))
	e.GET("/healthz", healthz(store))
}

func listTodos(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		todos, err := store.List(c.Request().Context())
		if err != nil {
			return storeFailure(c, err)
		}
		return c.JSON(http.StatusOK, todos)
	}
}

func createTodo(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTodoRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		// Invalid titles are rejected here so they never reach the store.
		if err := domain.ValidateTitle(req.Title); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		todo, err := store.Create(c.Request().Context(), req.Title)
		if err != nil {
			return storeFailure(c, err)
		}
		return c.JSON(http.StatusCreated, todo)
	}
}

func updateTodo(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateTodoRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Title != nil {
			if err := domain.ValidateTitle(*req.Title); err != nil {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			}
		}
		todo, err := store.Update(c.Request().Context(), c.Param("id"), req.toUpdate())
		if err != nil {
			return storeFailure(c, err)
		}
		return c.JSON(http.StatusOK, todo)
	}
}

func deleteTodo(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return storeFailure(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func healthz(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "store unreachable"})
		}
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// storeFailure maps store errors onto HTTP statuses: invalid input to 400,
// unknown ids to 404, everything else to 500.
func storeFailure(c echo.Context, err error) error {
	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
