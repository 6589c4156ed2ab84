package todotransport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/authsvc"
	authgorm "github.com/oyage/todo-vite-app/authsvc/db/gorm"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authtransport"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/db/gorm"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoendpoint"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
)

type stack struct {
	auth authendpoint.Set
	todo todoendpoint.Set
}

func newTestStack(t *testing.T) stack {
	t.Helper()
	logger := log.NewNopLogger()

	adb, err := authgorm.Open(authgorm.MemoryDSN(t.Name() + "_auth"))
	if err != nil {
		t.Fatalf("failed to open auth database: %v", err)
	}
	if err := authgorm.SeedDemo(adb); err != nil {
		t.Fatalf("failed to seed users: %v", err)
	}
	kv := inmem.NewLocalClient()
	authEndpoints := authendpoint.New(
		authservice.New(authservice.NewTokenizer(), authgorm.NewUserRepository(adb), kv, logger),
		logger,
	)
	authSrv := httptest.NewServer(authtransport.NewHTTPHandler(authEndpoints, kv, logger))
	t.Cleanup(authSrv.Close)

	tdb, err := gorm.Open(gorm.MemoryDSN(t.Name() + "_todo"))
	if err != nil {
		t.Fatalf("failed to open todo database: %v", err)
	}
	if err := gorm.Seed(tdb, todosvc.DemoTodos(authsvc.DemoUserID)...); err != nil {
		t.Fatalf("failed to seed todos: %v", err)
	}
	var svc todoservice.Service
	{
		svc = todoservice.New(gorm.NewTodoRepository(tdb), logger)
		svc = todoservice.ProxingMiddleware(authEndpoints.ValidateEndpoint)(svc)
	}
	todoSrv := httptest.NewServer(NewHTTPHandler(todoendpoint.New(svc, logger), logger))
	t.Cleanup(todoSrv.Close)

	authClient, err := authtransport.NewHTTPClient(authSrv.URL, logger)
	if err != nil {
		t.Fatalf("failed to create auth client: %v", err)
	}
	todoClient, err := NewHTTPClient(todoSrv.URL, logger)
	if err != nil {
		t.Fatalf("failed to create todo client: %v", err)
	}

	return stack{auth: authClient, todo: todoClient}
}

func (s stack) login(t *testing.T) context.Context {
	t.Helper()

	session, err := s.auth.Login(context.Background(), authsvc.DemoEmail, authsvc.DemoPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return context.WithValue(context.Background(), kitjwt.JWTContextKey, session.Tokens["access"])
}

func TestTodoLifecycle(t *testing.T) {
	s := newTestStack(t)
	ctx := s.login(t)
	var none todosvc.Auth

	todos, err := s.todo.Todos(ctx, none)
	if err != nil {
		t.Fatalf("Todos failed: %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(todos))
	}

	added, err := s.todo.AddTodo(ctx, none, "Write more tests")
	if err != nil {
		t.Fatalf("AddTodo failed: %v", err)
	}
	if added.Completed {
		t.Error("new todo should be open")
	}

	toggled, err := s.todo.ToggleTodo(ctx, none, added.ID)
	if err != nil {
		t.Fatalf("ToggleTodo failed: %v", err)
	}
	if !toggled.Completed || toggled.ID != added.ID {
		t.Errorf("unexpected toggled todo: %+v", toggled)
	}

	ok, err := s.todo.DeleteTodo(ctx, none, added.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteTodo failed: %v, %v", ok, err)
	}

	if _, err := s.todo.DeleteTodo(ctx, none, added.ID); !errors.Is(err, todosvc.ErrDeleteNotFound) {
		t.Errorf("expected ErrDeleteNotFound, got %v", err)
	}
	if _, err := s.todo.AddTodo(ctx, none, " "); !errors.Is(err, todosvc.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestLogoutRevokesAccess(t *testing.T) {
	s := newTestStack(t)
	ctx := s.login(t)

	if _, err := s.auth.Logout(ctx, ""); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := s.todo.Todos(ctx, todosvc.Auth{}); !errors.Is(err, authsvc.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUnauthenticated(t *testing.T) {
	s := newTestStack(t)

	if _, err := s.todo.Todos(context.Background(), todosvc.Auth{}); !errors.Is(err, kitjwt.ErrTokenContextMissing) {
		t.Errorf("expected ErrTokenContextMissing, got %v", err)
	}

	ctx := context.WithValue(context.Background(), kitjwt.JWTContextKey, "garbage")
	if _, err := s.todo.Todos(ctx, todosvc.Auth{}); !errors.Is(err, kitjwt.ErrTokenMalformed) {
		t.Errorf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	s := newTestStack(t)
	ctx := s.login(t)

	for i := 0; i < 10; i++ {
		if _, err := s.todo.ToggleTodo(ctx, todosvc.Auth{}, "missing"); !errors.Is(err, todosvc.ErrTodoNotFound) {
			t.Fatalf("attempt %d: expected ErrTodoNotFound, got %v", i, err)
		}
	}
}

func TestErr2Code(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{todosvc.ErrEmptyText, http.StatusBadRequest},
		{todosvc.ErrTodoNotFound, http.StatusNotFound},
		{todosvc.ErrDeleteNotFound, http.StatusNotFound},
		{authsvc.ErrSessionNotFound, http.StatusUnauthorized},
		{kitjwt.ErrTokenExpired, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := err2code(tt.err); got != tt.code {
			t.Errorf("err2code(%v): got %d, want %d", tt.err, got, tt.code)
		}
	}
}
