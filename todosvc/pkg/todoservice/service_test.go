package todoservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/db/gorm"
)

var demo = todosvc.Auth{AccessUUID: "access", UserID: "1"}

func newTestService(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(gorm.MemoryDSN(t.Name()))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := gorm.Seed(db, todosvc.DemoTodos(demo.UserID)...); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	svc := New(gorm.NewTodoRepository(db), log.NewNopLogger())
	return InstrumentingMiddleware(discard.NewCounter(), discard.NewHistogram())(svc)
}

func TestTodos(t *testing.T) {
	svc := newTestService(t)

	todos, err := svc.Todos(context.Background(), demo)
	if err != nil {
		t.Fatalf("Todos failed: %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("expected 3 seeded todos, got %d", len(todos))
	}
	if !todos[0].Completed || todos[1].Completed || todos[2].Completed {
		t.Errorf("unexpected seed state: %+v", todos)
	}

	if _, err := svc.Todos(context.Background(), todosvc.Auth{}); !errors.Is(err, todosvc.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAddTodo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("appends an open todo", func(t *testing.T) {
		before, _ := svc.Todos(ctx, demo)

		todo, err := svc.AddTodo(ctx, demo, "  Ship it  ")
		if err != nil {
			t.Fatalf("AddTodo failed: %v", err)
		}
		if todo.Text != "Ship it" || todo.Completed || todo.ID == "" {
			t.Errorf("unexpected todo: %+v", todo)
		}

		after, _ := svc.Todos(ctx, demo)
		if len(after) != len(before)+1 {
			t.Fatalf("expected %d todos, got %d", len(before)+1, len(after))
		}
		if after[len(after)-1].ID != todo.ID {
			t.Errorf("new todo is not last: %+v", after)
		}
	})

	t.Run("blank text", func(t *testing.T) {
		if _, err := svc.AddTodo(ctx, demo, "   "); !errors.Is(err, todosvc.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})
}

func TestToggleTodo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	todo, err := svc.ToggleTodo(ctx, demo, "2")
	if err != nil {
		t.Fatalf("ToggleTodo failed: %v", err)
	}
	if !todo.Completed {
		t.Error("expected todo 2 to be completed")
	}

	todos, _ := svc.Todos(ctx, demo)
	want := map[string]bool{"1": true, "2": true, "3": false}
	for _, td := range todos {
		if td.Completed != want[td.ID] {
			t.Errorf("todo %s: completed=%v, want %v", td.ID, td.Completed, want[td.ID])
		}
	}

	todo, err = svc.ToggleTodo(ctx, demo, "2")
	if err != nil || todo.Completed {
		t.Errorf("expected second toggle to reopen todo, got %+v, %v", todo, err)
	}

	_, err = svc.ToggleTodo(ctx, demo, "missing")
	if !errors.Is(err, todosvc.ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
	if err.Error() != "Todo not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestDeleteTodo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ok, err := svc.DeleteTodo(ctx, demo, "1")
	if err != nil || !ok {
		t.Fatalf("DeleteTodo failed: %v, %v", ok, err)
	}

	before, _ := svc.Todos(ctx, demo)
	_, err = svc.DeleteTodo(ctx, demo, "1")
	if !errors.Is(err, todosvc.ErrDeleteNotFound) {
		t.Fatalf("expected ErrDeleteNotFound, got %v", err)
	}
	after, _ := svc.Todos(ctx, demo)
	if len(after) != len(before) {
		t.Errorf("list changed on failed delete: %d -> %d", len(before), len(after))
	}
}

func TestProxingMiddleware(t *testing.T) {
	live := map[string]bool{"access": true}
	validate := func(_ context.Context, request interface{}) (interface{}, error) {
		req := request.(authendpoint.ValidateRequest)
		if !live[req.AccessUUID] {
			return authendpoint.ValidateResponse{Err: authsvc.ErrSessionNotFound}, nil
		}
		return authendpoint.ValidateResponse{V: true}, nil
	}

	svc := ProxingMiddleware(validate)(newTestService(t))
	ctx := context.Background()

	if _, err := svc.Todos(ctx, demo); err != nil {
		t.Fatalf("Todos with live session failed: %v", err)
	}

	revoked := todosvc.Auth{AccessUUID: "revoked", UserID: demo.UserID}
	if _, err := svc.AddTodo(ctx, revoked, "x"); !errors.Is(err, authsvc.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.DeleteTodo(ctx, revoked, "1"); !errors.Is(err, authsvc.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLatencyMiddleware(t *testing.T) {
	svc := LatencyMiddleware(time.Hour)(newTestService(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := svc.Todos(ctx, demo); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}
