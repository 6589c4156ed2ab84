package todoendpoint

import (
	"context"
	"errors"
	"testing"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/todosvc"
)

type recordingService struct {
	auth todosvc.Auth
}

func (s *recordingService) Todos(_ context.Context, a todosvc.Auth) ([]todosvc.Todo, error) {
	s.auth = a
	return []todosvc.Todo{{ID: "1", Text: "a"}}, nil
}

func (s *recordingService) AddTodo(_ context.Context, a todosvc.Auth, text string) (todosvc.Todo, error) {
	s.auth = a
	return todosvc.Todo{ID: "2", Text: text}, nil
}

func (s *recordingService) ToggleTodo(_ context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error) {
	s.auth = a
	return todosvc.Todo{}, todosvc.ErrTodoNotFound
}

func (s *recordingService) DeleteTodo(_ context.Context, a todosvc.Auth, todoID string) (bool, error) {
	s.auth = a
	return true, nil
}

func TestSetReadsClaims(t *testing.T) {
	svc := &recordingService{}
	set := New(svc, log.NewNopLogger())

	ctx := context.WithValue(context.Background(), kitjwt.JWTClaimsContextKey, stdjwt.MapClaims{
		"uuid":    "access-uuid",
		"user_id": "42",
	})

	todo, err := set.AddTodo(ctx, todosvc.Auth{}, "hello")
	if err != nil {
		t.Fatalf("AddTodo failed: %v", err)
	}
	if todo.Text != "hello" {
		t.Errorf("text mismatch: got %q", todo.Text)
	}
	if svc.auth != (todosvc.Auth{AccessUUID: "access-uuid", UserID: "42"}) {
		t.Errorf("unexpected auth: %+v", svc.auth)
	}

	if _, err := set.ToggleTodo(ctx, todosvc.Auth{}, "x"); !errors.Is(err, todosvc.ErrTodoNotFound) {
		t.Errorf("expected ErrTodoNotFound, got %v", err)
	}
}

func TestSetWithoutClaims(t *testing.T) {
	set := New(&recordingService{}, log.NewNopLogger())

	if _, err := set.Todos(context.Background(), todosvc.Auth{}); !errors.Is(err, todosvc.ErrClaimsMissing) {
		t.Errorf("expected ErrClaimsMissing, got %v", err)
	}

	ctx := context.WithValue(context.Background(), kitjwt.JWTClaimsContextKey, stdjwt.MapClaims{"uuid": "u"})
	if _, err := set.DeleteTodo(ctx, todosvc.Auth{}, "1"); !errors.Is(err, todosvc.ErrClaimsMissing) {
		t.Errorf("expected ErrClaimsMissing for missing user_id, got %v", err)
	}
}
