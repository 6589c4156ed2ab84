package todostore

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/todosvc"
)

type fakeService struct {
	todos []todosvc.Todo
	next  int
}

func newFakeService() *fakeService {
	return &fakeService{todos: todosvc.DemoTodos("1"), next: 4}
}

func (s *fakeService) Todos(_ context.Context, _ todosvc.Auth) ([]todosvc.Todo, error) {
	return append([]todosvc.Todo(nil), s.todos...), nil
}

func (s *fakeService) AddTodo(_ context.Context, _ todosvc.Auth, text string) (todosvc.Todo, error) {
	t := todosvc.Todo{ID: strconv.Itoa(s.next), Text: text, UserID: "1"}
	s.next++
	s.todos = append(s.todos, t)
	return t, nil
}

func (s *fakeService) ToggleTodo(_ context.Context, _ todosvc.Auth, todoID string) (todosvc.Todo, error) {
	for i := range s.todos {
		if s.todos[i].ID == todoID {
			s.todos[i].Completed = !s.todos[i].Completed
			return s.todos[i], nil
		}
	}
	return todosvc.Todo{}, todosvc.ErrTodoNotFound
}

func (s *fakeService) DeleteTodo(_ context.Context, _ todosvc.Auth, todoID string) (bool, error) {
	for i := range s.todos {
		if s.todos[i].ID == todoID {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			return true, nil
		}
	}
	return false, todosvc.ErrDeleteNotFound
}

type authorizer struct {
	err error
}

func (a authorizer) Authorize(ctx context.Context) (context.Context, error) {
	return ctx, a.err
}

func newLoadedStore(t *testing.T) *Store {
	t.Helper()

	s := New(newFakeService(), authorizer{}, log.NewNopLogger())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func TestLoad(t *testing.T) {
	s := newLoadedStore(t)

	st := s.State()
	if len(st.Todos) != 3 || st.Loading || st.Err != "" {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestAdd(t *testing.T) {
	s := newLoadedStore(t)
	before := len(s.State().Todos)

	if err := s.Add(context.Background(), "  New task "); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	todos := s.State().Todos
	if len(todos) != before+1 {
		t.Fatalf("expected %d todos, got %d", before+1, len(todos))
	}
	last := todos[len(todos)-1]
	if last.Text != "New task" || last.Completed {
		t.Errorf("unexpected new todo: %+v", last)
	}

	t.Run("blank text is rejected locally", func(t *testing.T) {
		if err := s.Add(context.Background(), "   "); !errors.Is(err, todosvc.ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText, got %v", err)
		}
		st := s.State()
		if len(st.Todos) != before+1 {
			t.Errorf("list changed: %d todos", len(st.Todos))
		}
		if st.Err != todosvc.ErrEmptyText.Error() {
			t.Errorf("unexpected error message: %q", st.Err)
		}
	})
}

func TestToggle(t *testing.T) {
	s := newLoadedStore(t)

	if err := s.Toggle(context.Background(), "2"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	want := map[string]bool{"1": true, "2": true, "3": false}
	for _, td := range s.State().Todos {
		if td.Completed != want[td.ID] {
			t.Errorf("todo %s: completed=%v, want %v", td.ID, td.Completed, want[td.ID])
		}
	}

	if err := s.Toggle(context.Background(), "nope"); !errors.Is(err, todosvc.ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
	if got := s.State().Err; got != "Todo not found" {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := newLoadedStore(t)

	if err := s.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(s.State().Todos) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(s.State().Todos))
	}

	t.Run("unknown id leaves the list unchanged", func(t *testing.T) {
		before := s.State().Todos

		if err := s.Delete(context.Background(), "1"); !errors.Is(err, todosvc.ErrDeleteNotFound) {
			t.Fatalf("expected ErrDeleteNotFound, got %v", err)
		}

		st := s.State()
		if len(st.Todos) != len(before) {
			t.Errorf("list changed: %d -> %d", len(before), len(st.Todos))
		}
		if st.Err != "Todo not found for deletion" {
			t.Errorf("unexpected error message: %q", st.Err)
		}

		s.ClearError()
		if s.State().Err != "" {
			t.Error("ClearError did not clear the message")
		}
	})
}

func TestUnauthorized(t *testing.T) {
	denied := errors.New("not authenticated")
	s := New(newFakeService(), authorizer{err: denied}, log.NewNopLogger())

	if err := s.Load(context.Background()); !errors.Is(err, denied) {
		t.Fatalf("expected the authorizer error, got %v", err)
	}
	if st := s.State(); st.Err != "not authenticated" || st.Loading {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestStateIsACopy(t *testing.T) {
	s := newLoadedStore(t)

	st := s.State()
	st.Todos[0].Text = "mutated"

	if s.State().Todos[0].Text == "mutated" {
		t.Error("State leaked the internal slice")
	}
}
