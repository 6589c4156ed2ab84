// Package todostore keeps the client side copy of the signed in user's
// todos in step with the todo service.
package todostore

import (
	"context"
	"strings"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
)

// Authorizer attaches the current session's credentials to a context.
type Authorizer interface {
	Authorize(ctx context.Context) (context.Context, error)
}

type State struct {
	Todos   []todosvc.Todo
	Err     string
	Loading bool
}

// Store calls the service with an empty todosvc.Auth: the caller is
// identified by the token the Authorizer puts in the context.
type Store struct {
	mtx    sync.Mutex
	state  State
	svc    todoservice.Service
	auth   Authorizer
	logger log.Logger
}

func New(svc todoservice.Service, auth Authorizer, logger log.Logger) *Store {
	return &Store{svc: svc, auth: auth, logger: logger}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st := s.state
	st.Todos = append([]todosvc.Todo(nil), s.state.Todos...)
	return st
}

func (s *Store) Load(ctx context.Context) (err error) {
	defer func() {
		s.logger.Log("method", "Load", "err", err)
	}()

	s.begin()

	ctx, err = s.auth.Authorize(ctx)
	if err != nil {
		return s.fail(err)
	}

	todos, err := s.svc.Todos(ctx, todosvc.Auth{})
	if err != nil {
		return s.fail(err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Todos = todos
	s.state.Loading = false
	return nil
}

func (s *Store) Add(ctx context.Context, text string) (err error) {
	defer func() {
		s.logger.Log("method", "Add", "text", text, "err", err)
	}()

	s.begin()

	text = strings.TrimSpace(text)
	if text == "" {
		return s.fail(todosvc.ErrEmptyText)
	}

	ctx, err = s.auth.Authorize(ctx)
	if err != nil {
		return s.fail(err)
	}

	todo, err := s.svc.AddTodo(ctx, todosvc.Auth{}, text)
	if err != nil {
		return s.fail(err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Todos = append(s.state.Todos, todo)
	s.state.Loading = false
	return nil
}

func (s *Store) Toggle(ctx context.Context, todoID string) (err error) {
	defer func() {
		s.logger.Log("method", "Toggle", "todo_id", todoID, "err", err)
	}()

	s.begin()

	ctx, err = s.auth.Authorize(ctx)
	if err != nil {
		return s.fail(err)
	}

	todo, err := s.svc.ToggleTodo(ctx, todosvc.Auth{}, todoID)
	if err != nil {
		return s.fail(err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	for i := range s.state.Todos {
		if s.state.Todos[i].ID == todo.ID {
			s.state.Todos[i] = todo
		}
	}
	s.state.Loading = false
	return nil
}

func (s *Store) Delete(ctx context.Context, todoID string) (err error) {
	defer func() {
		s.logger.Log("method", "Delete", "todo_id", todoID, "err", err)
	}()

	s.begin()

	ctx, err = s.auth.Authorize(ctx)
	if err != nil {
		return s.fail(err)
	}

	if _, err := s.svc.DeleteTodo(ctx, todosvc.Auth{}, todoID); err != nil {
		return s.fail(err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	kept := s.state.Todos[:0]
	for _, t := range s.state.Todos {
		if t.ID != todoID {
			kept = append(kept, t)
		}
	}
	s.state.Todos = kept
	s.state.Loading = false
	return nil
}

func (s *Store) ClearError() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Err = ""
}

// Reset drops the local copy, for when the session ends.
func (s *Store) Reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state = State{}
}

func (s *Store) begin() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Err = ""
	s.state.Loading = true
}

func (s *Store) fail(err error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Err = err.Error()
	s.state.Loading = false
	return err
}
