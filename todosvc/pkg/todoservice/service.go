package todoservice

import (
	"context"
	"errors"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/todosvc"
)

type Service interface {
	Todos(ctx context.Context, a todosvc.Auth) ([]todosvc.Todo, error)
	AddTodo(ctx context.Context, a todosvc.Auth, text string) (todosvc.Todo, error)
	ToggleTodo(ctx context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error)
	DeleteTodo(ctx context.Context, a todosvc.Auth, todoID string) (bool, error)
}

func New(t todosvc.TodoRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	todos todosvc.TodoRepository
}

func NewBasicService(t todosvc.TodoRepository) Service {
	return basicService{todos: t}
}

func (s basicService) Todos(_ context.Context, a todosvc.Auth) ([]todosvc.Todo, error) {
	if a.UserID == "" {
		return nil, todosvc.ErrInvalidArgument
	}
	return s.todos.FindAll(a.UserID)
}

func (s basicService) AddTodo(_ context.Context, a todosvc.Auth, text string) (todosvc.Todo, error) {
	if a.UserID == "" {
		return todosvc.Todo{}, todosvc.ErrInvalidArgument
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return todosvc.Todo{}, todosvc.ErrEmptyText
	}
	return s.todos.Create(a.UserID, text)
}

func (s basicService) ToggleTodo(_ context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error) {
	if a.UserID == "" || todoID == "" {
		return todosvc.Todo{}, todosvc.ErrInvalidArgument
	}

	todo, err := s.todos.Find(a.UserID, todoID)
	if err != nil {
		return todosvc.Todo{}, err
	}

	todo.Completed = !todo.Completed
	return s.todos.Update(todo)
}

func (s basicService) DeleteTodo(_ context.Context, a todosvc.Auth, todoID string) (bool, error) {
	if a.UserID == "" || todoID == "" {
		return false, todosvc.ErrInvalidArgument
	}

	err := s.todos.Delete(a.UserID, todoID)
	if errors.Is(err, todosvc.ErrTodoNotFound) {
		return false, todosvc.ErrDeleteNotFound
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
