package todoendpoint

import (
	"context"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
)

type Set struct {
	TodosEndpoint      endpoint.Endpoint
	AddTodoEndpoint    endpoint.Endpoint
	ToggleTodoEndpoint endpoint.Endpoint
	DeleteTodoEndpoint endpoint.Endpoint
}

func New(svc todoservice.Service, logger log.Logger) Set {
	var todosEndpoint endpoint.Endpoint
	{
		todosEndpoint = MakeTodosEndpoint(svc)
		todosEndpoint = LoggingMiddleware(log.With(logger, "method", "Todos"))(todosEndpoint)
	}

	var addTodoEndpoint endpoint.Endpoint
	{
		addTodoEndpoint = MakeAddTodoEndpoint(svc)
		addTodoEndpoint = LoggingMiddleware(log.With(logger, "method", "AddTodo"))(addTodoEndpoint)
	}

	var toggleTodoEndpoint endpoint.Endpoint
	{
		toggleTodoEndpoint = MakeToggleTodoEndpoint(svc)
		toggleTodoEndpoint = LoggingMiddleware(log.With(logger, "method", "ToggleTodo"))(toggleTodoEndpoint)
	}

	var deleteTodoEndpoint endpoint.Endpoint
	{
		deleteTodoEndpoint = MakeDeleteTodoEndpoint(svc)
		deleteTodoEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTodo"))(deleteTodoEndpoint)
	}

	return Set{
		TodosEndpoint:      todosEndpoint,
		AddTodoEndpoint:    addTodoEndpoint,
		ToggleTodoEndpoint: toggleTodoEndpoint,
		DeleteTodoEndpoint: deleteTodoEndpoint,
	}
}

// The Set methods ignore a: the caller is identified by the token carried
// in ctx.

func (s Set) Todos(ctx context.Context, a todosvc.Auth) ([]todosvc.Todo, error) {
	resp, err := s.TodosEndpoint(ctx, TodosRequest{})
	if err != nil {
		return nil, err
	}
	response := resp.(TodosResponse)
	return response.Todos, response.Err
}

func (s Set) AddTodo(ctx context.Context, a todosvc.Auth, text string) (todosvc.Todo, error) {
	resp, err := s.AddTodoEndpoint(ctx, AddTodoRequest{Text: text})
	if err != nil {
		return todosvc.Todo{}, err
	}
	response := resp.(AddTodoResponse)
	return response.Todo, response.Err
}

func (s Set) ToggleTodo(ctx context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error) {
	resp, err := s.ToggleTodoEndpoint(ctx, ToggleTodoRequest{TodoID: todoID})
	if err != nil {
		return todosvc.Todo{}, err
	}
	response := resp.(ToggleTodoResponse)
	return response.Todo, response.Err
}

func (s Set) DeleteTodo(ctx context.Context, a todosvc.Auth, todoID string) (bool, error) {
	resp, err := s.DeleteTodoEndpoint(ctx, DeleteTodoRequest{TodoID: todoID})
	if err != nil {
		return false, err
	}
	response := resp.(DeleteTodoResponse)
	return response.Result, response.Err
}

func MakeTodosEndpoint(s todoservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return TodosResponse{Err: err}, nil
		}

		_ = request.(TodosRequest)
		t, err := s.Todos(ctx, auth)
		return TodosResponse{Todos: t, Err: err}, nil
	}
}

func MakeAddTodoEndpoint(s todoservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return AddTodoResponse{Err: err}, nil
		}

		req := request.(AddTodoRequest)
		t, err := s.AddTodo(ctx, auth, req.Text)
		return AddTodoResponse{Todo: t, Err: err}, nil
	}
}

func MakeToggleTodoEndpoint(s todoservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return ToggleTodoResponse{Err: err}, nil
		}

		req := request.(ToggleTodoRequest)
		t, err := s.ToggleTodo(ctx, auth, req.TodoID)
		return ToggleTodoResponse{Todo: t, Err: err}, nil
	}
}

func MakeDeleteTodoEndpoint(s todoservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return DeleteTodoResponse{Err: err}, nil
		}

		req := request.(DeleteTodoRequest)
		r, err := s.DeleteTodo(ctx, auth, req.TodoID)
		return DeleteTodoResponse{Result: r, Err: err}, nil
	}
}

func claims(ctx context.Context) (todosvc.Auth, error) {
	claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
	if !ok {
		return todosvc.Auth{}, todosvc.ErrClaimsMissing
	}

	uuid, ok := claims["uuid"].(string)
	if !ok {
		return todosvc.Auth{}, todosvc.ErrClaimsMissing
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return todosvc.Auth{}, todosvc.ErrClaimsMissing
	}

	return todosvc.Auth{AccessUUID: uuid, UserID: userID}, nil
}

var (
	_ endpoint.Failer = TodosResponse{}
	_ endpoint.Failer = AddTodoResponse{}
	_ endpoint.Failer = ToggleTodoResponse{}
	_ endpoint.Failer = DeleteTodoResponse{}

	_ todoservice.Service = Set{}
)

type TodosRequest struct{}

type TodosResponse struct {
	Todos []todosvc.Todo `json:"todos"`
	Err   error          `json:"-"`
}

func (r TodosResponse) Failed() error { return r.Err }

type AddTodoRequest struct {
	Text string `json:"text"`
}

type AddTodoResponse struct {
	Todo todosvc.Todo `json:"todo"`
	Err  error        `json:"-"`
}

func (r AddTodoResponse) Failed() error { return r.Err }

type ToggleTodoRequest struct {
	TodoID string `json:"-"`
}

type ToggleTodoResponse struct {
	Todo todosvc.Todo `json:"todo"`
	Err  error        `json:"-"`
}

func (r ToggleTodoResponse) Failed() error { return r.Err }

type DeleteTodoRequest struct {
	TodoID string `json:"-"`
}

type DeleteTodoResponse struct {
	Result bool  `json:"result"`
	Err    error `json:"-"`
}

func (r DeleteTodoResponse) Failed() error { return r.Err }
