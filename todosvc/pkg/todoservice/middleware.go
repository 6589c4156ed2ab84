package todoservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/todosvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Todos(ctx context.Context, a todosvc.Auth) (t []todosvc.Todo, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Todos",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Todos(ctx, a)
}

func (mw loggingMiddleware) AddTodo(ctx context.Context, a todosvc.Auth, text string) (t todosvc.Todo, err error) {
	defer func() {
		mw.logger.Log(
			"method", "AddTodo",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"text", text,
			"todo_id", t.ID,
			"err", err,
		)
	}()
	return mw.next.AddTodo(ctx, a, text)
}

func (mw loggingMiddleware) ToggleTodo(ctx context.Context, a todosvc.Auth, todoID string) (t todosvc.Todo, err error) {
	defer func() {
		mw.logger.Log(
			"method", "ToggleTodo",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"todo_id", todoID,
			"completed", t.Completed,
			"err", err,
		)
	}()
	return mw.next.ToggleTodo(ctx, a, todoID)
}

func (mw loggingMiddleware) DeleteTodo(ctx context.Context, a todosvc.Auth, todoID string) (result bool, err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTodo",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"todo_id", todoID,
			"result", result,
			"err", err,
		)
	}()
	return mw.next.DeleteTodo(ctx, a, todoID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) Todos(ctx context.Context, a todosvc.Auth) ([]todosvc.Todo, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "todos").Add(1)
		mw.requestLatency.With("method", "todos").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Todos(ctx, a)
}

func (mw instrumentingMiddleware) AddTodo(ctx context.Context, a todosvc.Auth, text string) (todosvc.Todo, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "add_todo").Add(1)
		mw.requestLatency.With("method", "add_todo").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.AddTodo(ctx, a, text)
}

func (mw instrumentingMiddleware) ToggleTodo(ctx context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "toggle_todo").Add(1)
		mw.requestLatency.With("method", "toggle_todo").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.ToggleTodo(ctx, a, todoID)
}

func (mw instrumentingMiddleware) DeleteTodo(ctx context.Context, a todosvc.Auth, todoID string) (bool, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "delete_todo").Add(1)
		mw.requestLatency.With("method", "delete_todo").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.DeleteTodo(ctx, a, todoID)
}

// DefaultDelay is the simulated network delay of every todo operation.
const DefaultDelay = 500 * time.Millisecond

func LatencyMiddleware(d time.Duration) Middleware {
	return func(next Service) Service {
		return latencyMiddleware{d, next}
	}
}

type latencyMiddleware struct {
	delay time.Duration
	next  Service
}

func (mw latencyMiddleware) Todos(ctx context.Context, a todosvc.Auth) ([]todosvc.Todo, error) {
	if err := mw.wait(ctx); err != nil {
		return nil, err
	}
	return mw.next.Todos(ctx, a)
}

func (mw latencyMiddleware) AddTodo(ctx context.Context, a todosvc.Auth, text string) (todosvc.Todo, error) {
	if err := mw.wait(ctx); err != nil {
		return todosvc.Todo{}, err
	}
	return mw.next.AddTodo(ctx, a, text)
}

func (mw latencyMiddleware) ToggleTodo(ctx context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error) {
	if err := mw.wait(ctx); err != nil {
		return todosvc.Todo{}, err
	}
	return mw.next.ToggleTodo(ctx, a, todoID)
}

func (mw latencyMiddleware) DeleteTodo(ctx context.Context, a todosvc.Auth, todoID string) (bool, error) {
	if err := mw.wait(ctx); err != nil {
		return false, err
	}
	return mw.next.DeleteTodo(ctx, a, todoID)
}

func (mw latencyMiddleware) wait(ctx context.Context) error {
	if mw.delay <= 0 {
		return nil
	}

	t := time.NewTimer(mw.delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProxingMiddleware checks the caller's session against the auth service
// before every operation.
func ProxingMiddleware(validateUUID endpoint.Endpoint) Middleware {
	return func(next Service) Service {
		return proxingMiddleware{next, validateUUID}
	}
}

type proxingMiddleware struct {
	next         Service
	validateUUID endpoint.Endpoint
}

func (mw proxingMiddleware) Todos(ctx context.Context, a todosvc.Auth) ([]todosvc.Todo, error) {
	if err := mw.validate(ctx, a); err != nil {
		return nil, err
	}
	return mw.next.Todos(ctx, a)
}

func (mw proxingMiddleware) AddTodo(ctx context.Context, a todosvc.Auth, text string) (todosvc.Todo, error) {
	if err := mw.validate(ctx, a); err != nil {
		return todosvc.Todo{}, err
	}
	return mw.next.AddTodo(ctx, a, text)
}

func (mw proxingMiddleware) ToggleTodo(ctx context.Context, a todosvc.Auth, todoID string) (todosvc.Todo, error) {
	if err := mw.validate(ctx, a); err != nil {
		return todosvc.Todo{}, err
	}
	return mw.next.ToggleTodo(ctx, a, todoID)
}

func (mw proxingMiddleware) DeleteTodo(ctx context.Context, a todosvc.Auth, todoID string) (bool, error) {
	if err := mw.validate(ctx, a); err != nil {
		return false, err
	}
	return mw.next.DeleteTodo(ctx, a, todoID)
}

func (mw proxingMiddleware) validate(ctx context.Context, a todosvc.Auth) error {
	response, err := mw.validateUUID(ctx, authendpoint.ValidateRequest{AccessUUID: a.AccessUUID})
	if err != nil {
		return err
	}

	resp := response.(authendpoint.ValidateResponse)
	return resp.Err
}
