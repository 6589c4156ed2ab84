package client

import (
	"context"
	"net/http/httptest"
	"testing"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/go-kit/kit/sd/lb"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/db/gorm"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoendpoint"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todotransport"
)

func TestRetryOutlastsSimulatedLatency(t *testing.T) {
	logger := log.NewNopLogger()

	db, err := gorm.Open(gorm.MemoryDSN(t.Name()))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := gorm.Seed(db, todosvc.DemoTodos(authsvc.DemoUserID)...); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	validate := func(_ context.Context, _ interface{}) (interface{}, error) {
		return authendpoint.ValidateResponse{V: true}, nil
	}

	var svc todoservice.Service
	{
		svc = todoservice.New(gorm.NewTodoRepository(db), logger)
		svc = todoservice.LatencyMiddleware(todoservice.DefaultDelay)(svc)
		svc = todoservice.ProxingMiddleware(validate)(svc)
	}
	srv := httptest.NewServer(todotransport.NewHTTPHandler(todoendpoint.New(svc, logger), logger))
	defer srv.Close()

	at, _, err := authservice.NewTokenizer().Generate(authsvc.User{ID: authsvc.DemoUserID, Email: authsvc.DemoEmail})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ctx := context.WithValue(context.Background(), kitjwt.JWTContextKey, at.Hash)
	ctx = context.WithValue(ctx, kitjwt.JWTClaimsContextKey, stdjwt.MapClaims{
		"uuid":    at.UUID,
		"user_id": authsvc.DemoUserID,
	})

	todos, _, err := factoryFor(todoendpoint.MakeTodosEndpoint, logger)(srv.URL)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	retry := lb.Retry(3, DefaultRetryTimeout, lb.NewRoundRobin(sd.FixedEndpointer{todos}))

	response, err := retry(ctx, todoendpoint.TodosRequest{})
	if err != nil {
		t.Fatalf("Todos through retry failed: %v", err)
	}

	resp := response.(todoendpoint.TodosResponse)
	if resp.Err != nil {
		t.Fatalf("Todos rejected: %v", resp.Err)
	}
	if len(resp.Todos) != 3 {
		t.Errorf("expected 3 todos, got %d", len(resp.Todos))
	}
}
