package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/go-kit/kit/sd/lb"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/db/gorm"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authtransport"
)

func TestRetryOutlastsSimulatedLatency(t *testing.T) {
	logger := log.NewNopLogger()

	db, err := gorm.Open(gorm.MemoryDSN(t.Name()))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := gorm.SeedDemo(db); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	kv := inmem.NewLocalClient()
	var svc authservice.Service
	{
		svc = authservice.New(authservice.NewTokenizer(), gorm.NewUserRepository(db), kv, logger)
		svc = authservice.LatencyMiddleware(authservice.DefaultDelays())(svc)
	}
	srv := httptest.NewServer(authtransport.NewHTTPHandler(authendpoint.New(svc, logger), kv, logger))
	defer srv.Close()

	login, _, err := factoryFor(authendpoint.MakeLoginEndpoint, logger)(srv.URL)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	retry := lb.Retry(3, DefaultRetryTimeout, lb.NewRoundRobin(sd.FixedEndpointer{login}))

	response, err := retry(context.Background(), authendpoint.LoginRequest{
		Email:    authsvc.DemoEmail,
		Password: authsvc.DemoPassword,
	})
	if err != nil {
		t.Fatalf("login through retry failed: %v", err)
	}

	resp := response.(authendpoint.LoginResponse)
	if resp.Err != nil {
		t.Fatalf("login rejected: %v", resp.Err)
	}
	if resp.User.ID != authsvc.DemoUserID || resp.Tokens["access"] == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
