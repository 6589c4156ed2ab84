package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/db/gorm"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(gorm.MemoryDSN(t.Name()))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := gorm.SeedDemo(db); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	logger := log.NewNopLogger()
	kv := inmem.NewLocalClient()
	svc := authservice.New(authservice.NewTokenizer(), gorm.NewUserRepository(db), kv, logger)
	endpoints := authendpoint.New(svc, logger)

	srv := httptest.NewServer(NewHTTPHandler(endpoints, kv, logger))
	t.Cleanup(srv.Close)

	return srv
}

func TestHTTPClientRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	s, err := client.Login(context.Background(), authsvc.DemoEmail, authsvc.DemoPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if s.User.Email != authsvc.DemoEmail {
		t.Errorf("email mismatch: got %s", s.User.Email)
	}

	ctx := context.WithValue(context.Background(), kitjwt.JWTContextKey, s.Tokens["access"])

	u, err := client.CurrentUser(ctx, "")
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if u.ID != authsvc.DemoUserID {
		t.Errorf("user ID mismatch: got %s", u.ID)
	}

	ok, err := client.Logout(ctx, "")
	if err != nil || !ok {
		t.Fatalf("Logout failed: %v, %v", ok, err)
	}

	if _, err := client.CurrentUser(ctx, ""); !errors.Is(err, authsvc.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestHTTPClientErrors(t *testing.T) {
	srv := newTestServer(t)

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	ctx := context.Background()

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := client.Login(ctx, authsvc.DemoEmail, "wrong")
		if !errors.Is(err, authsvc.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("simulated failure", func(t *testing.T) {
		_, err := client.Login(ctx, authsvc.FailingEmail, "x")
		if !errors.Is(err, authsvc.ErrSimulatedFailure) {
			t.Fatalf("expected ErrSimulatedFailure, got %v", err)
		}
	})

	t.Run("invalid signup email", func(t *testing.T) {
		_, err := client.Signup(ctx, "nobody", "x")
		if !errors.Is(err, authsvc.ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail, got %v", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := client.CurrentUser(ctx, "")
		if !errors.Is(err, kitjwt.ErrTokenContextMissing) {
			t.Fatalf("expected ErrTokenContextMissing, got %v", err)
		}
	})

	t.Run("refresh rotates tokens", func(t *testing.T) {
		s, err := client.Login(ctx, authsvc.DemoEmail, authsvc.DemoPassword)
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		refreshCtx := context.WithValue(ctx, kitjwt.JWTContextKey, s.Tokens["refresh"])
		tokens, err := client.Refresh(refreshCtx, "", "", "")
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if tokens["access"] == "" || tokens["access"] == s.Tokens["access"] {
			t.Errorf("expected a new access token, got %q", tokens["access"])
		}

		oldCtx := context.WithValue(ctx, kitjwt.JWTContextKey, s.Tokens["access"])
		if _, err := client.CurrentUser(oldCtx, ""); !errors.Is(err, authsvc.ErrSessionNotFound) {
			t.Errorf("old access token should be revoked, got %v", err)
		}
	})
}

func TestSessionCookie(t *testing.T) {
	srv := newTestServer(t)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	c := &http.Client{Jar: jar}

	body, _ := json.Marshal(authendpoint.LoginRequest{Email: authsvc.DemoEmail, Password: authsvc.DemoPassword})
	resp, err := c.Post(srv.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d", resp.StatusCode)
	}

	resp, err = c.Get(srv.URL + "/me")
	if err != nil {
		t.Fatalf("me request failed: %v", err)
	}
	var me authendpoint.CurrentUserResponse
	json.NewDecoder(resp.Body).Decode(&me)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || me.User.Email != authsvc.DemoEmail {
		t.Fatalf("expected the cookie to authenticate, got %d %+v", resp.StatusCode, me.User)
	}

	resp, err = c.Post(srv.URL+"/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("logout request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status: got %d", resp.StatusCode)
	}

	resp, err = c.Get(srv.URL + "/me")
	if err != nil {
		t.Fatalf("me request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestErr2Code(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{authsvc.ErrInvalidArgument, http.StatusBadRequest},
		{authsvc.ErrInvalidCredentials, http.StatusUnauthorized},
		{kitjwt.ErrTokenExpired, http.StatusUnauthorized},
		{authsvc.ErrUserNotFound, http.StatusNotFound},
		{authsvc.ErrEmailExists, http.StatusConflict},
		{authsvc.ErrSimulatedFailure, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := err2code(tt.err); got != tt.code {
			t.Errorf("err2code(%v): got %d, want %d", tt.err, got, tt.code)
		}
	}

	if got := str2err(authsvc.ErrEmailExists.Error()); got != authsvc.ErrEmailExists {
		t.Errorf("str2err did not restore the sentinel: %v", got)
	}
}
