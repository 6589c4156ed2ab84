// Package authstore holds the client side session: the signed in user, the
// in-flight flag and the last error message, kept in step with the auth
// service.
package authstore

import (
	"context"
	"errors"
	"sync"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
)

// ErrNotAuthenticated is returned by Authorize when there is no session.
var ErrNotAuthenticated = errors.New("not authenticated")

type State struct {
	User     *authsvc.User
	Loading  bool
	Resolved bool
	Err      string
}

type Store struct {
	mtx    sync.Mutex
	state  State
	svc    authservice.Service
	tokens TokenStore
	logger log.Logger
}

// New returns a store over svc. svc may be an HTTP client Set, which reads
// the session from the token in the context, or an in-process service, which
// gets the identifiers from the token's claims.
func New(svc authservice.Service, tokens TokenStore, logger log.Logger) *Store {
	return &Store{svc: svc, tokens: tokens, logger: logger}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Init resolves the session from the stored token. A token the service no
// longer accepts resolves to no session rather than an error.
func (s *Store) Init(ctx context.Context) (err error) {
	defer func() {
		s.logger.Log("method", "Init", "err", err)
	}()

	s.begin()

	t, err := s.tokens.Load()
	if errors.Is(err, ErrNoToken) {
		s.finish(nil, nil)
		return nil
	}
	if err != nil {
		s.finish(nil, err)
		return err
	}

	user, err := s.currentUser(ctx, t)
	if isRejection(err) {
		s.tokens.Clear()
		s.finish(nil, nil)
		return nil
	}
	if err != nil {
		s.finish(nil, err)
		return err
	}

	s.finish(&user, nil)
	return nil
}

func (s *Store) Login(ctx context.Context, email, password string) (err error) {
	defer func() {
		s.logger.Log("method", "Login", "email", email, "err", err)
	}()

	s.begin()
	session, err := s.svc.Login(ctx, email, password)
	return s.establish(session, err)
}

func (s *Store) Signup(ctx context.Context, email, password string) (err error) {
	defer func() {
		s.logger.Log("method", "Signup", "email", email, "err", err)
	}()

	s.begin()
	session, err := s.svc.Signup(ctx, email, password)
	return s.establish(session, err)
}

// Logout ends the session. The local session is cleared even when the
// service call fails; the failure is still recorded.
func (s *Store) Logout(ctx context.Context) (err error) {
	defer func() {
		s.logger.Log("method", "Logout", "err", err)
	}()

	s.begin()

	if t, lerr := s.tokens.Load(); lerr == nil {
		_, err = s.svc.Logout(withToken(ctx, t.Access), claim(t.Access, "uuid"))
	}
	if cerr := s.tokens.Clear(); err == nil {
		err = cerr
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.User = nil
	s.state.Loading = false
	s.state.Resolved = true
	if err != nil {
		s.state.Err = err.Error()
	}
	return err
}

func (s *Store) ClearError() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Err = ""
}

// Authorize returns ctx carrying the access token of the current session.
func (s *Store) Authorize(ctx context.Context) (context.Context, error) {
	t, err := s.tokens.Load()
	if errors.Is(err, ErrNoToken) {
		return ctx, ErrNotAuthenticated
	}
	if err != nil {
		return ctx, err
	}
	return withToken(ctx, t.Access), nil
}

func (s *Store) begin() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Err = ""
	s.state.Loading = true
}

func (s *Store) finish(user *authsvc.User, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.User = user
	s.state.Loading = false
	s.state.Resolved = true
	if err != nil {
		s.state.Err = err.Error()
	}
}

// establish replaces the current session with the outcome of a login or
// signup. A rejection leaves no session behind, not even an earlier one.
func (s *Store) establish(session authsvc.Session, err error) error {
	if err == nil {
		err = s.tokens.Save(Token{
			Access:  session.Tokens["access"],
			Refresh: session.Tokens["refresh"],
		})
	}
	if err != nil {
		s.tokens.Clear()
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state.Loading = false
	s.state.Resolved = true
	if err != nil {
		s.state.User = nil
		s.state.Err = err.Error()
		return err
	}

	user := session.User
	s.state.User = &user
	return nil
}

// currentUser asks for the user behind t, refreshing the token pair once
// if the access token has expired.
func (s *Store) currentUser(ctx context.Context, t Token) (authsvc.User, error) {
	user, err := s.svc.CurrentUser(withToken(ctx, t.Access), claim(t.Access, "user_id"))
	if !errors.Is(err, kitjwt.ErrTokenExpired) || t.Refresh == "" {
		return user, err
	}

	tokens, err := s.svc.Refresh(
		withToken(ctx, t.Refresh),
		claim(t.Refresh, "access_uuid"),
		claim(t.Refresh, "refresh_uuid"),
		claim(t.Refresh, "user_id"),
	)
	if err != nil {
		return authsvc.User{}, err
	}

	t = Token{Access: tokens["access"], Refresh: tokens["refresh"]}
	if err := s.tokens.Save(t); err != nil {
		return authsvc.User{}, err
	}

	return s.svc.CurrentUser(withToken(ctx, t.Access), claim(t.Access, "user_id"))
}

// claim reads one string claim of a token without verifying it. The
// service verifies the token itself; the values only fill the arguments an
// in-process service needs.
func claim(token, name string) string {
	claims := stdjwt.MapClaims{}
	if _, _, err := new(stdjwt.Parser).ParseUnverified(token, claims); err != nil {
		return ""
	}
	v, _ := claims[name].(string)
	return v
}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, kitjwt.JWTContextKey, token)
}

// isRejection reports whether err means the service refused the token, as
// opposed to failing to answer.
func isRejection(err error) bool {
	for _, target := range []error{
		authsvc.ErrSessionNotFound,
		authsvc.ErrUserNotFound,
		authsvc.ErrClaimsMissing,
		authsvc.ErrClaimsInvalid,
		authsvc.ErrUUIDMissing,
		kitjwt.ErrTokenExpired,
		kitjwt.ErrTokenInvalid,
		kitjwt.ErrTokenMalformed,
		kitjwt.ErrTokenNotActive,
		kitjwt.ErrUnexpectedSigningMethod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
