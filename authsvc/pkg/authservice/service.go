package authservice

import (
	"context"
	"errors"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Login(ctx context.Context, email, password string) (authsvc.Session, error)
	Signup(ctx context.Context, email, password string) (authsvc.Session, error)
	Logout(ctx context.Context, accessUUID string) (bool, error)
	CurrentUser(ctx context.Context, userID string) (authsvc.User, error)
	Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error)
	Validate(ctx context.Context, accessUUID string) (bool, error)
}

func New(t Tokenizer, users authsvc.UserRepository, c inmem.Client, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t, users, c)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tokenizer Tokenizer
	users     authsvc.UserRepository
	client    inmem.Client
}

func NewBasicService(t Tokenizer, users authsvc.UserRepository, c inmem.Client) Service {
	return &basicService{tokenizer: t, users: users, client: c}
}

func (s *basicService) Login(_ context.Context, email, password string) (authsvc.Session, error) {
	if email == "" || password == "" {
		return authsvc.Session{}, authsvc.ErrInvalidArgument
	}

	if email == authsvc.FailingEmail {
		return authsvc.Session{}, authsvc.ErrSimulatedFailure
	}

	user, err := s.users.ByEmail(email)
	if errors.Is(err, authsvc.ErrUserNotFound) {
		return authsvc.Session{}, authsvc.ErrInvalidCredentials
	}
	if err != nil {
		return authsvc.Session{}, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return authsvc.Session{}, authsvc.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *basicService) Signup(_ context.Context, email, password string) (authsvc.Session, error) {
	if !strings.Contains(email, "@") {
		return authsvc.Session{}, authsvc.ErrInvalidEmail
	}
	if password == "" {
		return authsvc.Session{}, authsvc.ErrInvalidArgument
	}

	_, err := s.users.ByEmail(email)
	if err == nil {
		return authsvc.Session{}, authsvc.ErrEmailExists
	}
	if !errors.Is(err, authsvc.ErrUserNotFound) {
		return authsvc.Session{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return authsvc.Session{}, err
	}

	user, err := s.users.Create(email, hash)
	if err != nil {
		return authsvc.Session{}, err
	}

	return s.issue(user)
}

func (s *basicService) Logout(_ context.Context, accessUUID string) (bool, error) {
	if accessUUID == "" {
		return false, authsvc.ErrInvalidArgument
	}

	if err := s.revoke(accessUUID, RefreshUUID(accessUUID)); err != nil {
		return false, err
	}

	return true, nil
}

func (s *basicService) CurrentUser(_ context.Context, userID string) (authsvc.User, error) {
	if userID == "" {
		return authsvc.User{}, authsvc.ErrInvalidArgument
	}
	return s.users.ByID(userID)
}

func (s *basicService) Refresh(_ context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error) {
	if accessUUID == "" || refreshUUID == "" || userID == "" {
		return nil, authsvc.ErrInvalidArgument
	}

	if _, err := s.client.Get(refreshUUID); err != nil {
		return nil, sessionErr(err)
	}

	user, err := s.users.ByID(userID)
	if err != nil {
		return nil, err
	}

	if err := s.revoke(accessUUID, refreshUUID); err != nil {
		return nil, err
	}

	at, rt, err := s.tokenizer.Generate(user)
	if err != nil {
		return nil, err
	}

	if err := s.storeTokens(user, at, rt); err != nil {
		return nil, err
	}

	return s.compileTokens(at, rt), nil
}

func (s *basicService) Validate(_ context.Context, accessUUID string) (bool, error) {
	if accessUUID == "" {
		return false, authsvc.ErrInvalidArgument
	}

	if _, err := s.client.Get(accessUUID); err != nil {
		return false, sessionErr(err)
	}

	return true, nil
}

func (s *basicService) issue(user authsvc.User) (authsvc.Session, error) {
	at, rt, err := s.tokenizer.Generate(user)
	if err != nil {
		return authsvc.Session{}, err
	}

	if err := s.storeTokens(user, at, rt); err != nil {
		return authsvc.Session{}, err
	}

	return authsvc.Session{User: user, Tokens: s.compileTokens(at, rt)}, nil
}

func (s *basicService) revoke(accessUUID, refreshUUID string) error {
	if err := s.client.Delete(accessUUID); err != nil {
		return err
	}
	return s.client.Delete(refreshUUID)
}

func (s *basicService) storeTokens(user authsvc.User, at *AccessToken, rt *RefreshToken) error {
	if err := s.client.Put(at.UUID, []byte(user.ID)); err != nil {
		return err
	}
	return s.client.Put(rt.RefreshUUID, []byte(user.ID))
}

func (s *basicService) compileTokens(at *AccessToken, rt *RefreshToken) map[string]string {
	return map[string]string{
		"access":  at.Hash,
		"refresh": rt.Hash,
	}
}

func sessionErr(err error) error {
	if errors.Is(err, inmem.ErrKeyNotFound) {
		return authsvc.ErrSessionNotFound
	}
	return err
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
