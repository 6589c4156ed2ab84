package authendpoint

import (
	"context"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
)

type Set struct {
	LoginEndpoint       endpoint.Endpoint
	SignupEndpoint      endpoint.Endpoint
	LogoutEndpoint      endpoint.Endpoint
	CurrentUserEndpoint endpoint.Endpoint
	RefreshEndpoint     endpoint.Endpoint
	ValidateEndpoint    endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = MakeSignupEndpoint(svc)
		signupEndpoint = LoggingMiddleware(log.With(logger, "method", "Signup"))(signupEndpoint)
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = MakeLogoutEndpoint(svc)
		logoutEndpoint = LoggingMiddleware(log.With(logger, "method", "Logout"))(logoutEndpoint)
	}

	var currentUserEndpoint endpoint.Endpoint
	{
		currentUserEndpoint = MakeCurrentUserEndpoint(svc)
		currentUserEndpoint = LoggingMiddleware(log.With(logger, "method", "CurrentUser"))(currentUserEndpoint)
	}

	var refreshEndpoint endpoint.Endpoint
	{
		refreshEndpoint = MakeRefreshEndpoint(svc)
		refreshEndpoint = LoggingMiddleware(log.With(logger, "method", "Refresh"))(refreshEndpoint)
	}

	var validateEndpoint endpoint.Endpoint
	{
		validateEndpoint = MakeValidateEndpoint(svc)
		validateEndpoint = LoggingMiddleware(log.With(logger, "method", "Validate"))(validateEndpoint)
	}

	return Set{
		LoginEndpoint:       loginEndpoint,
		SignupEndpoint:      signupEndpoint,
		LogoutEndpoint:      logoutEndpoint,
		CurrentUserEndpoint: currentUserEndpoint,
		RefreshEndpoint:     refreshEndpoint,
		ValidateEndpoint:    validateEndpoint,
	}
}

func (s Set) Login(ctx context.Context, email, password string) (authsvc.Session, error) {
	response, err := s.LoginEndpoint(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(LoginResponse)
	return authsvc.Session{User: resp.User, Tokens: resp.Tokens}, resp.Err
}

func (s Set) Signup(ctx context.Context, email, password string) (authsvc.Session, error) {
	response, err := s.SignupEndpoint(ctx, SignupRequest{Email: email, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(SignupResponse)
	return authsvc.Session{User: resp.User, Tokens: resp.Tokens}, resp.Err
}

// Logout, CurrentUser and Refresh take their identifiers from the token in
// the context; the arguments only exist to satisfy authservice.Service.
func (s Set) Logout(ctx context.Context, accessUUID string) (bool, error) {
	response, err := s.LogoutEndpoint(ctx, LogoutRequest{})
	if err != nil {
		return false, err
	}

	resp := response.(LogoutResponse)
	return resp.Success, resp.Err
}

func (s Set) CurrentUser(ctx context.Context, userID string) (authsvc.User, error) {
	response, err := s.CurrentUserEndpoint(ctx, CurrentUserRequest{})
	if err != nil {
		return authsvc.User{}, err
	}

	resp := response.(CurrentUserResponse)
	return resp.User, resp.Err
}

func (s Set) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error) {
	response, err := s.RefreshEndpoint(ctx, RefreshRequest{})
	if err != nil {
		return nil, err
	}

	resp := response.(RefreshResponse)
	return resp.Tokens, resp.Err
}

func (s Set) Validate(ctx context.Context, accessUUID string) (bool, error) {
	response, err := s.ValidateEndpoint(ctx, ValidateRequest{AccessUUID: accessUUID})
	if err != nil {
		return false, err
	}

	resp := response.(ValidateResponse)
	return resp.V, resp.Err
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(LoginRequest)
		session, err := s.Login(ctx, req.Email, req.Password)

		return LoginResponse{User: session.User, Tokens: session.Tokens, Err: err}, nil
	}
}

func MakeSignupEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(SignupRequest)
		session, err := s.Signup(ctx, req.Email, req.Password)

		return SignupResponse{User: session.User, Tokens: session.Tokens, Err: err}, nil
	}
}

func MakeLogoutEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		uuid, ok := ctx.Value(authsvc.JWTUUIDContextKey).(string)
		if !ok {
			claims, err := mapClaims(ctx)
			if err != nil {
				return LogoutResponse{Err: err}, nil
			}

			uuid, ok = claims["uuid"].(string)
			if !ok {
				return LogoutResponse{Err: authsvc.ErrClaimsInvalid}, nil
			}
		}

		_ = request.(LogoutRequest)
		v, err := s.Logout(ctx, uuid)

		return LogoutResponse{Success: v, Err: err}, nil
	}
}

func MakeCurrentUserEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		claims, err := mapClaims(ctx)
		if err != nil {
			return CurrentUserResponse{Err: err}, nil
		}

		userID, ok := claims["user_id"].(string)
		if !ok {
			return CurrentUserResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		_ = request.(CurrentUserRequest)
		u, err := s.CurrentUser(ctx, userID)

		return CurrentUserResponse{User: u, Err: err}, nil
	}
}

func MakeRefreshEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		claims, err := mapClaims(ctx)
		if err != nil {
			return RefreshResponse{Err: err}, nil
		}

		accessUUID, ok := claims["access_uuid"].(string)
		if !ok {
			return RefreshResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		refreshUUID, ok := claims["refresh_uuid"].(string)
		if !ok {
			return RefreshResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		userID, ok := claims["user_id"].(string)
		if !ok {
			return RefreshResponse{Err: authsvc.ErrClaimsInvalid}, nil
		}

		_ = request.(RefreshRequest)
		t, err := s.Refresh(ctx, accessUUID, refreshUUID, userID)

		return RefreshResponse{Tokens: t, Err: err}, nil
	}
}

func MakeValidateEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(ValidateRequest)
		v, err := s.Validate(ctx, req.AccessUUID)

		return ValidateResponse{V: v, Err: err}, nil
	}
}

func mapClaims(ctx context.Context) (stdjwt.MapClaims, error) {
	claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
	if !ok {
		return nil, authsvc.ErrClaimsMissing
	}
	return claims, nil
}

var (
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = SignupResponse{}
	_ endpoint.Failer = LogoutResponse{}
	_ endpoint.Failer = CurrentUserResponse{}
	_ endpoint.Failer = RefreshResponse{}
	_ endpoint.Failer = ValidateResponse{}

	_ authservice.Service = Set{}
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User   authsvc.User      `json:"user"`
	Tokens map[string]string `json:"tokens"`
	Err    error             `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	User   authsvc.User      `json:"user"`
	Tokens map[string]string `json:"tokens"`
	Err    error             `json:"-"`
}

func (r SignupResponse) Failed() error { return r.Err }

type LogoutRequest struct{}

type LogoutResponse struct {
	Success bool  `json:"success"`
	Err     error `json:"-"`
}

func (r LogoutResponse) Failed() error { return r.Err }

type CurrentUserRequest struct{}

type CurrentUserResponse struct {
	User authsvc.User `json:"user"`
	Err  error        `json:"-"`
}

func (r CurrentUserResponse) Failed() error { return r.Err }

type RefreshRequest struct{}

type RefreshResponse struct {
	Tokens map[string]string `json:"tokens"`
	Err    error             `json:"-"`
}

func (r RefreshResponse) Failed() error { return r.Err }

type ValidateRequest struct {
	AccessUUID string `json:"access_uuid"`
}

type ValidateResponse struct {
	V   bool  `json:"v"`
	Err error `json:"-"`
}

func (r ValidateResponse) Failed() error { return r.Err }
