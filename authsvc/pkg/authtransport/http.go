package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewHTTPHandler(endpoints authendpoint.Set, client inmem.Client, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	codec := newCookieCodec()

	accessKF := func(token *stdjwt.Token) (interface{}, error) {
		return []byte(authsvc.AccessSecret), nil
	}
	refreshKF := func(token *stdjwt.Token) (interface{}, error) {
		return []byte(authsvc.RefreshSecret), nil
	}

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPSessionResponse(codec),
		options...,
	)

	signupHandler := httptransport.NewServer(
		endpoints.SignupEndpoint,
		decodeHTTPSignupRequest,
		encodeHTTPSessionResponse(codec),
		options...,
	)

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = endpoints.LogoutEndpoint
		logoutEndpoint = NewAuthenticater(client)(logoutEndpoint)
		logoutEndpoint = kitjwt.NewParser(
			accessKF,
			stdjwt.SigningMethodHS256,
			kitjwt.MapClaimsFactory,
		)(logoutEndpoint)
	}

	logoutHandler := httptransport.NewServer(
		logoutEndpoint,
		decodeHTTPLogoutRequest,
		encodeHTTPLogoutResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext(), cookieToContext(codec)))...,
	)

	var currentUserEndpoint endpoint.Endpoint
	{
		currentUserEndpoint = endpoints.CurrentUserEndpoint
		currentUserEndpoint = NewAuthenticater(client)(currentUserEndpoint)
		currentUserEndpoint = kitjwt.NewParser(
			accessKF,
			stdjwt.SigningMethodHS256,
			kitjwt.MapClaimsFactory,
		)(currentUserEndpoint)
	}

	currentUserHandler := httptransport.NewServer(
		currentUserEndpoint,
		decodeHTTPCurrentUserRequest,
		encodeHTTPGenericResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext(), cookieToContext(codec)))...,
	)

	var refreshEndpoint endpoint.Endpoint
	{
		refreshEndpoint = endpoints.RefreshEndpoint
		refreshEndpoint = kitjwt.NewParser(
			refreshKF,
			stdjwt.SigningMethodHS256,
			kitjwt.MapClaimsFactory,
		)(refreshEndpoint)
	}

	refreshHandler := httptransport.NewServer(
		refreshEndpoint,
		decodeHTTPRefreshRequest,
		encodeHTTPSessionResponse(codec),
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))...,
	)

	validateHandler := httptransport.NewServer(
		endpoints.ValidateEndpoint,
		decodeHTTPValidateRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/login").Handler(loginHandler)
	r.Methods("POST").Path("/signup").Handler(signupHandler)
	r.Methods("POST").Path("/logout").Handler(logoutHandler)
	r.Methods("GET").Path("/me").Handler(currentUserHandler)
	r.Methods("POST").Path("/refresh").Handler(refreshHandler)
	r.Methods("POST").Path("/validate").Handler(validateHandler)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	return r
}

func NewHTTPClient(instance string, logger log.Logger) (authendpoint.Set, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return authendpoint.Set{}, err
	}

	var options []httptransport.ClientOption

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
	}

	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/signup"),
			encodeHTTPGenericRequest,
			decodeHTTPSignupResponse,
			options...,
		).Endpoint()
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/logout"),
			encodeHTTPGenericRequest,
			decodeHTTPLogoutResponse,
			append(options, httptransport.ClientBefore(kitjwt.ContextToHTTP()))...,
		).Endpoint()
	}

	var currentUserEndpoint endpoint.Endpoint
	{
		currentUserEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/me"),
			encodeHTTPEmptyRequest,
			decodeHTTPCurrentUserResponse,
			append(options, httptransport.ClientBefore(kitjwt.ContextToHTTP()))...,
		).Endpoint()
	}

	var refreshEndpoint endpoint.Endpoint
	{
		refreshEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/refresh"),
			encodeHTTPGenericRequest,
			decodeHTTPRefreshResponse,
			append(options, httptransport.ClientBefore(kitjwt.ContextToHTTP()))...,
		).Endpoint()
	}

	var validateEndpoint endpoint.Endpoint
	{
		validateEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/validate"),
			encodeHTTPGenericRequest,
			decodeHTTPValidateResponse,
			options...,
		).Endpoint()
	}

	return authendpoint.Set{
		LoginEndpoint:       loginEndpoint,
		SignupEndpoint:      signupEndpoint,
		LogoutEndpoint:      logoutEndpoint,
		CurrentUserEndpoint: currentUserEndpoint,
		RefreshEndpoint:     refreshEndpoint,
		ValidateEndpoint:    validateEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

func err2code(err error) int {
	switch err {
	case authsvc.ErrInvalidArgument, authsvc.ErrInvalidEmail:
		return http.StatusBadRequest
	case authsvc.ErrInvalidCredentials,
		authsvc.ErrSessionNotFound,
		authsvc.ErrClaimsMissing,
		authsvc.ErrClaimsInvalid,
		authsvc.ErrUUIDMissing,
		inmem.ErrKeyNotFound,
		kitjwt.ErrTokenContextMissing,
		kitjwt.ErrTokenExpired,
		kitjwt.ErrTokenInvalid,
		kitjwt.ErrTokenMalformed,
		kitjwt.ErrTokenNotActive,
		kitjwt.ErrUnexpectedSigningMethod:
		return http.StatusUnauthorized
	case authsvc.ErrUserNotFound:
		return http.StatusNotFound
	case authsvc.ErrEmailExists:
		return http.StatusConflict
	case authsvc.ErrSimulatedFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorWrapper struct {
	Error string `json:"error"`
}

var knownErrors = []error{
	authsvc.ErrInvalidArgument,
	authsvc.ErrInvalidCredentials,
	authsvc.ErrSimulatedFailure,
	authsvc.ErrInvalidEmail,
	authsvc.ErrEmailExists,
	authsvc.ErrUserNotFound,
	authsvc.ErrSessionNotFound,
	authsvc.ErrClaimsMissing,
	authsvc.ErrClaimsInvalid,
	authsvc.ErrUUIDMissing,
	kitjwt.ErrTokenContextMissing,
	kitjwt.ErrTokenExpired,
	kitjwt.ErrTokenInvalid,
	kitjwt.ErrTokenMalformed,
	kitjwt.ErrTokenNotActive,
	kitjwt.ErrUnexpectedSigningMethod,
}

// str2err turns an error message received over the wire back into the
// sentinel it was encoded from, so callers can keep using errors.Is.
func str2err(s string) error {
	for _, err := range knownErrors {
		if err.Error() == s {
			return err
		}
	}
	return errors.New(s)
}

// decodeFailure reads the error body of a non-200 response. Client errors
// are returned as failed, to be carried inside the endpoint response; any
// other status is a transport error.
func decodeFailure(r *http.Response) (failed error, err error) {
	var e errorWrapper
	if json.NewDecoder(r.Body).Decode(&e) != nil || e.Error == "" {
		e.Error = r.Status
	}

	if r.StatusCode >= 400 && r.StatusCode < 500 {
		return str2err(e.Error), nil
	}
	return nil, str2err(e.Error)
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return authendpoint.LoginResponse{Err: failed}, err
	}
	var resp authendpoint.LoginResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPSignupRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPSignupResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return authendpoint.SignupResponse{Err: failed}, err
	}
	var resp authendpoint.SignupResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPLogoutRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return authendpoint.LogoutRequest{}, nil
}

func decodeHTTPLogoutResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return authendpoint.LogoutResponse{Err: failed}, err
	}
	var resp authendpoint.LogoutResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPCurrentUserRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return authendpoint.CurrentUserRequest{}, nil
}

func decodeHTTPCurrentUserResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return authendpoint.CurrentUserResponse{Err: failed}, err
	}
	var resp authendpoint.CurrentUserResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPRefreshRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return authendpoint.RefreshRequest{}, nil
}

func decodeHTTPRefreshResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return authendpoint.RefreshResponse{Err: failed}, err
	}
	var resp authendpoint.RefreshResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPValidateRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPValidateResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return authendpoint.ValidateResponse{Err: failed}, err
	}
	var resp authendpoint.ValidateResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

func encodeHTTPEmptyRequest(_ context.Context, _ *http.Request, _ interface{}) error {
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encodeHTTPSessionResponse stores the fresh access token in the session
// cookie before writing the response.
func encodeHTTPSessionResponse(codec *securecookie.SecureCookie) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
			errorEncoder(ctx, f.Failed(), w)
			return nil
		}

		var tokens map[string]string
		switch resp := response.(type) {
		case authendpoint.LoginResponse:
			tokens = resp.Tokens
		case authendpoint.SignupResponse:
			tokens = resp.Tokens
		case authendpoint.RefreshResponse:
			tokens = resp.Tokens
		}

		if access := tokens["access"]; access != "" {
			if err := setSessionCookie(w, codec, access); err != nil {
				return err
			}
		}

		return encodeHTTPGenericResponse(ctx, w, response)
	}
}

func encodeHTTPLogoutResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	clearSessionCookie(w)
	return encodeHTTPGenericResponse(ctx, w, response)
}
