package todotransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authtransport"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoendpoint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

func NewHTTPHandler(endpoints todoendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext(), authtransport.CookieToContext()),
	}

	kf := func(token *stdjwt.Token) (interface{}, error) {
		return []byte(authsvc.AccessSecret), nil
	}
	parser := kitjwt.NewParser(kf, stdjwt.SigningMethodHS256, kitjwt.MapClaimsFactory)

	todosHandler := httptransport.NewServer(
		parser(endpoints.TodosEndpoint),
		decodeHTTPTodosRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	addTodoHandler := httptransport.NewServer(
		parser(endpoints.AddTodoEndpoint),
		decodeHTTPAddTodoRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	toggleTodoHandler := httptransport.NewServer(
		parser(endpoints.ToggleTodoEndpoint),
		decodeHTTPToggleTodoRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTodoHandler := httptransport.NewServer(
		parser(endpoints.DeleteTodoEndpoint),
		decodeHTTPDeleteTodoRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("GET").Path("/todos").Handler(todosHandler)
	r.Methods("POST").Path("/todos").Handler(addTodoHandler)
	r.Methods("POST").Path("/todos/{todo_id}/toggle").Handler(toggleTodoHandler)
	r.Methods("DELETE").Path("/todos/{todo_id}").Handler(deleteTodoHandler)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	return r
}

func NewHTTPClient(instance string, logger log.Logger) (todoendpoint.Set, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return todoendpoint.Set{}, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(10*time.Millisecond), 100))

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(kitjwt.ContextToHTTP()),
	}

	breaker := func(name string) endpoint.Middleware {
		return circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
		}))
	}

	var todosEndpoint endpoint.Endpoint
	{
		todosEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/todos"),
			encodeHTTPEmptyRequest,
			decodeHTTPTodosResponse,
			options...,
		).Endpoint()
		todosEndpoint = limiter(todosEndpoint)
		todosEndpoint = breaker("Todos")(todosEndpoint)
	}

	var addTodoEndpoint endpoint.Endpoint
	{
		addTodoEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/todos"),
			encodeHTTPGenericRequest,
			decodeHTTPAddTodoResponse,
			options...,
		).Endpoint()
		addTodoEndpoint = limiter(addTodoEndpoint)
		addTodoEndpoint = breaker("AddTodo")(addTodoEndpoint)
	}

	var toggleTodoEndpoint endpoint.Endpoint
	{
		toggleTodoEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/todos"),
			encodeHTTPToggleTodoRequest,
			decodeHTTPToggleTodoResponse,
			options...,
		).Endpoint()
		toggleTodoEndpoint = limiter(toggleTodoEndpoint)
		toggleTodoEndpoint = breaker("ToggleTodo")(toggleTodoEndpoint)
	}

	var deleteTodoEndpoint endpoint.Endpoint
	{
		deleteTodoEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, "/todos"),
			encodeHTTPDeleteTodoRequest,
			decodeHTTPDeleteTodoResponse,
			options...,
		).Endpoint()
		deleteTodoEndpoint = limiter(deleteTodoEndpoint)
		deleteTodoEndpoint = breaker("DeleteTodo")(deleteTodoEndpoint)
	}

	return todoendpoint.Set{
		TodosEndpoint:      todosEndpoint,
		AddTodoEndpoint:    addTodoEndpoint,
		ToggleTodoEndpoint: toggleTodoEndpoint,
		DeleteTodoEndpoint: deleteTodoEndpoint,
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

type errorWrapper struct {
	Error string `json:"error"`
}

func err2code(err error) int {
	switch err {
	case todosvc.ErrInvalidArgument, todosvc.ErrEmptyText, ErrBadRouting:
		return http.StatusBadRequest
	case todosvc.ErrTodoNotFound, todosvc.ErrDeleteNotFound:
		return http.StatusNotFound
	case todosvc.ErrClaimsMissing,
		authsvc.ErrSessionNotFound,
		kitjwt.ErrTokenContextMissing,
		kitjwt.ErrTokenExpired,
		kitjwt.ErrTokenInvalid,
		kitjwt.ErrTokenMalformed,
		kitjwt.ErrTokenNotActive,
		kitjwt.ErrUnexpectedSigningMethod:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

var knownErrors = []error{
	todosvc.ErrInvalidArgument,
	todosvc.ErrEmptyText,
	todosvc.ErrTodoNotFound,
	todosvc.ErrDeleteNotFound,
	todosvc.ErrClaimsMissing,
	authsvc.ErrSessionNotFound,
	kitjwt.ErrTokenContextMissing,
	kitjwt.ErrTokenExpired,
	kitjwt.ErrTokenInvalid,
	kitjwt.ErrTokenMalformed,
	kitjwt.ErrTokenNotActive,
	kitjwt.ErrUnexpectedSigningMethod,
	ErrBadRouting,
}

func str2err(s string) error {
	for _, err := range knownErrors {
		if err.Error() == s {
			return err
		}
	}
	return errors.New(s)
}

// decodeFailure reads the error body of a non-200 response. Client errors
// come back as failed and stay out of the circuit breaker's failure count.
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

func decodeHTTPTodosRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return todoendpoint.TodosRequest{}, nil
}

func decodeHTTPTodosResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return todoendpoint.TodosResponse{Err: failed}, err
	}
	var resp todoendpoint.TodosResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPAddTodoRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req todoendpoint.AddTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, todosvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPAddTodoResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return todoendpoint.AddTodoResponse{Err: failed}, err
	}
	var resp todoendpoint.AddTodoResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPToggleTodoRequest(_ context.Context, r *http.Request) (interface{}, error) {
	todoID, ok := mux.Vars(r)["todo_id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return todoendpoint.ToggleTodoRequest{TodoID: todoID}, nil
}

func decodeHTTPToggleTodoResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return todoendpoint.ToggleTodoResponse{Err: failed}, err
	}
	var resp todoendpoint.ToggleTodoResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPDeleteTodoRequest(_ context.Context, r *http.Request) (interface{}, error) {
	todoID, ok := mux.Vars(r)["todo_id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return todoendpoint.DeleteTodoRequest{TodoID: todoID}, nil
}

func decodeHTTPDeleteTodoResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeFailure(r)
		return todoendpoint.DeleteTodoResponse{Err: failed}, err
	}
	var resp todoendpoint.DeleteTodoResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

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

func encodeHTTPToggleTodoRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(todoendpoint.ToggleTodoRequest)
	r.URL.Path += "/" + req.TodoID + "/toggle"
	return nil
}

func encodeHTTPDeleteTodoRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(todoendpoint.DeleteTodoRequest)
	r.URL.Path += "/" + req.TodoID
	return nil
}

func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
