package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoendpoint"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todotransport"
)

// ServiceName is the name todosvc instances register under in Consul.
const ServiceName = "todosvc"

// DefaultRetryTimeout bounds one call including retries: the simulated
// todoservice.DefaultDelay plus the session check against authsvc.
const DefaultRetryTimeout = 3 * time.Second

func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (todoendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		endpoints   = todoendpoint.Set{}
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)
	{
		factory := factoryFor(todoendpoint.MakeTodosEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.TodosEndpoint = retry
	}
	{
		factory := factoryFor(todoendpoint.MakeAddTodoEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.AddTodoEndpoint = retry
	}
	{
		factory := factoryFor(todoendpoint.MakeToggleTodoEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.ToggleTodoEndpoint = retry
	}
	{
		factory := factoryFor(todoendpoint.MakeDeleteTodoEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.DeleteTodoEndpoint = retry
	}
	return endpoints, nil
}

func factoryFor(makeEndpoint func(todoservice.Service) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := todotransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
