package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authtransport"
)

// ServiceName is the name authsvc instances register under in Consul.
const ServiceName = "authsvc"

// DefaultRetryTimeout bounds one call including retries. It must exceed the
// slowest simulated delay in authservice.DefaultDelays.
const DefaultRetryTimeout = 3 * time.Second

func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (authendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)

	balanced := func(makeEndpoint func(authservice.Service) endpoint.Endpoint) endpoint.Endpoint {
		factory := factoryFor(makeEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return authendpoint.Set{
		LoginEndpoint:       balanced(authendpoint.MakeLoginEndpoint),
		SignupEndpoint:      balanced(authendpoint.MakeSignupEndpoint),
		LogoutEndpoint:      balanced(authendpoint.MakeLogoutEndpoint),
		CurrentUserEndpoint: balanced(authendpoint.MakeCurrentUserEndpoint),
		RefreshEndpoint:     balanced(authendpoint.MakeRefreshEndpoint),
		ValidateEndpoint:    balanced(authendpoint.MakeValidateEndpoint),
	}, nil
}

func factoryFor(makeEndpoint func(authservice.Service) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := authtransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
