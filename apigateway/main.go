package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	"github.com/oyage/todo-vite-app/authsvc"
	authclient "github.com/oyage/todo-vite-app/authsvc/client"
	authgorm "github.com/oyage/todo-vite-app/authsvc/db/gorm"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authendpoint"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authtransport"
	"github.com/oyage/todo-vite-app/todosvc"
	todoclient "github.com/oyage/todo-vite-app/todosvc/client"
	todogorm "github.com/oyage/todo-vite-app/todosvc/db/gorm"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoendpoint"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todotransport"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

func main() {
	fs := flag.NewFlagSet("apigateway", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			getEnv("HTTP_ADDR", ":8000"),
			"Address for HTTP (JSON) server",
		)
		mode = fs.String(
			"mode",
			getEnv("GATEWAY_MODE", "local"),
			"local serves both services in-process, consul proxies to discovered instances",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"Consul agent address",
		)
		latency = fs.Bool(
			"latency",
			getEnv("SIMULATE_LATENCY", "true") == "true",
			"simulate network latency in local mode",
		)
		retryMax = fs.Int(
			"retry.max",
			getEnvAsInt("RETRY_MAX", 3),
			"per-request retries to different instances",
		)
		retryTimeout = fs.Duration(
			"retry.timeout",
			time.Duration(getEnvAsInt("RETRY_TIMEOUT", int(authclient.DefaultRetryTimeout/time.Millisecond)))*time.Millisecond,
			"per-request timeout, including retries",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var (
		authEndpoints authendpoint.Set
		todoEndpoints todoendpoint.Set
		inmemClient   inmem.Client
		err           error
	)
	switch *mode {
	case "local":
		authEndpoints, todoEndpoints, inmemClient, err = localEndpoints(*latency, logger)
	case "consul":
		authEndpoints, todoEndpoints, inmemClient, err = consulEndpoints(*consulAddr, *retryMax, *retryTimeout, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Log("mode", *mode, "err", err)
		os.Exit(1)
	}

	r := mux.NewRouter()
	{
		authHTTPHandler := authtransport.NewHTTPHandler(authEndpoints, inmemClient, logger)
		r.PathPrefix("/auth/v1").Handler(http.StripPrefix("/auth/v1", authHTTPHandler))
	}
	{
		todoHTTPHandler := todotransport.NewHTTPHandler(todoEndpoints, logger)
		r.PathPrefix("/todo/v1").Handler(http.StripPrefix("/todo/v1", todoHTTPHandler))
	}

	// Interrupt handler.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	// HTTP transport.
	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr, "mode", *mode)
		errc <- http.ListenAndServe(*httpAddr, r)
	}()

	// Run!
	logger.Log("exit", <-errc)
}

// localEndpoints builds both services in this process on top of in-memory
// databases and an in-process session store.
func localEndpoints(latency bool, logger log.Logger) (authendpoint.Set, todoendpoint.Set, inmem.Client, error) {
	adb, err := authgorm.Open(authgorm.MemoryDSN("authsvc"))
	if err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}
	if err := authgorm.SeedDemo(adb); err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}

	tdb, err := todogorm.Open(todogorm.MemoryDSN("todosvc"))
	if err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}
	if err := todogorm.Seed(tdb, todosvc.DemoTodos(authsvc.DemoUserID)...); err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}

	fieldKeys := []string{"method"}
	kv := inmem.NewLocalClient()

	var authService authservice.Service
	{
		authService = authservice.New(authservice.NewTokenizer(), authgorm.NewUserRepository(adb), kv, log.With(logger, "svc", "auth"))
		authService = authservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "todo",
				Subsystem: "authsvc",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "todo",
				Subsystem: "authsvc",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(authService)
		if latency {
			authService = authservice.LatencyMiddleware(authservice.DefaultDelays())(authService)
		}
	}
	authEndpoints := authendpoint.New(authService, logger)

	var todoService todoservice.Service
	{
		todoService = todoservice.New(todogorm.NewTodoRepository(tdb), log.With(logger, "svc", "todo"))
		todoService = todoservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "todo",
				Subsystem: "todosvc",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "todo",
				Subsystem: "todosvc",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(todoService)
		if latency {
			todoService = todoservice.LatencyMiddleware(todoservice.DefaultDelay)(todoService)
		}
		todoService = todoservice.ProxingMiddleware(authEndpoints.ValidateEndpoint)(todoService)
	}
	todoEndpoints := todoendpoint.New(todoService, logger)

	return authEndpoints, todoEndpoints, kv, nil
}

// consulEndpoints proxies to authsvc and todosvc instances registered in
// Consul. Sessions are checked against the Consul KV store.
func consulEndpoints(addr string, retryMax int, retryTimeout time.Duration, logger log.Logger) (authendpoint.Set, todoendpoint.Set, inmem.Client, error) {
	consulConfig := api.DefaultConfig()
	if len(addr) > 0 {
		consulConfig.Address = addr
	}

	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}
	client := consulsd.NewClient(consulClient)

	authEndpoints, err := authclient.New(client, logger, retryMax, retryTimeout)
	if err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}
	todoEndpoints, err := todoclient.New(client, logger, retryMax, retryTimeout)
	if err != nil {
		return authendpoint.Set{}, todoendpoint.Set{}, nil, err
	}

	return authEndpoints, todoEndpoints, inmem.NewClient(consulClient), nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
