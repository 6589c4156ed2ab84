package main

import (
	"flag"
	"fmt"
	"net"
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
	"github.com/hashicorp/consul/api"
	"github.com/oklog/oklog/pkg/group"
	"github.com/oyage/todo-vite-app/authsvc"
	authclient "github.com/oyage/todo-vite-app/authsvc/client"
	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/oyage/todo-vite-app/todosvc/client"
	"github.com/oyage/todo-vite-app/todosvc/db/gorm"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoendpoint"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todoservice"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todotransport"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/twinj/uuid"
)

func main() {
	fs := flag.NewFlagSet("todosvc", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			getEnv("HTTP_ADDR", ":8082"),
			"HTTP listen address",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"Consul agent address",
		)
		dbName = fs.String(
			"db.name",
			getEnv("DB_NAME", "todosvc"),
			"name of the in-memory database",
		)
		latency = fs.Duration(
			"latency",
			time.Duration(getEnvAsInt("LATENCY_MS", 500))*time.Millisecond,
			"simulated network latency per operation",
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

	db, err := gorm.Open(gorm.MemoryDSN(*dbName))
	if err != nil {
		logger.Log("during", "Open", "err", err)
		os.Exit(1)
	}
	if err := gorm.Seed(db, todosvc.DemoTodos(authsvc.DemoUserID)...); err != nil {
		logger.Log("during", "Seed", "err", err)
		os.Exit(1)
	}

	var (
		consulClient consulsd.Client
		registrar    *consulsd.Registrar
	)
	{
		consulConfig := api.DefaultConfig()
		if len(*consulAddr) > 0 {
			consulConfig.Address = *consulAddr
		}
		apiClient, err := api.NewClient(consulConfig)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}

		host, port, err := net.SplitHostPort(*httpAddr)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		if host == "" {
			host = "localhost"
		}

		p, _ := strconv.Atoi(port)
		asr := &api.AgentServiceRegistration{
			ID:      uuid.NewV4().String(),
			Name:    client.ServiceName,
			Address: host,
			Port:    p,
		}

		consulClient = consulsd.NewClient(apiClient)
		registrar = consulsd.NewRegistrar(consulClient, asr, logger)
		registrar.Register()
		defer registrar.Deregister()
	}

	authEndpoints, _ := authclient.New(consulClient, logger, *retryMax, *retryTimeout)

	var service todoservice.Service
	{
		fieldKeys := []string{"method"}
		requestCount := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "todo",
			Subsystem: "todosvc",
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, fieldKeys)
		requestLatency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "todo",
			Subsystem: "todosvc",
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
		}, fieldKeys)

		service = todoservice.New(gorm.NewTodoRepository(db), logger)
		service = todoservice.InstrumentingMiddleware(requestCount, requestLatency)(service)
		service = todoservice.LatencyMiddleware(*latency)(service)
		service = todoservice.ProxingMiddleware(authEndpoints.ValidateEndpoint)(service)
	}

	var (
		endpoints   = todoendpoint.New(service, logger)
		httpHandler = todotransport.NewHTTPHandler(endpoints, logger)
	)

	var g group.Group
	{
		// The HTTP listener mounts the Go kit HTTP handler we created.
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			registrar.Deregister()
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", *httpAddr)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
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
