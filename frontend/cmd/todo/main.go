package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/kit/log"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authtransport"
	"github.com/oyage/todo-vite-app/frontend/authstore"
	"github.com/oyage/todo-vite-app/frontend/todostore"
	"github.com/oyage/todo-vite-app/frontend/tui"
	"github.com/oyage/todo-vite-app/todosvc/pkg/todotransport"
)

func main() {
	tokenFile, err := authstore.DefaultTokenFile()
	if err != nil {
		tokenFile = ""
	}

	fs := flag.NewFlagSet("todo", flag.ExitOnError)
	var (
		addr = fs.String(
			"addr",
			getEnv("TODO_ADDR", "http://localhost:8000"),
			"API gateway address",
		)
		tokenPath = fs.String(
			"token.file",
			getEnv("TODO_TOKEN_FILE", tokenFile),
			"where the session token is kept, empty keeps it in memory",
		)
		logFile = fs.String(
			"log.file",
			getEnv("TODO_LOG_FILE", ""),
			"append logs to this file, empty discards them",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		logger = log.NewNopLogger()
		if *logFile != "" {
			f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()

			logger = log.NewLogfmtLogger(log.NewSyncWriter(f))
			logger = log.With(logger, "ts", log.DefaultTimestampUTC)
			logger = log.With(logger, "caller", log.DefaultCaller)
		}
	}

	base := strings.TrimSuffix(*addr, "/")

	authClient, err := authtransport.NewHTTPClient(base+"/auth/v1", log.With(logger, "component", "authclient"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	todoClient, err := todotransport.NewHTTPClient(base+"/todo/v1", log.With(logger, "component", "todoclient"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var tokens authstore.TokenStore
	{
		if *tokenPath == "" {
			tokens = authstore.NewMemoryTokenStore()
		} else {
			tokens = authstore.NewFileTokenStore(*tokenPath)
		}
		tokens = authstore.WithEnvOverride(tokens)
	}

	auth := authstore.New(authClient, tokens, log.With(logger, "store", "auth"))
	todos := todostore.New(todoClient, auth, log.With(logger, "store", "todo"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(tui.New(ctx, auth, todos), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Log("exit", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
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
