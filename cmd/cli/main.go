package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"codejudge/internal/cli/command"
	"codejudge/internal/cli/config"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/cli/repl"
	"codejudge/internal/cli/state"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 30s)")
	cookie := flag.String("cookie", "", "Override session cookie (token=...)")
	statePath := flag.String("state", "", "Override session state path")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	sessionState, err := state.Load(cfg.StatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session state failed: %v\n", err)
		os.Exit(1)
	}
	if *cookie != "" {
		sessionState.Cookie = repl.NormalizeCookie(*cookie)
	}
	// A base chosen with "set base" sticks unless -base is given.
	if *baseURL == "" && sessionState.BaseURL != "" {
		cfg.BaseURL = sessionState.BaseURL
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return sessionState.Cookie
	})

	session := repl.New(client, command.Registry(), &sessionState, cfg.StatePath, cfg.PrettyJSON != nil && *cfg.PrettyJSON)
	ctx := context.Background()

	// Non-interactive: codejudge-cli run lang=py file=a.py
	if args := flag.Args(); len(args) > 0 {
		session.SetOutput(os.Stdout)
		if err := session.ExecuteArgs(ctx, args, nil); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := session.Run(ctx, cfg.HistoryPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
