package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/alecthomas/kong"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Globals are the flags shared by every command.
type Globals struct {
	Email    string          `env:"AID_EMAIL" help:"Email address of the Aidentified account."`
	Password network.Secret  `env:"AID_PASSWORD" help:"Password of the Aidentified account."`
	URL      string          `name:"url" env:"AIDENTIFIED_URL" default:"${url}" help:"Base URL of the matching API."`
	Verbose  bool            `short:"v" help:"Write debug logs."`
	Config   kong.ConfigFlag `help:"Load flag values from a JSON file."`
}

// App holds the services the commands run with.
type App struct {
	Globals

	ctx    context.Context
	cancel context.CancelFunc
	out    io.Writer

	logger  log.Logger
	envRepo env.Repository
	tokens  *network.TokenService
	client  *network.Client
}

// NewApp wires the API client from the global flags. The returned context is
// cancelled on SIGINT or SIGTERM.
func NewApp(globals Globals) (*App, error) {
	logger := log.NewLogger()
	logger.EnableDebugLog(globals.Verbose)

	envRepo := env.NewRepository()
	cachePath, err := network.DefaultTokenCachePath(envRepo)
	if err != nil {
		return nil, err
	}

	httpClient := network.NewHTTPClient(logger)
	credentials := network.Credentials{Email: globals.Email, Password: globals.Password}
	tokens := network.NewTokenService(httpClient, globals.URL, credentials, cachePath, logger)

	app := &App{
		Globals: globals,
		out:     os.Stdout,
		logger:  logger,
		envRepo: envRepo,
		tokens:  tokens,
		client:  network.NewClient(httpClient, globals.URL, tokens, logger),
	}
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	logger.Debugf("API: %s, account: %s, password: %s", globals.URL, globals.Email, globals.Password)
	return app, nil
}

// Close ...
func (app *App) Close() error {
	app.cancel()
	return nil
}

// Print writes v as indented JSON with sorted keys.
func (app *App) Print(v interface{}) error {
	return printJSON(app.out, v)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	// Round trip through interface{} so that object keys come out sorted.
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var generic interface{}
	if err := decoder.Decode(&generic); err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(generic, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
