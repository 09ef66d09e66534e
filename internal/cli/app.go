package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"focusflow/internal/apiclient"
	"focusflow/internal/config"
	"focusflow/internal/engine"
	"focusflow/internal/localstore"
	"focusflow/internal/logging"

	"github.com/spf13/cobra"
)

const (
	localDBName = "local.db"
	logFileName = "focusflow.log"
)

// app is everything one command invocation needs.
type app struct {
	cfg     *config.Config
	client  *apiclient.Client
	local   *localstore.Store
	engine  *engine.Engine
	closers []io.Closer
}

// openApp loads the configuration, sets up logging and starts the engine.
// Logs go to a rotating file in the data dir unless --verbose is set.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Client.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logOpts := logging.Options{Source: "focusflow", Level: cfg.Log.Level, File: cfg.Log.File}
	if opts.verbose {
		logOpts.Level = "debug"
		logOpts.File = ""
	} else if logOpts.File == "" {
		logOpts.File = filepath.Join(cfg.Client.DataDir, logFileName)
	}
	logCloser, err := logging.Init(logOpts)
	if err != nil {
		return nil, err
	}

	backend, err := localstore.OpenSQLite(filepath.Join(cfg.Client.DataDir, localDBName))
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	clientOpts := []apiclient.Option{}
	if cfg.Client.Token != "" {
		clientOpts = append(clientOpts, apiclient.WithToken(cfg.Client.Token))
	}
	if cfg.Client.Timeout > 0 {
		clientOpts = append(clientOpts, apiclient.WithTimeout(cfg.Client.Timeout))
	}

	a := &app{
		cfg:     cfg,
		client:  apiclient.New(cfg.Client.APIURL, clientOpts...),
		local:   localstore.New(backend),
		closers: []io.Closer{backend, logCloser},
	}
	a.engine = engine.New(a.client, a.local)
	a.engine.Start(ctx)
	return a, nil
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// withApp opens the app, runs fn and prints the engine status banner.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a); err != nil {
		return err
	}
	printStatus(cmd.ErrOrStderr(), a.engine)
	return nil
}

func printStatus(w io.Writer, e *engine.Engine) {
	st := e.Status()
	if st.OK() {
		return
	}
	fmt.Fprintf(w, "! %s\n", st.Message)
}
