// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
	"github.com/bureau-foundation/canvassync/lib/config"
	"github.com/bureau-foundation/canvassync/lib/version"
)

// app carries the process streams so commands can be run against
// buffers in tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// logger overrides cli.NewCommandLogger when set.
	logger *slog.Logger

	// color forces styled output on or off. Nil means "when stdout is
	// a terminal".
	color *bool
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

func (a *app) root() *cli.Command {
	var showVersion bool
	return &cli.Command{
		Name:        "canvasctl",
		Summary:     "Operate on canvas sync servers",
		Description: "canvasctl follows, records and drives canvases on a canvas sync server.",
		Output:      a.stderr,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("canvasctl", pflag.ContinueOnError)
			flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
			return flagSet
		},
		Subcommands: []*cli.Command{
			a.tailCommand(),
			a.replayCommand(),
			a.commandCommand(),
			a.uploadCommand(),
			a.auditCommand(),
			a.ticketCommand(),
		},
		Run: func(args []string) error {
			if showVersion {
				fmt.Fprintln(a.stdout, version.Full())
				return nil
			}
			return errors.New("subcommand required\n\nRun 'canvasctl --help' for usage.")
		},
	}
}

// connectionOptions are the flags shared by every command that talks
// to a server.
type connectionOptions struct {
	configPath string
	verbose    bool
}

func (options *connectionOptions) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&options.configPath, "config", "", "path to the canvas config file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads --config, falling back to CANVAS_CONFIG.
func (options *connectionOptions) loadConfig() (*config.Config, error) {
	if options.configPath != "" {
		return config.LoadFile(options.configPath)
	}
	return config.Load()
}

// transport loads the configuration and builds a canvas.Transport
// for it.
func (a *app) transport(options *connectionOptions, command string) (*canvas.Transport, *config.Config, *slog.Logger, error) {
	loaded, err := options.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := a.logger
	if logger == nil {
		logger = cli.NewCommandLogger(options.verbose)
	}
	logger = logger.With("command", command, "mode", string(loaded.Mode))

	transportConfig := newTransportConfig(loaded, logger)
	transport, err := canvas.New(&transportConfig)
	if err != nil {
		return nil, nil, nil, err
	}
	return transport, loaded, logger, nil
}

// newTransportConfig converts loaded into a canvas.Config whose HTTP
// requests and socket upgrade identify canvasctl in their User-Agent.
func newTransportConfig(loaded *config.Config, logger *slog.Logger) canvas.Config {
	transportConfig := loaded.Transport(logger)
	transportConfig.HTTPClient = &http.Client{Transport: userAgentTransport{base: http.DefaultTransport}}
	transportConfig.DialHeader = http.Header{"User-Agent": {version.UserAgent()}}
	return transportConfig
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.Header.Set("User-Agent", version.UserAgent())
	return t.base.RoundTrip(request)
}

// colorEnabled reports whether output to stdout should be styled.
func (a *app) colorEnabled() bool {
	if a.color != nil {
		return *a.color
	}
	file, ok := a.stdout.(*os.File)
	return ok && cli.IsTerminal(file)
}

// writeJSON prints value as indented JSON on stdout.
func (a *app) writeJSON(value any) error {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, names ...string) error {
	if len(args) != len(names) {
		if len(names) == 0 {
			return fmt.Errorf("expected no arguments, got %d", len(args))
		}
		usage := ""
		for _, name := range names {
			usage += " <" + name + ">"
		}
		return fmt.Errorf("expected%s, got %d argument(s)", usage, len(args))
	}
	return nil
}
