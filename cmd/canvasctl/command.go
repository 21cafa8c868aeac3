// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
)

// Exit codes for outcomes "canvasctl command" reports itself.
const (
	exitConflict    = 2
	exitPolicyBlock = 3
)

type commandOptions struct {
	connection    connectionOptions
	baseRev       int64
	opsPath       string
	actorID       string
	correlationID string
}

func (a *app) commandCommand() *cli.Command {
	var options commandOptions
	return &cli.Command{
		Name:    "command",
		Summary: "Send an authoritative command to a canvas",
		Description: "Send a batch of ops against a base revision. The ops file holds a JSON array\n" +
			"(comments and trailing commas allowed); \"-\" reads it from stdin.\n\n" +
			"Exit status is 0 when the command is applied, 2 on a revision conflict and\n" +
			"3 when a policy gate blocks it.",
		Usage: "canvasctl command <canvas-id> --base-rev N --ops FILE [flags]",
		Examples: []cli.Example{
			{Description: "Apply ops at revision 41", Command: "canvasctl command canvas-1 --base-rev 41 --ops ops.jsonc"},
			{Description: "Retry with the same idempotency key", Command: "canvasctl command canvas-1 --base-rev 41 --ops ops.jsonc --correlation-id 01J9ZQ3"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("command", pflag.ContinueOnError)
			options.connection.register(flagSet)
			flagSet.Int64Var(&options.baseRev, "base-rev", -1, "revision the ops apply to (required)")
			flagSet.StringVar(&options.opsPath, "ops", "", "file holding the JSON ops array, or - for stdin (required)")
			flagSet.StringVar(&options.actorID, "actor", "", "actor id (default: the configured user id)")
			flagSet.StringVar(&options.correlationID, "correlation-id", "", "idempotency key (default: a new one)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, "canvas-id"); err != nil {
				return err
			}
			return a.sendCommand(context.Background(), &options, args[0])
		},
	}
}

func (a *app) sendCommand(ctx context.Context, options *commandOptions, canvasID string) error {
	if options.baseRev < 0 {
		return errors.New("--base-rev is required")
	}
	if options.opsPath == "" {
		return errors.New("--ops is required")
	}
	ops, err := a.readOps(options.opsPath)
	if err != nil {
		return err
	}

	transport, _, logger, err := a.transport(&options.connection, "command")
	if err != nil {
		return err
	}

	actorID := options.actorID
	if actorID == "" {
		actorID = transport.Context().UserID
	}
	command := canvas.Command{
		BaseRev:       options.baseRev,
		Ops:           ops,
		ActorID:       actorID,
		CorrelationID: options.correlationID,
	}
	if command.CorrelationID == "" {
		command.CorrelationID = canvas.NewCorrelationID()
	}
	logger.Debug("sending command", "canvas_id", canvasID, "ops", len(ops), "correlation_id", command.CorrelationID)

	response, err := transport.SendCommand(ctx, canvasID, command)
	var blocked *canvas.PolicyBlockError
	if errors.As(err, &blocked) {
		fmt.Fprintf(a.stderr, "command blocked by policy (status %d)\n", blocked.StatusCode)
		if blocked.Body != nil {
			if err := a.writeJSON(blocked.Body); err != nil {
				return err
			}
		}
		return &cli.ExitError{Code: exitPolicyBlock}
	}
	if err != nil {
		return err
	}

	if err := a.writeJSON(struct {
		*canvas.CommandResponse
		CorrelationID string `json:"correlation_id"`
	}{response, command.CorrelationID}); err != nil {
		return err
	}
	if !response.Success {
		fmt.Fprintf(a.stderr, "revision conflict: server head is %d, rebase and retry\n", response.HeadRev)
		return &cli.ExitError{Code: exitConflict}
	}
	return nil
}

// readOps reads a JSON ops array from path or stdin.
func (a *app) readOps(path string) ([]json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading ops: %w", err)
	}

	var ops []json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &ops); err != nil {
		return nil, fmt.Errorf("parsing ops %s: expected a JSON array: %w", path, err)
	}
	return ops, nil
}
