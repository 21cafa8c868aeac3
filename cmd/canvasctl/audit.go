// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
)

func (a *app) auditCommand() *cli.Command {
	var connection connectionOptions
	var ruleset string
	return &cli.Command{
		Name:    "audit",
		Summary: "Run a server-side audit of a canvas",
		Usage:   "canvasctl audit <canvas-id> --ruleset NAME [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("audit", pflag.ContinueOnError)
			connection.register(flagSet)
			flagSet.StringVar(&ruleset, "ruleset", "", "audit ruleset name (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, "canvas-id"); err != nil {
				return err
			}
			if ruleset == "" {
				return errors.New("--ruleset is required")
			}
			transport, _, _, err := a.transport(&connection, "audit")
			if err != nil {
				return err
			}
			result, err := transport.RequestAudit(context.Background(), args[0], ruleset)
			if err != nil {
				return err
			}
			return a.writeJSON(result)
		},
	}
}
