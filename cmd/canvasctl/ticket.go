// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
)

func (a *app) ticketCommand() *cli.Command {
	var connection connectionOptions
	return &cli.Command{
		Name:        "ticket",
		Summary:     "Print a fresh socket ticket",
		Description: "Request a short-lived socket ticket, useful for connecting other websocket clients by hand.",
		Usage:       "canvasctl ticket [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("ticket", pflag.ContinueOnError)
			connection.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args); err != nil {
				return err
			}
			transport, _, _, err := a.transport(&connection, "ticket")
			if err != nil {
				return err
			}
			ticket, err := transport.Ticket(context.Background())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, ticket)
			return err
		},
	}
}
