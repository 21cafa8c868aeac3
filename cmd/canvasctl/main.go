// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// canvasctl is an operator tool for canvas sync servers. It follows a
// canvas live, records and replays event sessions, and drives the
// request/response endpoints (commands, artifacts, audits, tickets)
// with the same transport the application embeds.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).root().Execute(os.Args[1:]); err != nil {
		// Commands that print their own outcome return an ExitError.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
