// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
	"github.com/bureau-foundation/canvassync/lib/eventlog"
)

func (a *app) replayCommand() *cli.Command {
	var jsonLines bool
	var eventTypes []string
	return &cli.Command{
		Name:        "replay",
		Summary:     "Print a recording made by 'canvasctl tail --record'",
		Description: "Print the events of a recording in the order they were received.",
		Usage:       "canvasctl replay <file> [flags]",
		Examples: []cli.Example{
			{Description: "Show only safety decisions", Command: "canvasctl replay session.cvlg --type safety_decision"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
			flagSet.BoolVar(&jsonLines, "json", false, "print one JSON object per event")
			flagSet.StringSliceVar(&eventTypes, "type", nil, "only print events of these types (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, "file"); err != nil {
				return err
			}
			return a.replay(args[0], jsonLines, eventTypes)
		},
	}
}

func (a *app) replay(path string, jsonLines bool, eventTypes []string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer file.Close()

	reader, err := eventlog.NewReader(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer reader.Close()

	wanted := make(map[canvas.EventType]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		wanted[canvas.EventType(eventType)] = true
	}

	printer := newEventPrinter(a.stdout, jsonLines, a.colorEnabled())
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if len(wanted) > 0 && !wanted[record.Type] {
			continue
		}
		if err := printer.print(record); err != nil {
			return err
		}
	}
}
