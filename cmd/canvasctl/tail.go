// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
	"github.com/bureau-foundation/canvassync/lib/clock"
	"github.com/bureau-foundation/canvassync/lib/eventlog"
)

type tailOptions struct {
	connection  connectionOptions
	recordPath  string
	compression string
	jsonLines   bool
}

func (a *app) tailCommand() *cli.Command {
	var options tailOptions
	return &cli.Command{
		Name:    "tail",
		Summary: "Follow a canvas and print its events",
		Description: "Connect to a canvas and print every event from the push stream and the socket\n" +
			"until interrupted. With --record, events are also written to a recording file\n" +
			"that 'canvasctl replay' can read back.",
		Usage: "canvasctl tail <canvas-id> [flags]",
		Examples: []cli.Example{
			{Description: "Follow a canvas", Command: "canvasctl tail canvas-1"},
			{Description: "Record a session with lz4", Command: "canvasctl tail canvas-1 --record session.cvlg --compression lz4"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("tail", pflag.ContinueOnError)
			options.connection.register(flagSet)
			flagSet.StringVar(&options.recordPath, "record", "", "also write events to this recording file")
			flagSet.StringVar(&options.compression, "compression", "", "recording compression: zstd, lz4 or none (default: from config)")
			flagSet.BoolVar(&options.jsonLines, "json", false, "print one JSON object per event")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, "canvas-id"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.tail(ctx, &options, args[0])
		},
	}
}

// tail follows canvasID until ctx is cancelled.
func (a *app) tail(ctx context.Context, options *tailOptions, canvasID string) error {
	transport, loaded, logger, err := a.transport(&options.connection, "tail")
	if err != nil {
		return err
	}
	logger = logger.With("canvas_id", canvasID)

	var recorder *eventlog.Writer
	if options.recordPath != "" {
		compressionName := options.compression
		if compressionName == "" {
			compressionName = loaded.Recording.Compression
		}
		compression, err := eventlog.ParseCompression(compressionName)
		if err != nil {
			return err
		}
		file, err := os.Create(options.recordPath)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer file.Close()
		recorder, err = eventlog.NewWriter(file, compression)
		if err != nil {
			return err
		}
	}

	printer := newEventPrinter(a.stdout, options.jsonLines, a.colorEnabled())
	wallClock := clock.Real()

	// The recorder is shared by both channel goroutines.
	var recordMu sync.Mutex
	unsubscribe := transport.Subscribe(func(event canvas.Event) {
		record, err := eventlog.FromEvent(event, wallClock.Now())
		if err != nil {
			logger.Warn("cannot encode event", "type", string(event.EventType()), "error", err)
			return
		}
		if err := printer.print(record); err != nil {
			logger.Warn("printing event failed", "error", err)
		}
		if recorder != nil {
			recordMu.Lock()
			err := recorder.Append(record)
			recordMu.Unlock()
			if err != nil {
				logger.Warn("recording event failed", "error", err)
			}
		}
	})
	defer unsubscribe()

	if err := transport.Connect(ctx, canvasID); err != nil {
		return err
	}
	logger.Info("following canvas", "record", options.recordPath)

	<-ctx.Done()
	// Disconnect delivers the final system/DISCONNECTED event before
	// returning, so it is printed and recorded.
	transport.Disconnect()

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return fmt.Errorf("finishing recording: %w", err)
		}
		logger.Info("recording written", "path", options.recordPath, "events", recorder.Count())
	}
	return nil
}
