// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/cmd/canvasctl/cli"
)

func (a *app) uploadCommand() *cli.Command {
	var connection connectionOptions
	var mimeType string
	return &cli.Command{
		Name:        "upload",
		Summary:     "Upload an artifact to a canvas",
		Description: "Upload a file as a canvas artifact and print the stored artifact record.",
		Usage:       "canvasctl upload <canvas-id> <file> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("upload", pflag.ContinueOnError)
			connection.register(flagSet)
			flagSet.StringVar(&mimeType, "mime", "", "content type (default: from the file extension)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, "canvas-id", "file"); err != nil {
				return err
			}
			return a.upload(context.Background(), &connection, args[0], args[1], mimeType)
		},
	}
}

func (a *app) upload(ctx context.Context, connection *connectionOptions, canvasID, path, mimeType string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening artifact: %w", err)
	}
	defer file.Close()

	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
	}

	transport, _, logger, err := a.transport(connection, "upload")
	if err != nil {
		return err
	}
	artifact, err := transport.UploadArtifact(ctx, canvasID, canvas.ArtifactUpload{
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Content:  file,
	})
	if err != nil {
		return err
	}
	logger.Info("artifact uploaded", "canvas_id", canvasID, "artifact_id", artifact.ID)
	return a.writeJSON(artifact)
}
