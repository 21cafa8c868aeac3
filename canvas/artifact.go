// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/zeebo/blake3"
)

// ArtifactUpload is one binary artifact to attach to a canvas.
type ArtifactUpload struct {
	// Filename is sent as the multipart file name.
	Filename string

	// MimeType is the content type of the file part. Default:
	// application/octet-stream.
	MimeType string

	// Content is read to EOF during the upload.
	Content io.Reader
}

// Artifact is the server's record of an uploaded artifact.
type Artifact struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// ArtifactClient uploads artifacts.
type ArtifactClient struct {
	requester *requester
}

// Upload streams upload as a multipart form: a "file" part with the
// content followed by a "digest" field holding the hex BLAKE3-256
// digest of the content, so the server can verify what it stored.
// A non-2xx response returns a *RequestError. Upload never retries.
func (c *ArtifactClient) Upload(ctx context.Context, canvasID string, upload ArtifactUpload) (*Artifact, error) {
	if upload.Content == nil {
		return nil, errors.New("canvas: artifact upload has no content")
	}
	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	filename := upload.Filename
	if filename == "" {
		filename = "artifact"
	}

	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)
	go func() {
		pipeWriter.CloseWithError(writeArtifactForm(form, filename, mimeType, upload.Content))
	}()
	// Unblocks the writer goroutine if the request fails before
	// consuming the whole body.
	defer pipeReader.Close()

	path := "/canvas/" + url.PathEscape(canvasID) + "/artifacts"
	resp, err := c.requester.do(ctx, http.MethodPost, path, form.FormDataContentType(), pipeReader, nil)
	if err != nil {
		return nil, err
	}
	var artifact Artifact
	if err := decodeOK(path, resp, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func writeArtifactForm(form *multipart.Writer, filename, mimeType string, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("canvas: creating artifact part: %w", err)
	}

	hasher := blake3.New()
	if _, err := io.Copy(io.MultiWriter(part, hasher), content); err != nil {
		return fmt.Errorf("canvas: reading artifact content: %w", err)
	}
	if err := form.WriteField("digest", hex.EncodeToString(hasher.Sum(nil))); err != nil {
		return fmt.Errorf("canvas: writing artifact digest: %w", err)
	}
	return form.Close()
}
