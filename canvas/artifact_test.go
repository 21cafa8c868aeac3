// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
)

func TestUploadArtifact(t *testing.T) {
	content := "PNG\x00fake image bytes"
	digest := blake3.Sum256([]byte(content))

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/canvas/c1/artifacts" {
			t.Errorf("path = %q", request.URL.Path)
		}
		if got := request.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Authorization = %q", got)
		}
		reader, err := request.MultipartReader()
		if err != nil {
			t.Errorf("multipart reader: %v", err)
			return
		}

		file, err := reader.NextPart()
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		if file.FormName() != "file" || file.FileName() != "diagram.png" {
			t.Errorf("part = %s/%s", file.FormName(), file.FileName())
		}
		if got := file.Header.Get("Content-Type"); got != "image/png" {
			t.Errorf("part Content-Type = %q", got)
		}
		data, _ := io.ReadAll(file)
		if string(data) != content {
			t.Errorf("file content = %q", data)
		}

		digestPart, err := reader.NextPart()
		if err != nil {
			t.Errorf("digest part: %v", err)
			return
		}
		sent, _ := io.ReadAll(digestPart)
		if digestPart.FormName() != "digest" || string(sent) != hex.EncodeToString(digest[:]) {
			t.Errorf("digest field %s = %q", digestPart.FormName(), sent)
		}

		json.NewEncoder(writer).Encode(Artifact{ID: "art-1", URL: "https://cdn.example.com/art-1", MimeType: "image/png"})
	}))
	defer server.Close()

	transport, err := New(testConfig(t, server, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	artifact, err := transport.UploadArtifact(context.Background(), "c1", ArtifactUpload{
		Filename: "diagram.png",
		MimeType: "image/png",
		Content:  strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("UploadArtifact: %v", err)
	}
	if artifact.ID != "art-1" || artifact.MimeType != "image/png" || artifact.URL == "" {
		t.Errorf("artifact = %+v", artifact)
	}
}

func TestUploadArtifactFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		io.Copy(io.Discard, request.Body)
		http.Error(writer, "too large", http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	transport, err := New(testConfig(t, server, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = transport.UploadArtifact(context.Background(), "c1", ArtifactUpload{Content: strings.NewReader("x")})
	var requestErr *RequestError
	if !errors.As(err, &requestErr) || requestErr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("error = %v, want *RequestError with 413", err)
	}
}

func TestRequestAudit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/canvas/c1/audits" {
			t.Errorf("path = %q", request.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(request.Body).Decode(&body)
		if body["ruleset"] != "accessibility" {
			t.Errorf("ruleset = %q", body["ruleset"])
		}
		writer.Write([]byte(`{"score":0.82,"findings":[{"rule":"contrast"}],"artifact_id":"report-1"}`))
	}))
	defer server.Close()

	transport, err := New(testConfig(t, server, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := transport.RequestAudit(context.Background(), "c1", "accessibility")
	if err != nil {
		t.Fatalf("RequestAudit: %v", err)
	}
	if result.Score != 0.82 || len(result.Findings) != 1 || result.ArtifactID != "report-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestRequestAuditFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "no such ruleset", http.StatusNotFound)
	}))
	defer server.Close()

	transport, err := New(testConfig(t, server, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = transport.RequestAudit(context.Background(), "c1", "missing")
	var requestErr *RequestError
	if !errors.As(err, &requestErr) || requestErr.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want *RequestError with 404", err)
	}
	if !strings.Contains(requestErr.Body, "no such ruleset") {
		t.Errorf("Body = %q", requestErr.Body)
	}
}

func TestTicketFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "expired token", http.StatusUnauthorized)
	}))
	defer server.Close()

	transport, err := New(testConfig(t, server, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = transport.Ticket(context.Background())
	var requestErr *RequestError
	if !errors.As(err, &requestErr) || requestErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("error = %v, want *RequestError with 401", err)
	}
}
