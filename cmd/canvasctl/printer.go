// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/lib/eventlog"
)

// printedRecord is the --json line format shared by tail and replay.
type printedRecord struct {
	ReceivedAt time.Time        `json:"received_at"`
	Source     canvas.Source    `json:"source"`
	Type       canvas.EventType `json:"type"`
	Event      json.RawMessage  `json:"event"`
}

// eventPrinter writes records to an output stream, either as JSON
// lines or as a header line followed by the indented event payload.
// It is safe for concurrent use: tail calls it from both channel
// goroutines.
type eventPrinter struct {
	mu     sync.Mutex
	output io.Writer
	json   bool
	color  bool

	timeStyle   lipgloss.Style
	sourceStyle lipgloss.Style
	typeStyle   lipgloss.Style
	alertStyle  lipgloss.Style
}

func newEventPrinter(output io.Writer, jsonLines, color bool) *eventPrinter {
	// The renderer profile is forced because lipgloss otherwise probes
	// output itself, and a buffer or pipe would strip all styling.
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	renderer := lipgloss.NewRenderer(output, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return &eventPrinter{
		output:      output,
		json:        jsonLines,
		color:       color,
		timeStyle:   renderer.NewStyle().Foreground(lipgloss.Color("244")),
		sourceStyle: renderer.NewStyle().Foreground(lipgloss.Color("39")).Width(len(canvas.SourcePushStream)),
		typeStyle:   renderer.NewStyle().Bold(true),
		alertStyle:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

// print writes one record.
func (p *eventPrinter) print(record eventlog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		line, err := json.Marshal(printedRecord{
			ReceivedAt: record.ReceivedAt,
			Source:     record.Source,
			Type:       record.Type,
			Event:      json.RawMessage(record.Event),
		})
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", record.Type, err)
		}
		_, err = fmt.Fprintf(p.output, "%s\n", line)
		return err
	}

	typeStyle := p.typeStyle
	if alerting(record) {
		typeStyle = p.alertStyle
	}
	header := fmt.Sprintf("%s %s %s",
		p.timeStyle.Render(record.ReceivedAt.UTC().Format(time.RFC3339Nano)),
		p.sourceStyle.Render(string(record.Source)),
		typeStyle.Render(string(record.Type)),
	)
	if _, err := fmt.Fprintln(p.output, header); err != nil {
		return err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, record.Event, "  ", "  "); err != nil {
		indented.Reset()
		indented.Write(record.Event)
	}
	body := "  " + indented.String()
	if p.color {
		var highlighted bytes.Buffer
		if err := quick.Highlight(&highlighted, body, "json", "terminal256", "monokai"); err == nil {
			body = highlighted.String()
		}
	}
	_, err := fmt.Fprintln(p.output, body)
	return err
}

// alerting reports whether a record is worth highlighting: a
// disconnect or a safety decision other than PASS.
func alerting(record eventlog.Record) bool {
	switch record.Type {
	case canvas.EventSystem, canvas.EventSafetyDecision:
	default:
		return false
	}
	event, err := record.Decode()
	if err != nil {
		return false
	}
	switch variant := event.(type) {
	case *canvas.SystemEvent:
		return variant.Status == canvas.SystemDisconnected
	case *canvas.SafetyDecisionEvent:
		return variant.Result != canvas.SafetyPass
	}
	return false
}
