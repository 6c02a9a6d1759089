// Package report writes discovery results in the line protocol read by the
// editor, or as JSON.
//
// Protocol:
//
//	start
//	<id with "." replaced by ":">:<line or *>
//	...
//	=== exception start ===
//	<message>
//	=== exception end ===
package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/specvital/unittest-adapter/pkg/domain"
)

// Protocol markers.
const (
	StartMarker     = "start"
	ExceptionStart  = "=== exception start ==="
	ExceptionEnd    = "=== exception end ==="
	UnknownLine     = "*"
	IDLineSeparator = ":"
)

// FormatEntry renders one discovery entry as a protocol line without newline.
func FormatEntry(e domain.Entry) string {
	line := UnknownLine
	if e.Location.Known() {
		line = strconv.Itoa(e.Location.StartLine)
	}
	return e.ProtocolID() + IDLineSeparator + line
}

// WriteProtocol writes the start marker, one line per entry and one exception
// block per loader error. Loader errors without a message are skipped.
func WriteProtocol(w io.Writer, inv domain.Inventory) error {
	bw := bufio.NewWriter(w)

	writeLine(bw, StartMarker)
	for _, e := range inv.Entries {
		writeLine(bw, FormatEntry(e))
	}

	for _, le := range inv.LoaderErrors {
		msg, ok := le.Message()
		if !ok {
			continue
		}
		writeBlock(bw, msg)
	}

	return bw.Flush()
}

// stackTracer is implemented by errors carrying a captured stack.
type stackTracer interface {
	StackTrace() []byte
}

// WriteFailure writes a single exception block holding err and, when
// available, its stack trace. No start marker is written.
func WriteFailure(w io.Writer, err error) error {
	bw := bufio.NewWriter(w)

	text := err.Error()
	var st stackTracer
	if errors.As(err, &st) {
		if stack := strings.TrimRight(string(st.StackTrace()), "\n"); stack != "" {
			text += "\n" + stack
		}
	}
	writeBlock(bw, text)

	return bw.Flush()
}

func writeBlock(w *bufio.Writer, msg string) {
	writeLine(w, ExceptionStart)
	writeLine(w, msg)
	writeLine(w, ExceptionEnd)
}

func writeLine(w *bufio.Writer, s string) {
	_, _ = w.WriteString(s)
	_ = w.WriteByte('\n')
}

// Django summarises framework setup for the JSON report.
type Django struct {
	Enabled  bool   `json:"enabled"`
	Status   string `json:"status,omitempty"`
	Settings string `json:"settings,omitempty"`
	Source   string `json:"source,omitempty"`
	Error    string `json:"error,omitempty"`
}

type jsonLoaderError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type jsonReport struct {
	RootPath     string            `json:"rootPath"`
	Entries      []domain.Entry    `json:"entries"`
	LoaderErrors []jsonLoaderError `json:"loaderErrors"`
	Django       *Django           `json:"django,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// WriteJSON writes the inventory as an indented JSON document.
func WriteJSON(w io.Writer, inv domain.Inventory, django *Django) error {
	report := jsonReport{
		RootPath:     inv.RootPath,
		Entries:      inv.Entries,
		LoaderErrors: []jsonLoaderError{},
		Django:       django,
	}
	if report.Entries == nil {
		report.Entries = []domain.Entry{}
	}
	for _, le := range inv.LoaderErrors {
		if msg, ok := le.Message(); ok {
			report.LoaderErrors = append(report.LoaderErrors, jsonLoaderError{Source: le.Source, Message: msg})
		}
	}

	return encode(w, report)
}

// WriteJSONFailure writes an unexpected failure as a JSON document.
func WriteJSONFailure(w io.Writer, err error, django *Django) error {
	return encode(w, jsonReport{
		Entries:      []domain.Entry{},
		LoaderErrors: []jsonLoaderError{},
		Django:       django,
		Error:        err.Error(),
	})
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
