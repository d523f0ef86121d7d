package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/sermonimport/internal/core"
	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rows were rejected or failed to import
	ExitCommandError = 2 // Bad arguments, unreadable file, store unavailable
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the envelope for json and yaml output.
type CLIResponse struct {
	Status string    `json:"status" yaml:"status"`
	Data   any       `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIError is the error part of CLIResponse.
type CLIError struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Action  string `json:"action,omitempty" yaml:"action,omitempty"`
}

// RowReport is the payload of check and import.
type RowReport struct {
	Results []sermonimport.ResultRow `json:"results" yaml:"results"`
	Summary map[string]int           `json:"summary" yaml:"summary"`
}

func newRowReport(rows []sermonimport.ResultRow) RowReport {
	summary := make(map[string]int)
	for st, n := range sermonimport.Summarize(rows) {
		if n > 0 {
			summary[st.String()] = n
		}
	}
	return RowReport{Results: rows, Summary: summary}
}

// encode writes resp as JSON, or as YAML with the same keys as the JSON form.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	if f.Format == "yaml" {
		b, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		var doc any
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success writes data for json/yaml. Text callers render their own output.
func (f *OutputFormatter) Success(data any) error {
	return f.encode(CLIResponse{Status: "ok", Data: data})
}

// Error reports err in the configured format.
func (f *OutputFormatter) Error(err error) {
	msg := core.MapError(err)
	if f.Format == "text" {
		fmt.Fprintf(f.GetErrWriter(), "Error: %s\n", core.FormatUserError(err))
		// The generic fallback says nothing useful on its own.
		if f.Verbose || !core.IsUserFacing(err) {
			fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", err)
		}
		return
	}
	_ = f.encode(CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: msg.Code, Message: msg.Message, Action: msg.Action},
	})
}

// Rows writes a check or import result. A non-empty only limits the listed
// rows to those statuses; the summary always counts every row.
func (f *OutputFormatter) Rows(rows []sermonimport.ResultRow, only map[sermonimport.Status]bool) error {
	report := newRowReport(rows)
	if f.Format != "text" {
		if len(only) > 0 {
			report.Results = make([]sermonimport.ResultRow, 0, len(rows))
			for _, row := range rows {
				if only[row.Status] {
					report.Results = append(report.Results, row)
				}
			}
		}
		return f.Success(report)
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tSTART\tSPEAKER\tMESSAGE")
	for i, row := range rows {
		if len(only) > 0 && !only[row.Status] {
			continue
		}
		msg := ""
		if row.Message != nil {
			msg = *row.Message
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, row.Status, row.EventStartTime, row.Speaker, msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(f.Writer)
	for _, st := range sermonimport.AllStatuses {
		if n := report.Summary[st.String()]; n > 0 {
			fmt.Fprintf(f.Writer, "%s: %d\n", st, n)
		}
	}
	return nil
}

// Events writes a list of persisted events.
func (f *OutputFormatter) Events(events []sermonimport.EventRecord) error {
	if f.Format != "text" {
		return f.Success(map[string]any{"events": events})
	}
	if len(events) == 0 {
		fmt.Fprintln(f.Writer, "No events in range")
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tTITLE\tSPEAKER\tCOLLECTIONS")
	for _, ev := range events {
		title := ""
		if ev.Title != nil {
			title = *ev.Title
		}
		for _, s := range eventSermons(ev) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
				ev.StartTime.Format("2006-01-02 15:04"), ev.EndTime.Format("15:04"),
				title, s.speaker, s.collections)
		}
	}
	return tw.Flush()
}

type sermonLine struct {
	speaker     string
	collections int
}

func eventSermons(ev sermonimport.EventRecord) []sermonLine {
	if len(ev.Sermons) == 0 {
		return []sermonLine{{speaker: "-"}}
	}
	lines := make([]sermonLine, 0, len(ev.Sermons))
	for _, s := range ev.Sermons {
		speaker := "-"
		if s.Speaker != nil {
			speaker = *s.Speaker
		}
		lines = append(lines, sermonLine{speaker: speaker, collections: len(s.Collections)})
	}
	return lines
}

// VerboseLog writes a diagnostic line when verbose is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
