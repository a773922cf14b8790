package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"frontporch/internal/application/orchestrators"
	"frontporch/internal/domain/slot"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Nothing to do, or an unexpected failure
	ExitCommandError = 2 // Command error (bad flags, missing snapshot, declined confirmation)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional
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
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope for --output json.
type Response struct {
	Status string `json:"status"` // "ok"
	Data   any    `json:"data"`
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Response{Status: "ok", Data: data})
}

// RestoreReport is what a finished restore prints.
type RestoreReport struct {
	Database string                       `json:"database"`
	Snapshot string                       `json:"snapshot"`
	Admin    string                       `json:"admin,omitempty"`
	Summary  orchestrators.RestoreSummary `json:"summary"`
}

// WriteRestoreText prints the human-readable restore summary.
func WriteRestoreText(w io.Writer, r RestoreReport) {
	s := r.Summary
	fmt.Fprintf(w, "Restored %d signups into %s\n", s.Total, r.Database)

	fmt.Fprintln(w, "Signups by day:")
	for _, d := range s.ByDay {
		fmt.Fprintf(w, "  %s: %d\n", d.Day, d.Count)
	}
	fmt.Fprintln(w, "Signups by hour:")
	for _, h := range s.ByHour {
		fmt.Fprintf(w, "  %s: %d\n", slot.FormatHourLong(h.Hour), h.Count)
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d records:\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			fmt.Fprintf(w, "  %s %s  %s (%s)\n",
				sk.Record.Day, slot.FormatHourLong(sk.Record.Hour), sk.Record.Name, sk.Reason)
		}
	}
	if s.AdminCreated {
		fmt.Fprintf(w, "Admin account %q created.\n", r.Admin)
	}
}
