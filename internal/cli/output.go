package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"github.com/roach88/ontogen/internal/domainerr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation, compatibility or scenario failure
	ExitCommandError = 2 // Command error (missing files, unreadable baseline, bad flags)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config file unreadable or invalid
	ErrCodeSyntax      = "E003" // Ontology text rejected by the parser
	ErrCodeSemantic    = "E004" // Ontology rejected by the validator
	ErrCodePolicy      = "E005" // Declared version bump below the required bump
	ErrCodeIO          = "E006" // Ontology, baseline or history unreadable
	ErrCodeWriteFailed = "E007" // Output file could not be written
	ErrCodeQuery       = "E008" // Listing request does not fit its contract
	ErrCodeTestFailed  = "E009" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ExitCodeFor maps a pipeline error to an exit code. Syntax, Semantic and
// Policy errors are findings about the user's ontology; anything else
// means the command could not do its job.
func ExitCodeFor(err error) int {
	var de *domainerr.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domainerr.KindSyntax, domainerr.KindSemantic, domainerr.KindPolicy:
			return ExitFailure
		}
	}
	return ExitCommandError
}

// errorCodeFor maps a pipeline error to a CLIError code.
func errorCodeFor(err error) string {
	var de *domainerr.Error
	if !errors.As(err, &de) {
		return ErrCodeGeneric
	}
	switch de.Kind {
	case domainerr.KindSyntax:
		return ErrCodeSyntax
	case domainerr.KindSemantic:
		return ErrCodeSemantic
	case domainerr.KindPolicy:
		return ErrCodePolicy
	default:
		return ErrCodeIO
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code        string `json:"code"`                  // "E001", "E002", etc.
	Message     string `json:"message"`               // human-readable message
	Details     any    `json:"details,omitempty"`     // additional context
	Remediation string `json:"remediation,omitempty"` // what to do about it
}

var (
	okMark   = color.New(color.FgGreen, color.Bold)
	failMark = color.New(color.FgRed, color.Bold)
	warnMark = color.New(color.FgYellow)
)

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.errorWithRemediation(code, message, details, "")
}

func (f *OutputFormatter) errorWithRemediation(code, message string, details any, remediation string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:        code,
				Message:     message,
				Details:     details,
				Remediation: remediation,
			},
		})
	}

	// Human-readable error
	failMark.Fprintf(f.Writer, "Error [%s]: ", code)
	fmt.Fprintln(f.Writer, message)
	switch d := details.(type) {
	case nil:
	case []string:
		for _, line := range d {
			fmt.Fprintf(f.Writer, "  - %s\n", line)
		}
	default:
		if f.Verbose {
			fmt.Fprintf(f.Writer, "Details: %v\n", d)
		}
	}
	if remediation != "" {
		fmt.Fprintf(f.Writer, "Hint: %s\n", remediation)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// Domain errors keep their details and remediation.
func (f *OutputFormatter) Fail(err error) error {
	var de *domainerr.Error
	if errors.As(err, &de) {
		var details any
		if len(de.Details) > 0 {
			details = de.Details
		}
		if outErr := f.errorWithRemediation(errorCodeFor(err), de.Error(), details, de.Remediation); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCodeFor(err), string(de.Kind), err)
	}
	if outErr := f.Error(ErrCodeGeneric, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "command failed", err)
}

// Check prints a green check line in text mode.
func (f *OutputFormatter) Check(format string, args ...any) {
	if f.Format == "json" {
		return
	}
	okMark.Fprint(f.Writer, "✓ ")
	fmt.Fprintf(f.Writer, format+"\n", args...)
}

// Cross prints a red cross line in text mode.
func (f *OutputFormatter) Cross(format string, args ...any) {
	if f.Format == "json" {
		return
	}
	failMark.Fprint(f.Writer, "✗ ")
	fmt.Fprintf(f.Writer, format+"\n", args...)
}

// Warn prints a warning to the diagnostic writer in every format, so JSON
// on stdout stays parseable.
func (f *OutputFormatter) Warn(format string, args ...any) {
	w := f.GetErrWriter()
	warnMark.Fprint(w, "warning: ")
	fmt.Fprintf(w, format+"\n", args...)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
