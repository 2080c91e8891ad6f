// Package host defines the restricted emit surface a command handler
// reports through.
//
// The hosting environment requires every call on this surface to originate
// from the single goroutine that drives the handler's lifecycle (the home
// goroutine). Nothing in this package enforces that; the cmdlet package's
// adapter exists precisely to uphold it on behalf of concurrent handler
// logic.
//
// # Implementations
//
// A no-op implementation is provided for non-interactive scenarios and
// tests:
//
//	api := host.NewNullHost()
//
// ConsoleHost writes each stream to the terminal with a stream prefix, the
// way an interactive hosting process renders them.
package host

import (
	"fmt"
	"io"
	"os"

	"github.com/smnsjas/go-pshost/records"
)

// API is the home-goroutine-only emit surface.
//
// Each method reports one object or message on the corresponding stream.
// A method returning an error signals that this particular emit failed;
// callers routing emits through the cmdlet adapter observe that failure on
// the call's completion, never as a panic.
type API interface {
	// EmitVerbose reports a verbose-stream message.
	EmitVerbose(text string) error

	// EmitDebug reports a debug-stream message.
	EmitDebug(text string) error

	// EmitWarning reports a warning-stream message.
	EmitWarning(text string) error

	// EmitError reports a non-terminating error record.
	EmitError(rec *records.ErrorRecord) error

	// EmitObject writes an object to the output stream. When enumerate is
	// true and the value is a slice, each element is written individually.
	EmitObject(v interface{}, enumerate bool) error

	// EmitProgress reports a progress record.
	EmitProgress(rec *records.ProgressRecord) error
}

// NullHost discards everything. Useful for tests and non-interactive runs.
type NullHost struct{}

// NewNullHost creates a host that discards all emits.
func NewNullHost() *NullHost {
	return &NullHost{}
}

func (*NullHost) EmitVerbose(string) error                   { return nil }
func (*NullHost) EmitDebug(string) error                     { return nil }
func (*NullHost) EmitWarning(string) error                   { return nil }
func (*NullHost) EmitError(*records.ErrorRecord) error       { return nil }
func (*NullHost) EmitObject(interface{}, bool) error         { return nil }
func (*NullHost) EmitProgress(*records.ProgressRecord) error { return nil }

// ConsoleHost renders each stream to a writer with a stream prefix.
// Output objects go to Out, everything else to Err.
type ConsoleHost struct {
	Out io.Writer
	Err io.Writer
}

// NewConsoleHost creates a ConsoleHost writing to stdout/stderr.
func NewConsoleHost() *ConsoleHost {
	return &ConsoleHost{Out: os.Stdout, Err: os.Stderr}
}

// EmitVerbose writes a VERBOSE-prefixed line.
func (h *ConsoleHost) EmitVerbose(text string) error {
	_, err := fmt.Fprintf(h.Err, "VERBOSE: %s\n", text)
	return err
}

// EmitDebug writes a DEBUG-prefixed line.
func (h *ConsoleHost) EmitDebug(text string) error {
	_, err := fmt.Fprintf(h.Err, "DEBUG: %s\n", text)
	return err
}

// EmitWarning writes a WARNING-prefixed line.
func (h *ConsoleHost) EmitWarning(text string) error {
	_, err := fmt.Fprintf(h.Err, "WARNING: %s\n", text)
	return err
}

// EmitError writes the error record's message and identifier.
func (h *ConsoleHost) EmitError(rec *records.ErrorRecord) error {
	_, err := fmt.Fprintf(h.Err, "ERROR: %s (%s: %s)\n",
		rec.Error(), rec.CategoryInfo.Category, rec.FullyQualifiedErrorID)
	return err
}

// EmitObject writes the object's default string form. Slices are unrolled
// when enumerate is set.
func (h *ConsoleHost) EmitObject(v interface{}, enumerate bool) error {
	if enumerate {
		if s, ok := v.([]interface{}); ok {
			for _, item := range s {
				if _, err := fmt.Fprintln(h.Out, item); err != nil {
					return err
				}
			}
			return nil
		}
	}
	_, err := fmt.Fprintln(h.Out, v)
	return err
}

// EmitProgress writes a single-line progress summary.
func (h *ConsoleHost) EmitProgress(rec *records.ProgressRecord) error {
	if rec.RecordType == records.ProgressRecordTypeCompleted {
		_, err := fmt.Fprintf(h.Err, "PROGRESS: %s: done\n", rec.Activity)
		return err
	}
	if rec.PercentComplete >= 0 {
		_, err := fmt.Fprintf(h.Err, "PROGRESS: %s: %s (%d%%)\n",
			rec.Activity, rec.StatusDescription, rec.PercentComplete)
		return err
	}
	_, err := fmt.Fprintf(h.Err, "PROGRESS: %s: %s\n", rec.Activity, rec.StatusDescription)
	return err
}
