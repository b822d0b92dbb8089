package dumperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	ErrFilesystem    = errors.New("filesystem error")
	ErrToolNotFound  = errors.New("tool not found")
)

// ConfigurationError reports a problem with an entry's settings: unknown or
// missing strategy, invalid compression format, invalid naming template.
type ConfigurationError struct {
	Entry  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Entry != "" {
		fmt.Fprintf(&b, " in %q", e.Entry)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for the given entry.
func Configf(entry, format string, args ...interface{}) error {
	return &ConfigurationError{Entry: entry, Reason: fmt.Sprintf(format, args...)}
}

// ExternalToolError reports a failed invocation of a dump, filter, archive or
// compress tool. ExitCode is -1 when the process never ran.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

func (e *ExternalToolError) Is(target error) bool { return target == ErrExternalTool }

// FilesystemError reports a filesystem operation that failed for reasons
// other than those the caller already handles (e.g. an existing alias).
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func (e *FilesystemError) Is(target error) bool { return target == ErrFilesystem }

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsExternalTool reports whether err is (or wraps) an ExternalToolError.
func IsExternalTool(err error) bool { return errors.Is(err, ErrExternalTool) }

// IsFilesystem reports whether err is (or wraps) a FilesystemError.
func IsFilesystem(err error) bool { return errors.Is(err, ErrFilesystem) }
