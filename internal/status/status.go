// Package status defines the closed set of return codes surfaced to callers
// and the Error and Warning types that carry them.
//
// Error codes abort an operation and trigger rollback. Warning codes signal
// a problem that did not stop the operation from completing; they are
// returned alongside a nil error.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a return code. Values are stable and shared with external callers.
type Code uint

const (
	OK                 Code = 0
	BadFilename        Code = 1
	LoadOrderMismatch  Code = 2
	FileReadFail       Code = 3
	FileWriteFail      Code = 4
	FileNotUTF8        Code = 5
	FileNotFound       Code = 6
	FileRenameFail     Code = 7
	TimestampReadFail  Code = 8
	TimestampWriteFail Code = 9
	FileParseFail      Code = 10
	NoMemory           Code = 11
	InvalidArgs        Code = 12
)

// Max is the highest defined code.
const Max = InvalidArgs

var codeNames = map[Code]string{
	OK:                 "OK",
	BadFilename:        "BAD_FILENAME",
	LoadOrderMismatch:  "LO_MISMATCH",
	FileReadFail:       "FILE_READ_FAIL",
	FileWriteFail:      "FILE_WRITE_FAIL",
	FileNotUTF8:        "FILE_NOT_UTF8",
	FileNotFound:       "FILE_NOT_FOUND",
	FileRenameFail:     "FILE_RENAME_FAIL",
	TimestampReadFail:  "TIMESTAMP_READ_FAIL",
	TimestampWriteFail: "TIMESTAMP_WRITE_FAIL",
	FileParseFail:      "FILE_PARSE_FAIL",
	NoMemory:           "NO_MEM",
	InvalidArgs:        "INVALID_ARGS",
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", uint(c))
}

// IsWarning reports whether the code is a warning rather than an error.
func (c Code) IsWarning() bool {
	return c == BadFilename || c == LoadOrderMismatch
}

// Error is an error carrying a return code.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Path is the file involved, if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path=%s)", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// PathError creates an Error for a failed operation on path.
func PathError(code Code, message, path string, err error) *Error {
	return &Error{Code: code, Message: message, Path: path, Err: err}
}

// CodeOf extracts the return code from err.
// Returns OK for nil and InvalidArgs for errors that carry no code.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return InvalidArgs
}

// Is reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// Warning reports a problem that did not prevent an operation from
// completing.
type Warning struct {
	Code    Code
	Message string

	// Plugins lists the plugin names the warning concerns.
	Plugins []string
}

func (w Warning) String() string {
	if len(w.Plugins) == 0 {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Code, w.Message, strings.Join(w.Plugins, ", "))
}

// Mismatch creates a LoadOrderMismatch warning.
func Mismatch(message string, plugins ...string) Warning {
	return Warning{Code: LoadOrderMismatch, Message: message, Plugins: plugins}
}

// Highest returns the most significant code among warnings, which is the
// single code a caller limited to one return value should see.
// Returns OK when there are no warnings.
func Highest(warnings []Warning) Code {
	code := OK
	for _, w := range warnings {
		if w.Code > code {
			code = w.Code
		}
	}
	return code
}
