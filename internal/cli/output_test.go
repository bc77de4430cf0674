package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/status"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	warnings := []status.Warning{status.Mismatch("active plugin missing from load order", "C.esp")}
	err := formatter.Success("ignored\n", ActiveResult{Active: []string{"Skyrim.esm"}}, warnings)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, []string{"LO_MISMATCH: active plugin missing from load order: C.esp"}, resp.Warnings)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("FILE_NOT_FOUND", "plugin not installed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FILE_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "plugin not installed", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
	}

	warnings := []status.Warning{{Code: status.BadFilename, Message: "x"}}
	err := formatter.Success("Skyrim.esm\n", nil, warnings)
	require.NoError(t, err)
	assert.Equal(t, "Skyrim.esm\n", out.String())
	assert.Equal(t, "warning: BAD_FILENAME: x\n", errOut.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
	}

	err := formatter.Error("INVALID_ARGS", "index out of range", map[string]int{"index": 9})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [INVALID_ARGS]: index out of range")
	assert.NotContains(t, errOut.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("INVALID_ARGS", "index out of range", map[string]int{"index": 9})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [INVALID_ARGS]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("opening %s", "skyrim")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "opening skyrim")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", WrapExitError(ExitFailure, "violations", errors.New("x")), ExitFailure},
		{"status error", StatusExitError("open", status.Errorf(status.InvalidArgs, "empty path")), ExitStatusBase + 12},
		{"not found", StatusExitError("move", status.Errorf(status.FileNotFound, "missing")), ExitStatusBase + 6},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	cause := status.Errorf(status.LoadOrderMismatch, "master after plugin")
	err := StatusExitError("failed to set load order", cause)

	assert.True(t, status.Is(err, status.LoadOrderMismatch))
	assert.Equal(t, "failed to set load order: "+cause.Error(), err.Error())
}
