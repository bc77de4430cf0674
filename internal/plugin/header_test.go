package plugin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/testutil"
)

func TestParseHeader_TES4(t *testing.T) {
	h, err := ParseHeader(testutil.TES4Header(true), FormatTES4, "Master.esm")
	require.NoError(t, err)
	assert.True(t, h.Master)

	h, err = ParseHeader(testutil.TES4Header(false), FormatTES4, "Plugin.esp")
	require.NoError(t, err)
	assert.False(t, h.Master)
}

func TestParseHeader_TES3(t *testing.T) {
	h, err := ParseHeader(testutil.TES3Header(true), FormatTES3, "Morrowind.esm")
	require.NoError(t, err)
	assert.True(t, h.Master)

	h, err = ParseHeader(testutil.TES3Header(false), FormatTES3, "Plugin.esp")
	require.NoError(t, err)
	assert.False(t, h.Master)
}

func TestParseHeader_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"empty", nil, FormatTES4},
		{"short TES4", []byte("TES4"), FormatTES4},
		{"wrong magic", testutil.TES3Header(true), FormatTES4},
		{"TES4 as TES3", testutil.TES4Header(true), FormatTES3},
		{"text", []byte("this is not a plugin at all, honestly"), FormatTES3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.data, tt.format, "x.esp")
			require.Error(t, err)
			assert.True(t, status.Is(err, status.FileParseFail))
		})
	}
}

func TestParseHeader_UnknownFormat(t *testing.T) {
	_, err := ParseHeader(testutil.TES4Header(true), Format(9), "x.esp")
	assert.True(t, status.Is(err, status.InvalidArgs))
}

func TestReadHeader(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "Master.esm", testutil.TES4Header(true), testutil.BaseTime)

	master, err := IsMaster(path, FormatTES4)
	require.NoError(t, err)
	assert.True(t, master)

	_, err = ReadHeader(filepath.Join(dir, "Missing.esp"), FormatTES4)
	assert.True(t, status.Is(err, status.FileNotFound))
}
