package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
)

// scan builds a plugin set from a fixture directory.
func scan(t *testing.T, dir string) *plugin.Set {
	t.Helper()
	set, _, err := (&plugin.Scanner{Dir: dir, Format: plugin.FormatTES4}).Scan()
	require.NoError(t, err)
	return set
}

// failingActive is a plugins.txt whose next fail writes return an error.
type failingActive struct {
	PluginsTxt
	fail int
}

func (f *failingActive) Write(names []string) error {
	if f.fail > 0 {
		f.fail--
		return status.PathError(status.FileWriteFail, "write file", f.Path, errors.New("disk full"))
	}
	return f.PluginsTxt.Write(names)
}
