package plugin

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/roach88/loadorder/internal/status"
)

// Encodable reports whether every code point of name maps to a byte in
// Windows-1252. The five bytes Windows-1252 leaves undefined (0x81, 0x8D,
// 0x8F, 0x90, 0x9D) do not count, even though the charmap passes the
// matching C1 controls through to them.
func Encodable(name string) bool {
	for _, r := range name {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok || undefined1252(b) {
			return false
		}
	}
	return true
}

func undefined1252(b byte) bool {
	switch b {
	case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
		return true
	}
	return false
}

// ValidateFilename returns a BadFilename error if name cannot be written in
// the games' legacy encoding.
func ValidateFilename(name string) error {
	if name == "" {
		return status.Errorf(status.InvalidArgs, "empty plugin filename")
	}
	if !Encodable(name) {
		return status.Errorf(status.BadFilename, "plugin filename %q has characters without Windows-1252 code points", name)
	}
	return nil
}
