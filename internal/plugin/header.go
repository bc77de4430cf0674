package plugin

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/roach88/loadorder/internal/status"
)

// Format identifies a plugin header layout.
type Format int

const (
	// FormatTES4 is used by Oblivion, Skyrim, Fallout 3 and Fallout: New Vegas.
	// The master flag is bit 0 of the record flags at offset 8.
	FormatTES4 Format = iota

	// FormatTES3 is used by Morrowind. The master flag is the file type field
	// of the HEDR subrecord.
	FormatTES3
)

func (f Format) String() string {
	switch f {
	case FormatTES3:
		return "TES3"
	case FormatTES4:
		return "TES4"
	default:
		return "unknown"
	}
}

const (
	tes4FlagsOffset = 8
	tes4HeaderMin   = 12
	tes4MasterFlag  = 0x1

	tes3HEDROffset     = 16
	tes3FileTypeOffset = 28
	tes3HeaderMin      = 32
	tes3MasterFileType = 1
)

// Header holds the header fields the load order engine needs.
type Header struct {
	Master bool
}

// ReadHeader reads the header of the plugin file at path.
// Fails with FileReadFail if the file cannot be opened or read and with
// FileParseFail if the header is not a recognisable plugin header.
func ReadHeader(path string, format Format) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Header{}, status.PathError(status.FileNotFound, "open plugin", path, err)
		}
		return Header{}, status.PathError(status.FileReadFail, "open plugin", path, err)
	}
	defer f.Close()

	buf := make([]byte, tes3HeaderMin)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Header{}, status.PathError(status.FileReadFail, "read plugin header", path, err)
	}
	return ParseHeader(buf[:n], format, path)
}

// ParseHeader parses a header from the leading bytes of a plugin file.
// path is only used for error reporting.
func ParseHeader(data []byte, format Format, path string) (Header, error) {
	switch format {
	case FormatTES4:
		if len(data) < tes4HeaderMin || string(data[:4]) != "TES4" {
			return Header{}, status.PathError(status.FileParseFail, "not a TES4 plugin header", path, nil)
		}
		flags := binary.LittleEndian.Uint32(data[tes4FlagsOffset:])
		return Header{Master: flags&tes4MasterFlag != 0}, nil
	case FormatTES3:
		if len(data) < tes3HeaderMin || string(data[:4]) != "TES3" ||
			string(data[tes3HEDROffset:tes3HEDROffset+4]) != "HEDR" {
			return Header{}, status.PathError(status.FileParseFail, "not a TES3 plugin header", path, nil)
		}
		fileType := binary.LittleEndian.Uint32(data[tes3FileTypeOffset:])
		return Header{Master: fileType == tes3MasterFileType}, nil
	default:
		return Header{}, status.Errorf(status.InvalidArgs, "unknown plugin format %d", int(format))
	}
}

// IsMaster reports whether the plugin at path has its master flag set.
func IsMaster(path string, format Format) (bool, error) {
	h, err := ReadHeader(path, format)
	if err != nil {
		return false, err
	}
	return h.Master, nil
}
