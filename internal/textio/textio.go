// Package textio reads story text from files and streams and hands it to the
// scorer as clean, NFC-normalised UTF-8.
package textio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrBinary = errors.New("input looks like binary data")

const maxInputBytes = 16 * 1024 * 1024

type Result struct {
	Text     string `json:"text"`
	Encoding string `json:"encoding"`
	HasBOM   bool   `json:"has_bom"`
}

func ReadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := Read(f)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return res, nil
}

// Read decodes r. A byte order mark selects UTF-8 or UTF-16; without one,
// valid UTF-8 is taken as is and anything else is decoded as Windows-1252.
func Read(r io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return Result{}, err
	}
	if len(data) > maxInputBytes {
		return Result{}, fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	return Decode(data)
}

func Decode(data []byte) (Result, error) {
	name, enc, bom := detect(data)

	var text string
	if enc == nil {
		text = string(data[bom:])
	} else {
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data[bom:])
		if err != nil {
			return Result{}, fmt.Errorf("decode %s: %w", name, err)
		}
		text = string(decoded)
	}

	if bytes.IndexByte([]byte(text), 0) >= 0 {
		return Result{}, ErrBinary
	}

	return Result{
		Text:     norm.NFC.String(text),
		Encoding: name,
		HasBOM:   bom > 0,
	}, nil
}

// detect returns the encoding name, its decoder (nil for UTF-8) and the
// length of the byte order mark.
func detect(data []byte) (string, encoding.Encoding, int) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return "utf-8", nil, 3
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return "utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), 2
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return "utf-16be", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), 2
	case utf8.Valid(data):
		return "utf-8", nil, 0
	default:
		return "windows-1252", charmap.Windows1252, 0
	}
}
