package textio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		text     string
		encoding string
		bom      bool
	}{
		{
			name:     "plain utf-8",
			data:     []byte("Pooh ate honey."),
			text:     "Pooh ate honey.",
			encoding: "utf-8",
		},
		{
			name:     "utf-8 with bom",
			data:     append([]byte{0xEF, 0xBB, 0xBF}, "Piglet."...),
			text:     "Piglet.",
			encoding: "utf-8",
			bom:      true,
		},
		{
			name:     "utf-16le",
			data:     []byte{0xFF, 0xFE, 'H', 0, 'i', 0, '.', 0},
			text:     "Hi.",
			encoding: "utf-16le",
			bom:      true,
		},
		{
			name:     "utf-16be",
			data:     []byte{0xFE, 0xFF, 0, 'H', 0, 'i', 0, '.'},
			text:     "Hi.",
			encoding: "utf-16be",
			bom:      true,
		},
		{
			name:     "windows-1252 fallback",
			data:     []byte{'c', 'a', 'f', 0xE9, ' ', 0x93, 'o', 'k', 0x94},
			text:     "café “ok”",
			encoding: "windows-1252",
		},
		{
			name:     "decomposed accents are composed",
			data:     []byte("cafe\u0301"),
			text:     "caf\u00e9",
			encoding: "utf-8",
		},
		{
			name:     "empty",
			data:     nil,
			text:     "",
			encoding: "utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if res.Text != tt.text {
				t.Errorf("Text = %q, want %q", res.Text, tt.text)
			}
			if res.Encoding != tt.encoding {
				t.Errorf("Encoding = %q, want %q", res.Encoding, tt.encoding)
			}
			if res.HasBOM != tt.bom {
				t.Errorf("HasBOM = %t, want %t", res.HasBOM, tt.bom)
			}
		})
	}
}

func TestDecodeBinary(t *testing.T) {
	if _, err := Decode([]byte("PK\x03\x04\x00\x00binary")); !errors.Is(err, ErrBinary) {
		t.Errorf("expected ErrBinary, got %v", err)
	}
}

func TestRead(t *testing.T) {
	res, err := Read(strings.NewReader("Eeyore sighed."))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Text != "Eeyore sighed." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(path, []byte("Owl read a book.\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	res, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if res.Text != "Owl read a book.\n" {
		t.Errorf("Text = %q", res.Text)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
