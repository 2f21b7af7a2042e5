package bundle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the on-disk encoding used by Save.
type Format string

const (
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// sqliteMagic is the first 16 bytes of every SQLite 3 database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// ParseFormat validates a format name. Empty means FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("unknown bundle format %q (want json or sqlite)", s)
	}
}

// Loader reads a model file.
type Loader interface {
	Load(path string) (Record, error)
}

// Saver writes a model file.
type Saver interface {
	Save(path string, rec Record, format Format) error
}

// Files is the default filesystem-backed Loader and Saver.
type Files struct{}

// Load implements Loader.
func (Files) Load(path string) (Record, error) { return Load(path) }

// Save implements Saver.
func (Files) Save(path string, rec Record, format Format) error { return Save(path, rec, format) }

// Load reads the model file at path. The encoding is detected from the
// file header, so the file extension does not matter.
func Load(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	header := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, header)
	f.Close()
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}

	var rec Record
	if n == len(sqliteMagic) && bytes.Equal(header, sqliteMagic) {
		rec, err = readSQLite(path)
	} else {
		rec, err = readJSON(path)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	return rec, nil
}

// Save writes rec to path in the given format, replacing any existing
// file. The data is written to a temporary file next to path and renamed
// into place once complete.
func Save(path string, rec Record, format Format) error {
	if format == "" {
		format = FormatJSON
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	switch format {
	case FormatJSON:
		err = writeJSON(tmp, rec)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
	case FormatSQLite:
		tmp.Close()
		err = writeSQLite(tmpPath, rec)
	default:
		tmp.Close()
		err = fmt.Errorf("unknown bundle format %q", format)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
