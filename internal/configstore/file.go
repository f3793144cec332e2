package configstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the on-disk encoding of a store.
type Format int

const (
	FormatXML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	default:
		return "xml"
	}
}

// FormatForPath picks the format from the file extension. Anything that is
// not .toml is treated as XML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatXML
}

// Parse reads a store in the given format.
func Parse(r io.Reader, format Format) (*Store, error) {
	s := New()
	var err error
	switch format {
	case FormatTOML:
		err = decodeTOML(r, s)
	default:
		err = decodeXML(r, s)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Marshal encodes the store in the given format.
func (s *Store) Marshal(format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatTOML:
		err = encodeTOML(&buf, s)
	default:
		err = encodeXML(&buf, s)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a settings file, choosing the format by extension.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	s, err := Parse(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes the store to path atomically, choosing the format by
// extension.
func (s *Store) Save(path string) error {
	data, err := s.Marshal(FormatForPath(path))
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
