package indexer

import (
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FileHash computes the xxhash64 of a file's content and returns it with
// the modification time read before hashing.
func FileHash(path string) (uint64, time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer func() { _ = file.Close() }()

	// Get file info
	info, err := file.Stat()
	if err != nil {
		return 0, time.Time{}, err
	}

	hash := xxhash.New()
	if _, err := io.Copy(hash, file); err != nil {
		return 0, time.Time{}, err
	}
	return hash.Sum64(), info.ModTime(), nil
}

// SettingsHash fingerprints the serialized settings of a source group.
func SettingsHash(text string) uint64 {
	return xxhash.Sum64String(text)
}
