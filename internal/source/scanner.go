// Package source reads and writes expense history tables.
package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/finassist/internal/model"
)

// Discover stats a history file so callers can decide whether a cached
// result for it is still valid.
func Discover(path string) (DiscoveredFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return DiscoveredFile{}, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
		}
		return DiscoveredFile{}, err
	}
	if info.IsDir() {
		return DiscoveredFile{}, fmt.Errorf("%w: %s is a directory", model.ErrMalformedInput, path)
	}
	return DiscoveredFile{
		Path:    abs,
		MtimeNs: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}, nil
}
