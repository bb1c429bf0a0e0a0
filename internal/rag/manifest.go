package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const manifestName = "manifest.toml"

// Manifest records what a persisted collection was built from.
type Manifest struct {
	Collection  string    `toml:"collection"`
	ConfigHash  string    `toml:"config_hash"`
	ContentHash string    `toml:"content_hash"`
	Sources     []string  `toml:"sources"`
	Chunks      int       `toml:"chunks"`
	BuiltAt     time.Time `toml:"built_at"`
}

// configHash covers everything that shapes the index apart from the page
// text itself.
func configHash(opts Options) string {
	h := sha256.New()
	for _, u := range opts.URLs {
		h.Write([]byte(u))
		h.Write([]byte{0})
	}
	h.Write([]byte(strconv.Itoa(opts.ChunkSize)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(opts.ChunkOverlap)))
	h.Write([]byte{0})
	h.Write([]byte(opts.EmbeddingModel))
	return hex.EncodeToString(h.Sum(nil))
}

func contentHash(pages []Page) string {
	h := sha256.New()
	for _, p := range pages {
		h.Write([]byte(p.URL))
		h.Write([]byte{0})
		h.Write([]byte(p.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func readManifest(dir string) (Manifest, bool, error) {
	var m Manifest
	_, err := toml.DecodeFile(filepath.Join(dir, manifestName), &m)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, fmt.Errorf("reading index manifest: %w", err)
	}
	return m, true, nil
}

func writeManifest(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, manifestName))
	if err != nil {
		return fmt.Errorf("writing index manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encoding index manifest: %w", err)
	}
	return nil
}
