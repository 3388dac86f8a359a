package archive

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
)

// Info holds metadata about an existing archive file.
type Info struct {
	Path      string // Full filesystem path
	Filename  string // Base filename
	Size      int64  // File size in bytes
	Timestamp string // From manifest, or file mod time
	Source    string // From manifest
	Objects   int    // From manifest
	Accounts  int    // From manifest
}

// List scans an archive directory for .tar.gz files and returns info
// about each, sorted newest-first.
func List(dir string) ([]Info, error) {
	pattern := filepath.Join(dir, "*.tar.gz")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("archive: glob %s: %w", pattern, err)
	}

	var archives []Info
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}

		ai := Info{
			Path:      path,
			Filename:  filepath.Base(path),
			Size:      fi.Size(),
			Timestamp: fi.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if m, err := ReadManifest(path); err == nil {
			ai.Timestamp = m.Timestamp
			ai.Source = m.Source
			ai.Objects = m.Objects
			ai.Accounts = m.Accounts
		}
		archives = append(archives, ai)
	}

	// RFC3339 sorts lexically.
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp > archives[j].Timestamp
	})
	return archives, nil
}

// ReadManifest extracts the manifest from an archive without checking
// any checksums.
func ReadManifest(archivePath string) (*Manifest, error) {
	var m *Manifest
	err := walk(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Name != EntryManifest {
			return nil
		}
		var err error
		m, err = decodeManifest(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("archive: %s: %s not found", archivePath, EntryManifest)
	}
	return m, nil
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("archive: parse manifest: %w", err)
	}
	return &m, nil
}

// walk calls fn for every regular file in a .tar.gz.
func walk(archivePath string, fn func(hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("archive: %s: %w", archivePath, err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: %s: %w", archivePath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}
