package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// RestoreParams holds all inputs needed to restore an archive.
type RestoreParams struct {
	ArchivePath string // Path to the .tar.gz archive
	StoreDest   string // Destination for the world store (empty = skip)
	LedgerDest  string // Destination for the remap ledger (empty = skip)
	ReportDest  string // Destination for the JSON report (empty = skip)
	Force       bool   // Overwrite existing destination files
}

// RestoreResult summarizes a completed restore operation.
type RestoreResult struct {
	Manifest      *Manifest
	FilesRestored int
}

// Verify reads the whole archive and checks every file against the
// manifest checksums.
func Verify(archivePath string) (*Manifest, error) {
	sums := make(map[string]FileEntry)
	var m *Manifest
	err := walk(archivePath, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Name == EntryManifest {
			var err error
			m, err = decodeManifest(r)
			return err
		}
		h := sha256.New()
		n, err := io.Copy(h, r)
		if err != nil {
			return fmt.Errorf("archive: read %s: %w", hdr.Name, err)
		}
		sums[hdr.Name] = FileEntry{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("archive: %s: %s not found", archivePath, EntryManifest)
	}

	for name, want := range m.Files {
		got, ok := sums[name]
		if !ok {
			return nil, fmt.Errorf("archive: %s listed in manifest but missing", name)
		}
		if got.SHA256 != want.SHA256 || got.Size != want.Size {
			return nil, fmt.Errorf("archive: checksum mismatch for %s; archive may be corrupt", name)
		}
	}
	return m, nil
}

// Restore verifies an archive, then copies its files to their
// destinations. Existing files are left alone unless Force is set.
func Restore(p RestoreParams) (*RestoreResult, error) {
	m, err := Verify(p.ArchivePath)
	if err != nil {
		return nil, err
	}

	dests := map[string]string{
		EntryStore:  p.StoreDest,
		EntryLedger: p.LedgerDest,
		EntryReport: p.ReportDest,
	}
	for name, dest := range dests {
		if dest == "" {
			continue
		}
		if _, listed := m.Files[name]; !listed {
			continue
		}
		if _, err := os.Stat(dest); err == nil && !p.Force {
			return nil, fmt.Errorf("restore: %s already exists", dest)
		}
	}

	tmpDir, err := os.MkdirTemp("", "pennport-restore-*")
	if err != nil {
		return nil, fmt.Errorf("restore: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	if err := extract(p.ArchivePath, tmpDir); err != nil {
		return nil, fmt.Errorf("restore: extract: %w", err)
	}

	res := &RestoreResult{Manifest: m}
	for name, dest := range dests {
		if dest == "" {
			continue
		}
		if _, listed := m.Files[name]; !listed {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, fmt.Errorf("restore: create dir for %s: %w", dest, err)
		}
		if err := copyFile(filepath.Join(tmpDir, filepath.FromSlash(name)), dest); err != nil {
			return nil, fmt.Errorf("restore: %s: %w", name, err)
		}
		res.FilesRestored++
	}
	return res, nil
}

func extract(archivePath, destDir string) error {
	return walk(archivePath, func(hdr *tar.Header, r io.Reader) error {
		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid archive entry: %s", hdr.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// copyFile replaces dst with the contents of src atomically.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return atomic.WriteFile(dst, in)
}
