package flatfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/charmap"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decode wraps a latin-1 byte stream so it reads as UTF-8.
func Decode(r io.Reader) io.Reader {
	return charmap.ISO8859_1.NewDecoder().Reader(r)
}

// Open opens a dump file for parsing. Gzip and zstd compressed dumps are
// recognised by their magic bytes and decompressed transparently. The
// returned reader yields decoded text.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flatfile: %w", err)
	}
	br := bufio.NewReader(f)
	head, _ := br.Peek(4)

	var src io.Reader = br
	var closeFn func() error = f.Close

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open flatfile %s: gzip: %w", path, err)
		}
		src = zr
		closeFn = func() error {
			zr.Close()
			return f.Close()
		}
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open flatfile %s: zstd: %w", path, err)
		}
		src = zr
		closeFn = func() error {
			zr.Close()
			return f.Close()
		}
	}

	return &dumpReader{Reader: Decode(src), close: closeFn}, nil
}

type dumpReader struct {
	io.Reader
	close func() error
}

func (d *dumpReader) Close() error {
	return d.close()
}

// Load reads a dump from disk and returns the parsed, linked snapshot.
func Load(path string, opts ...Option) (*gamedb.Database, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	db, err := Parse(rc, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	db.Link()
	return db, nil
}
