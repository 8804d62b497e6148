// Package feed opens ITCH capture files for sequential reading.
package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

const bufferSize = 1 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// Source is a buffered byte source over a feed file. Gzip-compressed files
// are detected by their magic bytes and inflated transparently.
type Source struct {
	f  *os.File
	gz *gzip.Reader
	r  *bufio.Reader

	Path       string
	Compressed bool
}

func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}

	s := &Source{f: f, Path: path}
	br := bufio.NewReaderSize(f, bufferSize)

	magic, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("peek feed %s: %w", path, err)
	}

	if len(magic) == len(gzipMagic) && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		gz, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("gzip feed %s: %w", path, err)
		}
		s.gz = gz
		s.Compressed = true
		s.r = bufio.NewReaderSize(gz, bufferSize)
		return s, nil
	}

	s.r = br
	return s, nil
}

func (s *Source) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close releases the file and any decompressor.
func (s *Source) Close() error {
	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
	}
	return errors.Join(gzErr, s.f.Close())
}
