// Package filesystem discovers and opens WDC hourly-mean files on local disk,
// transparently decompressing .gz and .zst archives.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

const (
	extWDC  = ".wdc"
	extGzip = ".gz"
	extZstd = ".zst"

	gzipBlockSize = 256 * 1024
)

// Source implements pipeline.Source over a directory tree.
type Source struct {
	root   string
	logger *slog.Logger
}

// NewSource creates a Source rooted at dir.
func NewSource(dir string, logger *slog.Logger) *Source {
	return &Source{root: dir, logger: logger}
}

// IsWDCFile reports whether name looks like a WDC file, compressed or not.
// Matching is case-insensitive.
func IsWDCFile(name string) bool {
	lower := strings.ToLower(name)
	lower = strings.TrimSuffix(strings.TrimSuffix(lower, extGzip), extZstd)
	return strings.HasSuffix(lower, extWDC)
}

// Discover walks the root directory and returns every WDC file in lexical
// path order.
func (s *Source) Discover(ctx context.Context) ([]domain.SourceFile, error) {
	var files []domain.SourceFile
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsWDCFile(d.Name()) {
			return nil
		}
		files = append(files, domain.SourceFile{Path: path, Name: d.Name()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	s.logger.Debug("input files discovered", "dir", s.root, "files", len(files))
	return files, nil
}

// Open returns the decompressed contents of f.
func (s *Source) Open(_ context.Context, f domain.SourceFile) (io.ReadCloser, error) {
	return OpenFile(f.Path)
}

// OpenFile opens a WDC or auxiliary table file, decompressing by extension.
func OpenFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case extGzip:
		gz, err := pgzip.NewReaderN(file, gzipBlockSize, runtime.NumCPU())
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		return &stackedReader{Reader: gz, closers: []io.Closer{gz, file}}, nil
	case extZstd:
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open zstd %s: %w", path, err)
		}
		zr := dec.IOReadCloser()
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, file}}, nil
	default:
		return file, nil
	}
}

// stackedReader closes a decompressor and its underlying file together.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (r *stackedReader) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
