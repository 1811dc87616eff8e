package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"authwatch/internal/logger"
)

// ErrNoInput is returned when none of the configured paths could be read.
var ErrNoInput = errors.New("no readable log files")

const maxLineBytes = 1024 * 1024

// Reader reads raw lines from log files. A directory path expands to the
// *.log files it contains.
type Reader struct {
	paths []string
}

// NewReader creates a file line reader.
func NewReader(paths ...string) (*Reader, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one input path is required")
	}
	return &Reader{paths: append([]string(nil), paths...)}, nil
}

// Name returns the source identifier.
func (r *Reader) Name() string {
	return "file"
}

// ReadLines reads every line of every file in path order. Missing files are
// skipped with a warning as long as one file is readable.
func (r *Reader) ReadLines(ctx context.Context) ([]string, error) {
	files, err := r.expand()
	if err != nil {
		return nil, err
	}

	var lines []string
	read := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := readFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("Skipping %s: file not found", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		logger.Infof("Extracted %d log entries from %s", len(got), path)
		lines = append(lines, got...)
		read++
	}
	if read == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, strings.Join(r.paths, ", "))
	}
	if len(files) > 1 {
		logger.Infof("Total extracted: %d entries from %d files", len(lines), read)
	}
	return lines, nil
}

// Close is a no-op; files are closed after reading.
func (r *Reader) Close() error {
	return nil
}

func (r *Reader) expand() ([]string, error) {
	var out []string
	for _, p := range r.paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		logs, err := ListLogs(p)
		if err != nil {
			return nil, err
		}
		if len(logs) == 0 {
			logger.Warnf("No .log files in %s", p)
		}
		out = append(out, logs...)
	}
	return out, nil
}

// ListLogs returns the *.log files directly under dir, sorted by name.
func ListLogs(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	lines, truncated, err := readLines(bufio.NewReaderSize(f, maxLineBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if truncated > 0 {
		logger.Warnf("Truncated %d lines longer than %d bytes in %s", truncated, maxLineBytes, path)
	}
	return lines, nil
}

// readLines splits r into lines. A line longer than the reader buffer is kept
// as its leading buffer-sized prefix so it still reaches the parser and is
// counted as a rejected line; the remainder is discarded.
func readLines(r *bufio.Reader) ([]string, int, error) {
	var (
		lines     []string
		truncated int
	)
	for {
		line, isPrefix, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines, truncated, nil
		}
		if err != nil {
			return nil, truncated, err
		}
		lines = append(lines, string(line))
		if !isPrefix {
			continue
		}
		truncated++
		for isPrefix {
			_, isPrefix, err = r.ReadLine()
			if errors.Is(err, io.EOF) {
				return lines, truncated, nil
			}
			if err != nil {
				return nil, truncated, err
			}
		}
	}
}
