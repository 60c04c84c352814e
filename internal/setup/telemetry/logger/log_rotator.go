package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator is an append-only log file that keeps at most maxLines lines.
// The tail of the file is mirrored in memory and the file is rewritten from
// that tail once twice the limit has been written.
type LogRotator struct {
	file     *os.File
	path     string
	tail     []string
	next     int
	full     bool
	written  int
	maxLines int
	mu       sync.Mutex
}

// OpenLogRotator opens or creates the log file at path.
func OpenLogRotator(path string, maxLines int) (*LogRotator, error) {
	if maxLines < 1 {
		maxLines = 1
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &LogRotator{
		file:     file,
		path:     path,
		tail:     make([]string, maxLines),
		maxLines: maxLines,
	}, nil
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.remember(line)
	}

	// Rotate only between writes so the file never loses part of a chunk
	if w.written >= w.maxLines*2 {
		if err := w.rewrite(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}

		w.written = w.maxLines
	}

	return n, nil
}

// Sync flushes the underlying file.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// Close closes the underlying file.
func (w *LogRotator) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

func (w *LogRotator) remember(line string) {
	w.tail[w.next] = line

	w.next++
	if w.next == w.maxLines {
		w.next = 0
		w.full = true
	}

	w.written++
}

// lines returns the remembered tail, oldest first.
func (w *LogRotator) lines() []string {
	if !w.full {
		return append([]string(nil), w.tail[:w.next]...)
	}

	out := make([]string, 0, w.maxLines)
	out = append(out, w.tail[w.next:]...)

	return append(out, w.tail[:w.next]...)
}

// rewrite replaces the file with the remembered tail.
func (w *LogRotator) rewrite() error {
	lines := w.lines()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	if _, err := temp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Sync(); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	temp.Close()
	w.file.Close()

	// Windows refuses to rename over an existing file
	os.Remove(w.path)

	if err := os.Rename(tempPath, w.path); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.file = file

	return nil
}
