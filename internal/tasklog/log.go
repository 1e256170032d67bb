// Package tasklog reads and writes the completed-task log: one line per
// successfully executed task, appended as soon as the task finishes so that an
// interrupted run can resume where it stopped.
package tasklog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/harrison/codecbench/internal/filelock"
	"github.com/harrison/codecbench/internal/models"
)

// BackupSuffix is appended to the log path while distortions are recomputed.
const BackupSuffix = ".bck"

// Load reads every entry of the log at path. A missing file is an empty log.
// With noDistortion set, distortion fields are ignored and left zeroed.
func Load(path string, noDistortion bool) ([]models.TaskOutput, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open completed-task log: %w", err)
	}
	defer f.Close()

	parse := Parse
	if noDistortion {
		parse = ParseNoDistortion
	}

	var outputs []models.TaskOutput
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		output, err := parse(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNumber, err)
		}
		outputs = append(outputs, output)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read completed-task log: %w", err)
	}
	return outputs, nil
}

// Rotate moves the log at path to its backup location and returns it.
// Any previous backup is replaced.
func Rotate(path string) (string, error) {
	backup := path + BackupSuffix
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up completed-task log: %w", err)
	}
	return backup, nil
}

// Rewrite atomically replaces the log at path with outputs.
func Rewrite(path string, outputs []models.TaskOutput) error {
	var sb strings.Builder
	for _, o := range outputs {
		sb.WriteString(Format(o))
		sb.WriteByte('\n')
	}
	if err := filelock.AtomicWrite(path, []byte(sb.String())); err != nil {
		return fmt.Errorf("failed to rewrite completed-task log: %w", err)
	}
	return nil
}

// Writer appends entries to a completed-task log. It holds an exclusive lock
// on the log for its whole lifetime and is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	lock *filelock.FileLock
}

// Open locks the log at path and opens it for appending, creating it if
// needed. It fails with filelock.ErrLocked when another run owns the log.
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	lock := filelock.For(path)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open completed-task log: %w", err)
	}
	return &Writer{path: path, file: file, lock: lock}, nil
}

// WriteLine writes a line produced by Format, adding the newline, and
// flushes it to disk before returning.
func (w *Writer) WriteLine(line string) error {
	line += "\n"

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("completed-task log %s is closed", w.path)
	}
	if _, err := w.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to completed-task log: %w", err)
	}
	return w.file.Sync()
}

// Close closes the log and releases its lock. It is safe to call twice.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if unlockErr := w.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
