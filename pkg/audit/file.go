package audit

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileLog appends lines to a text file and, optionally, to mirror files.
// Appends from one process are serialised; each line is written with a single
// write call so concurrent processes appending to the same file do not
// interleave within a line.
type FileLog struct {
	path    string
	mirrors []string
	mu      sync.Mutex
}

// NewFileLog creates a FileLog for path. Empty mirror paths are ignored.
func NewFileLog(path string, mirrors ...string) *FileLog {
	l := &FileLog{path: path}
	for _, m := range mirrors {
		if m != "" && m != path {
			l.mirrors = append(l.mirrors, m)
		}
	}
	return l
}

// Path returns the primary log location.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes line followed by a newline to the primary file and to every
// mirror. A mirror failure does not prevent the primary write but is reported.
func (l *FileLog) Append(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data := []byte(line + "\n")
	if err := appendFile(l.path, data); err != nil {
		return errors.Join(ErrStorageFailed, err)
	}

	var errs []error
	for _, m := range l.mirrors {
		if err := appendFile(m, data); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrStorageFailed}, errs...)...)
	}
	return nil
}

// Lines returns every line in the primary file. A missing file yields no lines.
func (l *FileLog) Lines() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	return lines, nil
}

func appendFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
