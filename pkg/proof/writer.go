package proof

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Paths are the final locations of the proof artifacts.
type Paths struct {
	CommitHash         string
	Signature          string
	EncryptedSignature string
	Summary            string
	Archive            string
}

func (p Paths) artifacts() []string {
	return []string{p.CommitHash, p.Signature, p.EncryptedSignature, p.Summary}
}

func (p Paths) validate() error {
	seen := make(map[string]string, 4)
	for _, path := range append(p.artifacts(), p.Archive) {
		if path == "" {
			return fmt.Errorf("%w: empty artifact path", ErrWriteFailed)
		}
	}
	for _, path := range p.artifacts() {
		base := filepath.Base(path)
		if prev, ok := seen[base]; ok {
			return fmt.Errorf("%w: %s and %s", ErrDuplicateArtifact, prev, path)
		}
		seen[base] = path
	}
	return nil
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the logger used to report written artifacts.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock overrides the time source used for archive entry timestamps.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// Writer persists a Bundle as loose files plus a tar.gz archive.
//
// Every artifact is staged in a temporary file next to its destination before
// anything is moved into place. The archive is renamed last, so an archive at
// its final path always belongs to a fully written bundle.
type Writer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a Writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type staged struct {
	tmp   string
	final string
}

// Write stores bundle at paths. On error no new artifact remains at a final path.
func (w *Writer) Write(bundle Bundle, paths Paths) error {
	if bundle.CommitID == "" || len(bundle.Signature) == 0 || bundle.EncryptedSignature == "" || bundle.Summary == "" {
		return ErrIncompleteBundle
	}
	if err := paths.validate(); err != nil {
		return err
	}

	contents := [][]byte{
		[]byte(bundle.CommitID),
		bundle.Signature,
		[]byte(bundle.EncryptedSignature),
		[]byte(bundle.Summary),
	}

	archive, err := w.buildArchive(paths.artifacts(), contents)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}

	var stages []staged
	cleanup := func() {
		for _, s := range stages {
			_ = os.Remove(s.tmp)
		}
	}

	for i, path := range paths.artifacts() {
		tmp, err := stageFile(path, contents[i])
		if err != nil {
			cleanup()
			return errors.Join(ErrWriteFailed, err)
		}
		stages = append(stages, staged{tmp: tmp, final: path})
	}

	tmp, err := stageFile(paths.Archive, archive)
	if err != nil {
		cleanup()
		return errors.Join(ErrWriteFailed, err)
	}
	stages = append(stages, staged{tmp: tmp, final: paths.Archive})

	for i, s := range stages {
		if err := os.Rename(s.tmp, s.final); err != nil {
			for _, done := range stages[:i] {
				_ = os.Remove(done.final)
			}
			for _, pending := range stages[i:] {
				_ = os.Remove(pending.tmp)
			}
			return errors.Join(ErrWriteFailed, err)
		}
	}

	w.logger.Info("proof artifacts written",
		slog.String("commit", bundle.CommitID),
		slog.String("archive", paths.Archive),
		slog.Int("signature_bytes", len(bundle.Signature)),
	)
	return nil
}

func (w *Writer) buildArchive(names []string, contents [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(gz)

	modTime := w.now().UTC()
	for i, name := range names {
		hdr := &tar.Header{
			Name:    filepath.Base(name),
			Mode:    0o644,
			Size:    int64(len(contents[i])),
			ModTime: modTime,
			Format:  tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write(contents[i]); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stageFile(final string, data []byte) (string, error) {
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(final)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// Entry is a single file inside a proof archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive is the decoded content of a proof archive, in archive order.
type Archive struct {
	Entries []Entry
}

// File returns the entry stored under the given base name.
func (a Archive) File(name string) ([]byte, bool) {
	for _, e := range a.Entries {
		if e.Name == name {
			return e.Data, true
		}
	}
	return nil, false
}

// maxEntrySize bounds how much a single archive entry may expand to.
const maxEntrySize = 1 << 20

// ReadArchive decodes a tar.gz proof archive.
func ReadArchive(path string) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return Archive{}, errors.Join(ErrArchiveInvalid, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Archive{}, errors.Join(ErrArchiveInvalid, err)
	}
	defer gz.Close()

	var archive Archive
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Archive{}, errors.Join(ErrArchiveInvalid, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size > maxEntrySize {
			return Archive{}, fmt.Errorf("%w: entry %s is too large", ErrArchiveInvalid, hdr.Name)
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return Archive{}, errors.Join(ErrArchiveInvalid, err)
		}
		archive.Entries = append(archive.Entries, Entry{Name: hdr.Name, Data: data})
	}
	return archive, nil
}

// LoadBundle reads the archive at paths.Archive and rebuilds the Bundle from
// the entries named after the other paths.
func LoadBundle(paths Paths) (Bundle, error) {
	if err := paths.validate(); err != nil {
		return Bundle{}, err
	}

	archive, err := ReadArchive(paths.Archive)
	if err != nil {
		return Bundle{}, err
	}

	parts := make([][]byte, 0, 4)
	for _, path := range paths.artifacts() {
		data, ok := archive.File(filepath.Base(path))
		if !ok {
			return Bundle{}, fmt.Errorf("%w: missing %s", ErrIncompleteBundle, filepath.Base(path))
		}
		parts = append(parts, data)
	}

	return Bundle{
		CommitID:           string(bytes.TrimSpace(parts[0])),
		Signature:          parts[1],
		EncryptedSignature: string(bytes.TrimSpace(parts[2])),
		Summary:            string(parts[3]),
	}, nil
}
