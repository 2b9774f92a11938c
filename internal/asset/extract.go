package asset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// readTracker remembers read-side failures so that a broken download can be
// told apart from a failing disk.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}

// materialize writes the payload into dir and returns the number of bytes
// placed on disk. Zip payloads are extracted; anything else becomes a single
// file named after the object.
func materialize(body io.Reader, objectName, dir string) (int64, error) {
	if strings.HasSuffix(strings.ToLower(objectName), ".zip") {
		return materializeZip(body, dir)
	}
	return writeFile(body, filepath.Join(dir, path.Base(objectName)))
}

func writeFile(body io.Reader, target string) (int64, error) {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, Permanent(fmt.Errorf("create %s: %w", target, err))
	}
	tr := &readTracker{r: body}
	n, err := io.Copy(f, tr)
	if cerr := f.Close(); err == nil && cerr != nil {
		return n, Permanent(fmt.Errorf("write %s: %w", target, cerr))
	}
	if err != nil {
		if tr.err != nil {
			return n, fmt.Errorf("download interrupted: %w", tr.err)
		}
		return n, Permanent(fmt.Errorf("write %s: %w", target, err))
	}
	return n, nil
}

func materializeZip(body io.Reader, dir string) (int64, error) {
	archive, err := os.CreateTemp(filepath.Dir(dir), ".payload-*.zip")
	if err != nil {
		return 0, Permanent(fmt.Errorf("buffer archive: %w", err))
	}
	defer os.Remove(archive.Name())
	archive.Close()

	if _, err := writeFile(body, archive.Name()); err != nil {
		return 0, err
	}

	zr, err := zip.OpenReader(archive.Name())
	if err != nil {
		return 0, Permanent(fmt.Errorf("open archive: %w", err))
	}
	defer zr.Close()

	var total int64
	for _, f := range zr.File {
		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return total, Permanent(err)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return total, Permanent(fmt.Errorf("create %s: %w", target, err))
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return total, Permanent(fmt.Errorf("create %s: %w", filepath.Dir(target), err))
		}
		rc, err := f.Open()
		if err != nil {
			return total, fmt.Errorf("open %s in archive: %w", f.Name, err)
		}
		n, err := writeFile(rc, target)
		rc.Close()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// safeJoin joins an archive member name onto dir, refusing names that would
// escape it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("archive member %q escapes the asset directory", name)
	}
	return target, nil
}
