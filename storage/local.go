package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kiprej-bot/utils"
)

// Local keeps files in a directory on disk.
type Local struct {
	Dir string
}

func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: abs}, nil
}

func (l *Local) Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(l.Dir, sanitizeFilename(name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, io.LimitReader(r, utils.MaxUploadSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > utils.MaxUploadSize {
		err = fmt.Errorf("file exceeds %d bytes", utils.MaxUploadSize)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Delete removes a file previously returned by Save. A file that is already
// gone counts as deleted.
func (l *Local) Delete(ctx context.Context, ref string) error {
	rel, err := filepath.Rel(l.Dir, filepath.Clean(ref))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to delete %s outside %s", ref, l.Dir)
	}
	if err := os.Remove(filepath.Join(l.Dir, rel)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
