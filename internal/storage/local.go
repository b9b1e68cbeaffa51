package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local writes documents under dir and serves them from urlBase.
type Local struct {
	dir     string
	urlBase string
}

func NewLocal(dir, urlBase string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(dir, keyPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Local{dir: dir, urlBase: urlBase}, nil
}

func (l *Local) Put(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(l.dir, filepath.FromSlash(doc.Key))

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}

	if _, err := io.Copy(f, doc.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write document: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close document: %w", err)
	}

	return l.urlBase + "/" + doc.Key, nil
}

func (l *Local) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(l.urlBase, url)
	if !ok {
		return nil
	}

	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete document: %w", err)
	}

	return nil
}
