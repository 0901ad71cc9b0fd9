package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores files in a directory on disk.
type Local struct {
	root      string
	urlPrefix string
}

var _ FileStore = (*Local)(nil)

// NewLocal creates the root directory if needed. Saved files are addressed
// as urlPrefix + "/" + key, e.g. "/media/songs/<uuid>.mp3".
func NewLocal(root, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", root, err)
	}
	return &Local{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// URLPrefix is where Handler should be mounted.
func (l *Local) URLPrefix() string {
	return l.urlPrefix
}

// Handler serves stored files; mount it at URLPrefix()+"/*".
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(l.urlPrefix+"/", http.FileServer(http.Dir(l.root)))
}

func (l *Local) Save(ctx context.Context, bucket Bucket, ext string, r io.Reader) (string, error) {
	key, err := newKey(bucket, ext)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: creating bucket dir: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("storage: writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("storage: closing %s: %w", key, err)
	}

	return l.urlPrefix + "/" + key, nil
}

func (l *Local) Remove(ctx context.Context, p string) error {
	key, ok := l.keyFor(p)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: removing %s: %w", key, err)
	}
	return nil
}

// keyFor maps a public path back to a key inside root. Anything outside the
// prefix, or that would escape root after cleaning, is not ours.
func (l *Local) keyFor(p string) (string, bool) {
	rest, ok := strings.CutPrefix(p, l.urlPrefix+"/")
	if !ok {
		return "", false
	}
	key := path.Clean("/" + rest)[1:]
	if key == "" || key != rest {
		return "", false
	}
	return key, true
}
