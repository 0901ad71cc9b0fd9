// Package storage persists uploaded files and hands back the path that the
// rest of the app stores in the database.
//
// Two backends implement FileStore:
//   - Local writes under a directory and serves it at a URL prefix (/media)
//   - Qiniu uploads to a Kodo bucket and returns the bucket's public URL
//
// In both cases the object key is generated: a client filename never reaches
// the filesystem or the bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Bucket is a logical storage area.
type Bucket string

const (
	BucketSongs     Bucket = "songs"
	BucketPictures  Bucket = "pictures"
	BucketPlaylists Bucket = "playlists"
)

// FileStore saves and removes uploaded files.
type FileStore interface {
	// Save stores r under a new key in bucket and returns its public path.
	// ext includes the dot, e.g. ".mp3".
	Save(ctx context.Context, bucket Bucket, ext string, r io.Reader) (string, error)
	// Remove deletes a file previously returned by Save. Paths this store
	// did not produce (such as the stock pictures) are ignored.
	Remove(ctx context.Context, path string) error
}

// newKey returns "<bucket>/<uuid><ext>".
func newKey(bucket Bucket, ext string) (string, error) {
	switch bucket {
	case BucketSongs, BucketPictures, BucketPlaylists:
	default:
		return "", fmt.Errorf("storage: unknown bucket %q", bucket)
	}
	return string(bucket) + "/" + uuid.NewString() + strings.ToLower(ext), nil
}
