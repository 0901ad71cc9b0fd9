package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/qiniu/go-sdk/v7/storagev2/credentials"
	"github.com/qiniu/go-sdk/v7/storagev2/http_client"
	"github.com/qiniu/go-sdk/v7/storagev2/objects"
	"github.com/qiniu/go-sdk/v7/storagev2/uploader"
)

// QiniuConfig holds the Kodo bucket settings.
type QiniuConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Domain    string // public base URL, e.g. https://cdn.example.com
	KeyPrefix string // optional, e.g. "soundshelf"
}

// Qiniu stores files in a Qiniu Kodo bucket.
type Qiniu struct {
	cfg       QiniuConfig
	uploads   *uploader.UploadManager
	objects   *objects.ObjectsManager
	domain    string
	keyPrefix string
}

var _ FileStore = (*Qiniu)(nil)

func NewQiniu(cfg QiniuConfig) (*Qiniu, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" || cfg.Domain == "" {
		return nil, fmt.Errorf("storage: qiniu needs access key, secret key, bucket and domain")
	}

	opts := http_client.Options{
		Credentials: credentials.NewCredentials(cfg.AccessKey, cfg.SecretKey),
	}
	domain := strings.TrimRight(cfg.Domain, "/")

	return &Qiniu{
		cfg:       cfg,
		uploads:   uploader.NewUploadManager(&uploader.UploadManagerOptions{Options: opts}),
		objects:   objects.NewObjectsManager(&objects.ObjectsManagerOptions{Options: opts}),
		domain:    domain,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

func (q *Qiniu) objectKey(key string) string {
	if q.keyPrefix == "" {
		return key
	}
	return q.keyPrefix + "/" + key
}

func (q *Qiniu) Save(ctx context.Context, bucket Bucket, ext string, r io.Reader) (string, error) {
	key, err := newKey(bucket, ext)
	if err != nil {
		return "", err
	}
	objectName := q.objectKey(key)

	err = q.uploads.UploadReader(ctx, r, &uploader.ObjectOptions{
		BucketName: q.cfg.Bucket,
		ObjectName: &objectName,
		FileName:   objectName,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("storage: uploading %s to qiniu: %w", objectName, err)
	}

	return q.domain + "/" + objectName, nil
}

func (q *Qiniu) Remove(ctx context.Context, p string) error {
	objectName, ok := strings.CutPrefix(p, q.domain+"/")
	if !ok || objectName == "" {
		return nil
	}
	if err := q.objects.Bucket(q.cfg.Bucket).Object(objectName).Delete().Call(ctx); err != nil {
		return fmt.Errorf("storage: deleting %s from qiniu: %w", objectName, err)
	}
	return nil
}
