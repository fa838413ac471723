package filestore

import (
	"context"
	"fmt"
	"io"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options to init Store
type Options struct {
	URL    string
	User   string
	Key    string
	Secure bool
	Bucket string
}

// Store saves and loads audio files in minio
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore creates a minio backed file store and makes sure the bucket exists
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no URL")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	client, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Store{client: client, bucket: opts.Bucket}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't create bucket: %w", err)
		}
		goapp.Log.Info().Str("bucket", opts.Bucket).Msg("bucket created")
	}
	return res, nil
}

// SaveFile stores one file
func (fs *Store) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	info, err := fs.client.PutObject(ctx, fs.bucket, name, r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("can't save %s: %w", name, err)
	}
	goapp.Log.Info().Str("file", name).Int64("size", info.Size).Msg("saved")
	return nil
}

// LoadFile returns a reader for one stored file
func (fs *Store) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	obj, err := fs.client.GetObject(ctx, fs.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't load %s: %w", name, err)
	}
	// GetObject is lazy, force the first read to surface missing files
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapErr(name, err)
	}
	return obj, nil
}

// Clean drops all stored files of one item
func (fs *Store) Clean(ctx context.Context, id string) error {
	return fs.DeleteFolder(ctx, id)
}

// DeleteFolder removes all files with the given prefix
func (fs *Store) DeleteFolder(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("no prefix")
	}
	objCh := fs.client.ListObjects(ctx, fs.bucket, minio.ListObjectsOptions{Prefix: prefix + "/", Recursive: true})
	for obj := range objCh {
		if obj.Err != nil {
			return fmt.Errorf("can't list %s: %w", prefix, obj.Err)
		}
		if err := fs.client.RemoveObject(ctx, fs.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("can't delete %s: %w", obj.Key, err)
		}
		goapp.Log.Info().Str("file", obj.Key).Msg("deleted")
	}
	return nil
}

func mapErr(name string, err error) error {
	eResp := minio.ToErrorResponse(err)
	if eResp.Code == "NoSuchKey" {
		return fmt.Errorf("no file %s", name)
	}
	return fmt.Errorf("can't load %s: %w", name, err)
}
