package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/janelia-flyem/neuprep/matrix"
	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
)

const (
	arrowContentType  = "application/vnd.apache.arrow.stream"
	bundleContentType = "application/octet-stream"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one entry of an archive listing.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

func (o ObjectInfo) String() string {
	if o.IsDir {
		return o.Key
	}
	return fmt.Sprintf("%-50s %10s  %s", o.Key, humanize.Bytes(uint64(o.Size)), o.ModTime.Format(time.RFC3339))
}

// Archive stores score matrices and skeleton bundles as whole objects in a
// bucket.
type Archive struct {
	ref    string
	bucket *blob.Bucket
}

// NewArchive returns an archive over an already opened bucket.
func NewArchive(bucket *blob.Bucket, ref string) *Archive {
	return &Archive{ref: ref, bucket: bucket}
}

// OpenArchive opens the bucket reference and returns an archive over it.
func OpenArchive(ctx context.Context, ref string) (*Archive, error) {
	bucket, err := OpenBucket(ctx, ref)
	if err != nil {
		return nil, err
	}
	return NewArchive(bucket, ref), nil
}

func (a *Archive) String() string {
	return fmt.Sprintf("archive @ %s", a.ref)
}

// Close releases the underlying bucket.
func (a *Archive) Close() error {
	if err := a.bucket.Close(); err != nil {
		neuprep.Errorf("Error on trying to close %s: %v\n", a, err)
		return err
	}
	return nil
}

// Exists returns true if an object with the given key exists.
func (a *Archive) Exists(ctx context.Context, key string) (bool, error) {
	return a.bucket.Exists(ctx, key)
}

func (a *Archive) get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %q from %s: %v", key, a, err)
	}
	return data, nil
}

func (a *Archive) put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := a.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return fmt.Errorf("writing %q to %s: %v", key, a, err)
	}
	return nil
}

// GetMatrix reads the score matrix stored under key.  A missing object
// reads as an empty matrix.
func (a *Archive) GetMatrix(ctx context.Context, key string) (*matrix.Matrix, error) {
	timedLog := neuprep.NewTimeLog()
	data, err := a.get(ctx, key)
	if err == ErrNotFound {
		neuprep.Infof("No matrix at %q in %s, starting empty\n", key, a)
		return matrix.Empty(), nil
	}
	if err != nil {
		return nil, err
	}
	m, err := matrix.ReadArrow(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("matrix %q in %s: %v", key, a, err)
	}
	timedLog.Debugf("Read %s matrix %q (%s)", m, key, humanize.Bytes(uint64(len(data))))
	return m, nil
}

// PutMatrix replaces the object under key with the matrix.
func (a *Archive) PutMatrix(ctx context.Context, key string, m *matrix.Matrix) error {
	var buf bytes.Buffer
	if err := matrix.WriteArrow(&buf, m, matrix.WithZstd()); err != nil {
		return err
	}
	if err := a.put(ctx, key, buf.Bytes(), arrowContentType); err != nil {
		return err
	}
	neuprep.Infof("Stored %s matrix at %q (%s)\n", m, key, humanize.Bytes(uint64(buf.Len())))
	return nil
}

// GetBundle reads the skeleton bundle stored under key.  It returns
// ErrNotFound if there is none.
func (a *Archive) GetBundle(ctx context.Context, key string) (skeleton.Collection, error) {
	data, err := a.get(ctx, key)
	if err != nil {
		return nil, err
	}
	c, err := skeleton.UnbundleCollection(data)
	if err != nil {
		return nil, fmt.Errorf("bundle %q in %s: %v", key, a, err)
	}
	return c, nil
}

// PutBundle replaces the object under key with a compressed bundle of the
// collection.
func (a *Archive) PutBundle(ctx context.Context, key string, c skeleton.Collection) error {
	data, err := c.Bundle()
	if err != nil {
		return err
	}
	if err := a.put(ctx, key, data, bundleContentType); err != nil {
		return err
	}
	neuprep.Infof("Stored bundle of %d skeletons at %q (%s)\n", len(c), key, humanize.Bytes(uint64(len(data))))
	return nil
}

// Delete removes the object under key.
func (a *Archive) Delete(ctx context.Context, key string) error {
	if err := a.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns the objects and pseudo-directories directly under prefix.
func (a *Archive) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		if ok, err := a.Exists(ctx, prefix); err == nil && !ok {
			prefix += "/"
		}
	}
	iter := a.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	var objs []ObjectInfo
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing %q in %s: %v", prefix, a, err)
		}
		objs = append(objs, ObjectInfo{
			Key:     obj.Key,
			Size:    obj.Size,
			ModTime: obj.ModTime,
			IsDir:   obj.IsDir,
		})
	}
	return objs, nil
}
