package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"

	"github.com/janelia-flyem/neuprep/neuprep"
)

func init() {
	e, err := NewEngine("blob", "Cloud or local object store (gs, s3, file, mem)", "0.2.0")
	if err != nil {
		neuprep.Errorf("Unable to register blob engine: %v\n", err)
		return
	}
	RegisterEngine(e)
}

// splitRef splits "<scheme>://<bucket>/<prefix>" into its parts.  The
// returned prefix, if any, ends with a slash.
func splitRef(ref string) (scheme, bucket, prefix string, err error) {
	parts := strings.SplitN(ref, "://", 2)
	if len(parts) != 2 || parts[1] == "" {
		err = fmt.Errorf("bad bucket reference %q, expected <scheme>://<bucket>[/<prefix>]", ref)
		return
	}
	scheme = parts[0]
	pathparts := strings.SplitN(parts[1], "/", 2)
	bucket = pathparts[0]
	if len(pathparts) == 2 {
		prefix = strings.Trim(pathparts[1], "/")
		if prefix != "" {
			prefix += "/"
		}
	}
	return
}

// OpenBucket returns a blob.Bucket for the given reference.
// The reference should be of the form:
//
//	gs://<bucketname>[/<prefix>]
//	s3://<bucketname>[/<prefix>]
//	file:///<directory>
//	mem://
//
// A prefix restricts the returned bucket to keys under it.
func OpenBucket(ctx context.Context, ref string) (bucket *blob.Bucket, err error) {
	switch {
	case strings.HasPrefix(ref, "mem://"):
		return memblob.OpenBucket(nil), nil

	case strings.HasPrefix(ref, "file://"):
		dir := strings.TrimPrefix(ref, "file://")
		if dir == "" {
			return nil, fmt.Errorf("file bucket reference %q has no directory", ref)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("can't make bucket directory %s: %v", dir, err)
		}
		return fileblob.OpenBucket(dir, nil)

	case strings.HasPrefix(ref, "s3://"):
		// Requires AWS credentials that gocloud can find and the AWS_REGION
		// environment variable.
		_, name, prefix, err := splitRef(ref)
		if err != nil {
			return nil, err
		}
		bucket, err = blob.OpenBucket(ctx, "s3://"+name)
		if err != nil {
			neuprep.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix)
		}
		return bucket, nil

	case strings.HasPrefix(ref, "gs://"):
		_, name, prefix, err := splitRef(ref)
		if err != nil {
			return nil, err
		}
		// See https://cloud.google.com/docs/authentication/production
		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, err
		}
		bucket, err = gcsblob.OpenBucket(ctx, client, name, nil)
		if err != nil {
			neuprep.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix)
		}
		return bucket, nil
	}
	return nil, fmt.Errorf("unsupported bucket reference %q", ref)
}
