// Package assets fetches playlist cover art from S3.
//
// Covers are stored as raw JPEG; the playlist image endpoint wants
// base64, so FetchCoverBase64 returns the encoded form ready to upload.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client used, extracted for tests.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Covers reads cover images from a bucket.
type Covers struct {
	client s3API
	bucket string
}

// NewCovers creates a cover source over the given bucket.
// Uses the AWS SDK default credential chain.
func NewCovers(ctx context.Context, region, bucket string) (*Covers, error) {
	if bucket == "" {
		return nil, errors.New("covers bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Covers{
		client: s3.NewFromConfig(awsConfig),
		bucket: bucket,
	}, nil
}

// FetchCoverBase64 downloads the object at key and returns it
// base64-encoded for the playlist image endpoint.
//
// The endpoint caps payloads at 256 KB; oversized covers are rejected
// here rather than failing the upload with an opaque 413.
const maxCoverBytes = 256 * 1024

func (c *Covers) FetchCoverBase64(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get cover %s/%s: %w", c.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(out.Body, maxCoverBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read cover %s/%s: %w", c.bucket, key, err)
	}
	if len(raw) > maxCoverBytes {
		return nil, fmt.Errorf("cover %s/%s exceeds %d bytes", c.bucket, key, maxCoverBytes)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(encoded, raw)
	return encoded, nil
}
