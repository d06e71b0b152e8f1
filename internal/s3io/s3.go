// Package s3io provides utilities for working with the upload bucket:
// presigned PUT targets, object attributes, and object bytes.
package s3io

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Getter defines the S3 read operations the workers use.
type Getter interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// PresignPut generates a presigned URL for uploading an object with the
// specified parameters.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration) (string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	}
	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", 0, err
	}
	return req.URL, ttl, nil
}

// Store binds a client to the package helpers so workers can depend on a
// value with plain methods instead of the raw SDK client.
type Store struct {
	Client Getter
}

// Head fetches object attributes.
func (s *Store) Head(ctx context.Context, bucket, key string) (*Attributes, error) {
	return Head(ctx, s.Client, bucket, key)
}

// Bytes reads the full object body and its content type.
func (s *Store) Bytes(ctx context.Context, bucket, key string) ([]byte, string, error) {
	return GetBytes(ctx, s.Client, bucket, key)
}

// Attributes holds object attributes plus normalized user metadata.
type Attributes struct {
	Size        int64
	ContentType string
	StoredAt    time.Time
	Meta        map[string]string // lowercased user metadata
}

// Head fetches object attributes including user-defined metadata.
func Head(ctx context.Context, c Getter, bucket, key string) (*Attributes, error) {
	ho, err := c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("head %s/%s: %w", bucket, key, err)
	}
	a := &Attributes{Meta: make(map[string]string, len(ho.Metadata))}
	if ho.ContentLength != nil {
		a.Size = *ho.ContentLength
	}
	if ho.ContentType != nil {
		a.ContentType = strings.ToLower(*ho.ContentType)
	}
	if ho.LastModified != nil {
		a.StoredAt = *ho.LastModified
	}
	for k, v := range ho.Metadata {
		a.Meta[strings.ToLower(k)] = v
	}
	return a, nil
}

// GetBytes reads the full object body. The returned content type falls back
// to a guess from the key extension when the object carries none.
func GetBytes(ctx context.Context, c Getter, bucket, key string) ([]byte, string, error) {
	out, err := c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, "", fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	ct := ""
	if out.ContentType != nil {
		ct = strings.TrimSpace(*out.ContentType)
	}
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(key))
	}
	if ct == "" {
		ct = "image/jpeg"
	}
	return data, ct, nil
}
