// Package s3 stores meal photos in an S3 bucket. Objects live under a
// configurable key prefix so a shared bucket can hold photos next to
// other application data.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/platelens/platelens/internal/photostore"
)

// objectClient is the slice of the S3 API the store uses. Tests provide a
// stub; production code passes *s3.Client.
type objectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3PhotoStore struct {
	client    objectClient
	bucket    string
	keyPrefix string
}

// NewS3PhotoStore loads AWS credentials from the default chain (env vars,
// shared config, instance role) and returns a store writing to bucket. An
// empty region defers to the environment.
func NewS3PhotoStore(ctx context.Context, bucket, region, keyPrefix string) (*S3PhotoStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket not configured")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3PhotoStoreWithClient(s3.NewFromConfig(cfg), bucket, keyPrefix), nil
}

func NewS3PhotoStoreWithClient(client objectClient, bucket, keyPrefix string) *S3PhotoStore {
	return &S3PhotoStore{client: client, bucket: bucket, keyPrefix: keyPrefix}
}

func (s *S3PhotoStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	ext := ".jpg"
	if mimeType == "image/png" {
		ext = ".png"
	}
	key := fmt.Sprintf("%s_%d%s", prefix, time.Now().UnixNano(), ext)
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (s *S3PhotoStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch from S3: %w", err)
	}

	mimeType := aws.ToString(out.ContentType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return out.Body, mimeType, nil
}

// Delete is a no-op for keys that are already gone; S3 reports success
// either way and session teardown does not care.
func (s *S3PhotoStore) Delete(ctx context.Context, storageKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
