package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// DefaultPresignExpiry is how long presigned asset URLs stay valid. Matches
// the slideshow playback window plus headroom.
const DefaultPresignExpiry = 24 * time.Hour

// S3Store persists assets to an S3 bucket and returns presigned GET URLs.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// NewS3Store creates an S3-backed asset store. A zero expiry selects
// DefaultPresignExpiry.
func NewS3Store(client *s3.Client, bucket string, expiry time.Duration) *S3Store {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		expiry:    expiry,
	}
}

// Store uploads the asset under logicalPath and returns a presigned GET URL.
// PutObject under the same key is a full overwrite, so retries are idempotent.
func (s *S3Store) Store(ctx context.Context, data []byte, logicalPath, contentType string) (string, error) {
	log.Debug().
		Str("bucket", s.bucket).
		Str("key", logicalPath).
		Int("bytes", len(data)).
		Str("content_type", contentType).
		Msg("Uploading asset to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &logicalPath,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset to S3: %w", err)
	}

	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &logicalPath,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}

	log.Info().
		Str("key", logicalPath).
		Int("bytes", len(data)).
		Msg("Asset uploaded to S3")

	return result.URL, nil
}
