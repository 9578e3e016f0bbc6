package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// S3Config holds S3 cover store settings.
type S3Config struct {
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// S3Store stores cover images in an S3-compatible object store.
type S3Store struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates an S3 cover store.
func NewS3Store(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "s3_store").Logger(),
	}, nil
}

// Put stores the image under a freshly generated key.
func (s *S3Store) Put(ctx context.Context, contentType string, r io.Reader) (string, string, error) {
	ext, err := extensionFor(contentType)
	if err != nil {
		return "", "", err
	}

	key := "covers/" + uuid.NewString() + ext

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload cover: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("uploaded cover image")

	return key, s.objectURL(key), nil
}

// Delete removes a stored image. S3 DeleteObject is idempotent, so deleting
// a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete cover: %w", err)
	}

	return nil
}

// endpointURL normalizes a configured endpoint to a full URL. Scheme-less
// endpoints get http or https depending on UseSSL; endpoints that already
// carry a scheme are taken verbatim.
func endpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// objectURL builds the public URL for a stored object.
func (s *S3Store) objectURL(key string) string {
	endpoint := ""
	if opts := s.client.Options(); opts.BaseEndpoint != nil {
		endpoint = strings.TrimSuffix(*opts.BaseEndpoint, "/")
	}
	if endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", endpoint, s.bucket, key)
	}
	region := s.client.Options().Region
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, key)
}

// Ensure S3Store implements CoverStore.
var _ CoverStore = (*S3Store)(nil)
