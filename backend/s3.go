package backend

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sree6273/AI-meeting-summary/iox"
	"github.com/sree6273/AI-meeting-summary/session"
)

// S3Config holds configuration for the S3 upload driver.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	// Required by most S3-compatible providers (R2, MinIO, etc.).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// objectPutter is the slice of the S3 API the uploader needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores media files in an S3 bucket for deployments where
// the backend ingests from object storage. The returned resource is the
// object key.
type S3Uploader struct {
	client objectPutter
	bucket string
	prefix string
}

var _ session.Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates an S3 upload driver.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newS3Uploader(s3.NewFromConfig(awsConfig, s3Opts...), cfg), nil
}

// newS3Uploader wires an existing client; split out for tests.
func newS3Uploader(client objectPutter, cfg S3Config) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}
}

// normalizePrefix guarantees a non-empty prefix ends with exactly one slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// mediaContentTypes covers the recording formats the backend accepts.
// The platform mime table is consulted for anything else.
var mediaContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := mediaContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Upload puts the media file under {prefix}{basename} and returns the
// object key.
func (u *S3Uploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer iox.DiscardClose(f)

	key := u.prefix + filepath.Base(path)
	contentType := contentTypeFor(path)

	input := &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return key, nil
}
