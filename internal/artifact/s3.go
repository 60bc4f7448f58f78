package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// DefaultPresignExpiration bounds how long a download URL stays valid.
const DefaultPresignExpiration = 15 * time.Minute

// S3Config locates the bucket captures are published to.
type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	Prefix            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	KeepLocal         bool
}

// Validate checks that the configuration can build a client.
func (c S3Config) Validate() error {
	switch {
	case c.Bucket == "":
		return fmt.Errorf("%w: bucket is required", ErrInvalidS3)
	case c.AccessKey == "" || c.SecretKey == "":
		return fmt.Errorf("%w: access key and secret key are required", ErrInvalidS3)
	case c.PresignExpiration < 0:
		return fmt.Errorf("%w: negative presign expiration", ErrInvalidS3)
	}
	return nil
}

// objectPutter is the subset of *s3.Client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// getPresigner is the subset of *s3.PresignClient used for download links.
type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithS3Logger sets the logger for upload events.
func WithS3Logger(l *zap.Logger) S3Option {
	return func(s *S3Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// S3Store renders into a local directory and uploads on Publish.
type S3Store struct {
	local     *LocalStore
	client    objectPutter
	presign   getPresigner
	bucket    string
	prefix    string
	expiry    time.Duration
	keepLocal bool
	logger    *zap.Logger
}

// NewS3Store builds a store that stages captures under local and publishes
// them to the configured bucket.
func NewS3Store(ctx context.Context, local *LocalStore, cfg S3Config, opts ...S3Option) (*S3Store, error) {
	if local == nil {
		return nil, fmt.Errorf("%w: local staging store is required", ErrInvalidS3)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrInvalidS3, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3Store(local, client, s3.NewPresignClient(client), cfg, opts...), nil
}

func newS3Store(local *LocalStore, client objectPutter, presign getPresigner, cfg S3Config, opts ...S3Option) *S3Store {
	s := &S3Store{
		local:     local,
		client:    client,
		presign:   presign,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		expiry:    cfg.PresignExpiration,
		keepLocal: cfg.KeepLocal,
		logger:    zap.NewNop(),
	}
	if s.expiry == 0 {
		s.expiry = DefaultPresignExpiration
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalizeEndpoint adds a scheme to bare host:port endpoints.
func normalizeEndpoint(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// Allocate stages the capture in the local store.
func (s *S3Store) Allocate() (Artifact, error) {
	return s.local.Allocate()
}

// Key returns the object key for a.
func (s *S3Store) Key(a Artifact) string {
	name := a.ID + "." + Extension
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Publish uploads the staged file and returns a presigned download URL.
// The staged copy is removed afterwards unless KeepLocal is set.
func (s *S3Store) Publish(ctx context.Context, a Artifact) (string, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, a.Path, err)
	}
	defer func() { _ = f.Close() }()

	key := s.Key(a)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/png"),
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("%w: presigning %s: %v", ErrUpload, key, err)
	}
	s.logger.Info("published capture", zap.String("bucket", s.bucket), zap.String("key", key))

	if !s.keepLocal {
		if err := os.Remove(a.Path); err != nil {
			s.logger.Warn("could not remove staged capture", zap.String("path", a.Path), zap.Error(err))
		}
	}
	return req.URL, nil
}
