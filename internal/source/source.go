// Package source opens MARC files from the local file system, standard input
// or an S3 compatible object store.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bookops/sierramarc/internal/config"
)

const (
	s3Scheme      = "s3://"
	stdin         = "-"
	defaultRegion = "us-east-1"
)

var ErrInvalidLocation = errors.New("invalid location")

// ObjectGetter is the part of the S3 client used to read objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener resolves locations to readers. The S3 client is created on first
// use so local files never touch the AWS configuration.
type Opener struct {
	cfg    config.S3
	client ObjectGetter
	s3Opts []func(*s3.Options)
}

type Option func(*Opener)

// WithClient sets the client used for s3:// locations.
func WithClient(client ObjectGetter) Option {
	return func(o *Opener) {
		o.client = client
	}
}

// WithS3Options adds options applied when the S3 client is created.
func WithS3Options(fns ...func(*s3.Options)) Option {
	return func(o *Opener) {
		o.s3Opts = append(o.s3Opts, fns...)
	}
}

func New(cfg config.S3, opts ...Option) *Opener {
	o := &Opener{cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open returns a reader for location: "-" for standard input, an
// s3://bucket/key URL or a local path.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case location == stdin:
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(location, s3Scheme):
		bucket, key, err := ParseS3URL(location)
		if err != nil {
			return nil, err
		}
		return o.openObject(ctx, bucket, key)
	case location == "":
		return nil, fmt.Errorf("%w: empty path", ErrInvalidLocation)
	}
	return os.Open(location)
}

func (o *Opener) openObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if o.client == nil {
		client, err := NewS3Client(ctx, o.cfg, o.s3Opts...)
		if err != nil {
			return nil, err
		}
		o.client = client
	}
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// ParseS3URL splits an s3://bucket/key URL.
func ParseS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3 url", ErrInvalidLocation, location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs a bucket and a key", ErrInvalidLocation, location)
	}
	return bucket, key, nil
}

// NewS3Client creates an S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default credential chain applies.
func NewS3Client(ctx context.Context, cfg config.S3, optFns ...func(*s3.Options)) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	opts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)
	return s3.NewFromConfig(awsCfg, opts...), nil
}
