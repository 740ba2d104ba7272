// Package s3 moves exported event logs to and from AWS S3 or an
// S3-compatible store.
package s3

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// MinPartSize is the smallest part S3 accepts in a multipart upload.
const MinPartSize = 5 << 20

// Config holds S3 client configuration.
type Config struct {
	Region string

	// Endpoint and UsePathStyle target S3-compatible stores such as MinIO.
	Endpoint     string
	UsePathStyle bool

	// Static credentials. The default AWS chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	MaxAttempts int
	Timeout     time.Duration
	PartSize    int64
}

// DefaultConfig returns defaults for region.
func DefaultConfig(region string) Config {
	return Config{
		Region:      region,
		MaxAttempts: 5,
		Timeout:     5 * time.Minute,
		PartSize:    MinPartSize,
	}
}

func (c *Config) normalize() {
	if c.PartSize < MinPartSize {
		c.PartSize = MinPartSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
}

// URI is a parsed s3://bucket/key location.
type URI struct {
	Bucket string
	Key    string
}

func (u URI) String() string {
	return "s3://" + u.Bucket + "/" + u.Key
}

// IsURI reports whether s uses the s3:// scheme.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// ParseURI parses an s3://bucket/key location. Keys naming a "directory"
// are rejected since a log is always a single object.
func ParseURI(s string) (URI, error) {
	if !IsURI(s) {
		return URI{}, lgerrors.New(lgerrors.CodeInvalidFormat, "not an s3 uri").WithContext("uri", s)
	}
	bucket, key, _ := strings.Cut(strings.TrimPrefix(s, "s3://"), "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return URI{}, lgerrors.New(lgerrors.CodeInvalidFormat, "s3 uri needs a bucket and an object key").
			WithContext("uri", s)
	}
	return URI{Bucket: bucket, Key: key}, nil
}

// objectAPI is the subset of the S3 API the client calls.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Client uploads and downloads whole objects.
type Client struct {
	cfg Config
	api objectAPI
}

// NewClient loads AWS configuration and creates a client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg.normalize()

	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), cfg.MaxAttempts)
		}),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, lgerrors.Wrap(err, lgerrors.CodeUploadFailed, "failed to load AWS config")
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newClient(cfg, api), nil
}

func newClient(cfg Config, api objectAPI) *Client {
	cfg.normalize()
	return &Client{cfg: cfg, api: api}
}

// WriteOptions configures uploads.
type WriteOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Writer returns a writer that streams to the object at uri. Objects
// smaller than one part are sent with a single PUT on Close.
func (c *Client) Writer(ctx context.Context, uri URI, opts WriteOptions) *Writer {
	return &Writer{
		ctx:  ctx,
		api:  c.api,
		uri:  uri,
		cfg:  c.cfg,
		opts: opts,
		buf:  make([]byte, 0, c.cfg.PartSize),
	}
}

// Download copies the object at uri to w.
func (c *Client) Download(ctx context.Context, uri URI, w io.Writer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(uri.Bucket),
		Key:    aws.String(uri.Key),
	})
	if err != nil {
		return 0, lgerrors.Wrap(err, lgerrors.CodeFileNotFound, "failed to get object").WithContext("uri", uri.String())
	}
	defer out.Body.Close()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to read object").WithContext("uri", uri.String())
	}
	return n, nil
}
