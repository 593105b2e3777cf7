package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidName is returned for object names that escape the destination.
var ErrInvalidName = errors.New("publish: invalid object name")

// Publisher stores named objects.
type Publisher interface {
	Publish(ctx context.Context, name, contentType string, body []byte) error
}

// S3Config configures the S3 client used for s3:// destinations. Empty
// fields fall back to the standard AWS_* environment variables.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

func (c S3Config) withEnv() S3Config {
	if c.Region == "" {
		c.Region = os.Getenv("AWS_REGION")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("AWS_ENDPOINT_URL_S3")
	}
	if c.AccessKeyID == "" {
		c.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		c.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		c.SessionToken = os.Getenv("AWS_SESSION_TOKEN")
	}
	return c
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(cfg S3Config) *s3.Client {
	cfg = cfg.withEnv()
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			Source:          "fibers",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// Open returns the publisher for dest.
func Open(dest string, cfg S3Config) (Publisher, error) {
	if !strings.Contains(dest, "://") {
		return NewDir(dest), nil
	}
	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	switch u.Scheme {
	case "file":
		return NewDir(u.Path), nil
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("publish: %q has no bucket", dest)
		}
		return NewS3(NewS3Client(cfg), u.Host, strings.TrimPrefix(u.Path, "/")), nil
	default:
		return nil, fmt.Errorf("publish: unsupported scheme %q", u.Scheme)
	}
}

// cleanName rejects names that are absolute or climb out of the
// destination.
func cleanName(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if name == "" || clean == "" || clean != strings.TrimPrefix(name, "./") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// Dir writes objects as files under a directory.
type Dir struct {
	root string
}

// NewDir returns a publisher writing under root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Publish implements Publisher.
func (d *Dir) Publish(_ context.Context, name, _ string, body []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	target := filepath.Join(d.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, body, 0o644)
}

// S3 writes objects to a bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 returns a publisher writing to bucket under prefix.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for name.
func (p *S3) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}

// Publish implements Publisher.
func (p *S3) Publish(ctx context.Context, name, contentType string, body []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.Key(clean)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("publish: s3 put %s: %w", p.Key(clean), err)
	}
	return nil
}
