package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter is the part of the S3 client the store uses
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Store struct {
	client objectPutter
	bucket string
	prefix string
}

func init() {
	Register("s3", NewS3)
}

// NewS3 builds a store that puts objects into cfg.S3.Bucket.
// Static keys are used when given, otherwise the default AWS credential chain.
func NewS3(cfg Config) (Store, error) {
	c := cfg.S3
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKey != "" && c.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(c.Endpoint))
		}
		o.UsePathStyle = c.UsePathStyle
	})
	return newS3Store(client, c.Bucket, c.Prefix), nil
}

func newS3Store(client objectPutter, bucket, prefix string) *s3Store {
	return &s3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Save puts the document as a single object. S3 needs a seekable body to
// sign the payload, so plain streams are spooled to a temp file first.
func (s *s3Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}

	body, ok := r.(io.ReadSeeker)
	if !ok {
		spool, err := os.CreateTemp("", "docconv-s3-*")
		if err != nil {
			return "", fmt.Errorf("failed to spool %s: %w", name, err)
		}
		defer os.Remove(spool.Name())
		defer spool.Close()

		if _, err := io.Copy(spool, r); err != nil {
			return "", fmt.Errorf("failed to spool %s: %w", name, err)
		}
		if _, err := spool.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to spool %s: %w", name, err)
		}
		body = spool
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}
