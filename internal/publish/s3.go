package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// PutObjectAPI is the part of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads rendered statistics to an S3 bucket.
type Publisher struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
}

// Options configures a Publisher.
type Options struct {
	Bucket  string
	Prefix  string
	Region  string
	Timeout time.Duration
}

// New loads the default AWS configuration (environment, shared config,
// instance role) and returns a Publisher for opts.Bucket.
func New(ctx context.Context, opts Options) (*Publisher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(awsCfg), opts), nil
}

// NewWithClient returns a Publisher using an existing client.
func NewWithClient(client PutObjectAPI, opts Options) *Publisher {
	return &Publisher{
		client:  client,
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		timeout: opts.Timeout,
	}
}

// Key returns the object key used for name.
func (p *Publisher) Key(name string) string {
	return path.Join(p.prefix, name)
}

// Put uploads body under the publisher prefix, replacing any previous object.
func (p *Publisher) Put(ctx context.Context, name, contentType string, body []byte) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	key := p.Key(name)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		CacheControl:  aws.String("no-cache"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", p.bucket, key, err)
	}

	log.Info().Str("bucket", p.bucket).Str("key", key).Int("bytes", len(body)).Msg("published")
	return nil
}
