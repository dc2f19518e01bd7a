// Package archive stores raw search pages for later inspection.
package archive

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Putter is the part of the S3 client the archiver uses.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config selects the destination bucket.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
}

// S3 uploads pages as HTML objects.
type S3 struct {
	client Putter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3 builds an archiver using the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3WithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client Putter, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive uploads body under a key derived from term and the current time.
func (a *S3) Archive(ctx context.Context, term, body string) error {
	key := ObjectKey(a.prefix, term, a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ObjectKey returns "<prefix>pages/<UTC timestamp>-<term slug>.html".
func ObjectKey(prefix, term string, at time.Time) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(term), "-"), "-")
	if slug == "" {
		slug = "search"
	}
	return fmt.Sprintf("%spages/%s-%s.html", prefix, at.UTC().Format("20060102T150405Z"), slug)
}
