// Package artifact mints time-limited signed URLs for the downloadable
// build stored in the object-store bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return c.ListObjectsV2(ctx, in)
	}
)

// Config holds the object-store settings for the artifact bucket.
type Config struct {
	AccessKey    string
	SecretKey    string
	Region       string
	Bucket       string
	BaseEndpoint string
}

// Provider mints presigned GET URLs for objects in the artifact bucket.
// The S3 client is built lazily on first use: missing credentials surface
// as an error from Mint, not as a startup crash.
type Provider struct {
	cfg Config

	once    sync.Once
	client  *s3.Client
	presign *s3.PresignClient
	initErr error
}

func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) clients(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	p.once.Do(func() {
		if p.cfg.AccessKey == "" || p.cfg.SecretKey == "" {
			p.initErr = errors.New("object storage credentials are not configured")
			return
		}

		cfg, err := loadDefaultAWSConfig(ctx,
			awsconfig.WithRegion(p.cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				p.cfg.AccessKey,
				p.cfg.SecretKey,
				"",
			)))
		if err != nil {
			p.initErr = err
			return
		}

		p.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
			if p.cfg.BaseEndpoint != "" {
				o.BaseEndpoint = aws.String(p.cfg.BaseEndpoint)
			}
			o.UsePathStyle = true
		})
		p.presign = newS3PresignClient(p.client)
	})

	return p.client, p.presign, p.initErr
}

// Mint generates a fresh presigned GET URL for key, valid for ttl. Every
// call produces a new URL; nothing is cached.
func (p *Provider) Mint(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_, presignClient, err := p.clients(ctx)
	if err != nil {
		return "", fmt.Errorf("artifact url error: %w", err)
	}

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("artifact url error: %w", err)
	}

	return req.URL, nil
}

// Exists reports whether an object with the given key is present in the
// bucket. It is an opportunistic pre-check: any storage error degrades to
// false rather than failing the caller.
func (p *Provider) Exists(ctx context.Context, key string) bool {
	client, _, err := p.clients(ctx)
	if err != nil {
		return false
	}

	out, err := listObjectsV2(client, ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.cfg.Bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false
	}

	return len(out.Contents) > 0
}
