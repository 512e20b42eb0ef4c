package artifact

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func testConfig() Config {
	return Config{
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Region:       "us-east-1",
		Bucket:       "builds",
		BaseEndpoint: "http://127.0.0.1:9000",
	}
}

func stubSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPresign := presignGetObject
	origList := listObjectsV2
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignGetObject = origPresign
		listObjectsV2 = origList
	})
}

func TestClients_AppliesConfig(t *testing.T) {
	stubSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var capturedBaseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	p := NewProvider(testConfig())
	_, _, err := p.clients(context.Background())
	if err != nil {
		t.Fatalf("clients err: %v", err)
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %q", capturedBaseEndpoint)
	}
}

func TestClients_MissingCredentials(t *testing.T) {
	p := NewProvider(Config{Region: "us-east-1", Bucket: "builds"})

	_, err := p.Mint(context.Background(), "app.apk", time.Hour)
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestMint_ReturnsPresignedURL(t *testing.T) {
	stubSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var gotBucket, gotKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket = aws.ToString(in.Bucket)
		gotKey = aws.ToString(in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://signed.example.com/app.apk?sig=abc"}, nil
	}

	p := NewProvider(testConfig())
	url, err := p.Mint(context.Background(), "app.apk", time.Hour)
	if err != nil {
		t.Fatalf("Mint err: %v", err)
	}
	if url != "https://signed.example.com/app.apk?sig=abc" {
		t.Fatalf("unexpected url: %q", url)
	}
	if gotBucket != "builds" || gotKey != "app.apk" {
		t.Fatalf("unexpected input: bucket=%q key=%q", gotBucket, gotKey)
	}
}

func TestMint_PresignError(t *testing.T) {
	stubSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}

	p := NewProvider(testConfig())
	if _, err := p.Mint(context.Background(), "app.apk", time.Hour); err == nil {
		t.Fatalf("expected error from Mint")
	}
}

func TestExists(t *testing.T) {
	stubSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		if aws.ToString(in.Prefix) != "app.apk" {
			t.Fatalf("unexpected prefix: %q", aws.ToString(in.Prefix))
		}
		return &s3.ListObjectsV2Output{Contents: []types.Object{{Key: aws.String("app.apk")}}}, nil
	}

	p := NewProvider(testConfig())
	if !p.Exists(context.Background(), "app.apk") {
		t.Fatalf("expected Exists=true")
	}

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return &s3.ListObjectsV2Output{}, nil
	}
	if p.Exists(context.Background(), "app.apk") {
		t.Fatalf("expected Exists=false for empty listing")
	}

	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return nil, errors.New("list-fail")
	}
	if p.Exists(context.Background(), "app.apk") {
		t.Fatalf("expected Exists=false on storage error")
	}
}
