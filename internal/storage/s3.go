package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL prefixes object keys in returned URLs. Defaults to
	// <endpoint>/<bucket>.
	PublicBaseURL string
}

// S3 stores documents in an S3 compatible bucket.
type S3 struct {
	bucket   string
	baseURL  string
	client   *s3.Client
	uploader *manager.Uploader
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "https://s3." + cfg.Region + ".amazonaws.com"
		}
		base = strings.TrimSuffix(endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3{
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(base, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (s *S3) Put(ctx context.Context, doc Document) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(doc.Key),
		Body:        doc.Body,
		ContentType: aws.String(doc.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", doc.Key, err)
	}

	return s.baseURL + "/" + doc.Key, nil
}

func (s *S3) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}
