package storage

import (
	"context"
	"fmt"
	"strings"

	"fylr/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3API is the subset of the S3 client used by S3Storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Storage struct {
	client    S3API
	bucket    string
	publicURL string
}

func NewS3Storage(ctx context.Context, cfg config.S3Config, publicURL string) (*S3Storage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	if publicURL == "" || strings.HasPrefix(publicURL, "/") {
		switch {
		case cfg.Endpoint != "":
			publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return NewS3StorageWithClient(client, cfg.Bucket, publicURL), nil
}

func NewS3StorageWithClient(client S3API, bucket, publicURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func objectKey(objectPath string) string {
	return strings.TrimPrefix(objectPath, "/")
}

func (s *S3Storage) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	objPath := objectPath(req.Folder, req.FileName)
	key := objectKey(objPath)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        req.Body,
		ContentType: aws.String(req.ContentType),
	}
	if req.Size > 0 {
		input.ContentLength = aws.Int64(req.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	return &UploadResult{
		Path: objPath,
		URL:  s.publicURL + "/" + key,
	}, nil
}

// Delete is idempotent: S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, objectPath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(objectPath)),
	})
	if err != nil {
		return errors.Wrap(err, "aws_s3")
	}
	return nil
}
