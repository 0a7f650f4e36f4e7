package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/ajitpratap0/nimbus/pkg/errors"
	"github.com/ajitpratap0/nimbus/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3Config configures the S3-backed object store
type S3Config struct {
	// Region is the AWS region
	Region string
	// Endpoint overrides the S3 endpoint (for MinIO and compatible services)
	Endpoint string
	// AccessKey and SecretKey enable static credentials. Leave both empty
	// to use the default credential chain (IAM roles, env, shared config).
	AccessKey string
	SecretKey string
	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible services
	UsePathStyle bool
}

// S3Store is an ObjectStore backed by S3 or an S3-compatible service
type S3Store struct {
	client *s3.Client
	logger *zap.Logger
}

// NewS3Store creates an S3 object store
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if (cfg.AccessKey != "" && cfg.SecretKey == "") || (cfg.AccessKey == "" && cfg.SecretKey != "") {
		return nil, errors.New(errors.ErrorTypeConfig,
			"both access_key and secret_key must be provided together, or both empty for IAM role authentication")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle || cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		logger: logger.Get().With(zap.String("component", "s3-store")),
	}, nil
}

// Exists implements ObjectStore using a HeadObject probe
func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if stderrors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("head object failed for %s", path))
	}
	return true, nil
}

// Open implements ObjectStore
func (s *S3Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection,
			fmt.Sprintf("get object failed for %s", path))
	}
	return out.Body, nil
}
