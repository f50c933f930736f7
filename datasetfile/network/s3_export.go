package network

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/gabriel-vasile/mimetype"
)

const (
	numExportRetries = 3
	exportPartSize   = 10 * 1024 * 1024
)

// S3ExportParams ...
type S3ExportParams struct {
	FilePath        string
	Bucket          string
	Key             string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}

// ExportToS3 uploads a downloaded dataset file to an S3 bucket.
func ExportToS3(ctx context.Context, params S3ExportParams, logger log.Logger) error {
	if params.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if params.Key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if params.FilePath == "" {
		return fmt.Errorf("file path must not be empty")
	}

	cfg, err := loadAWSConfig(ctx, params.Region, params.AccessKeyID, params.SecretAccessKey, logger)
	if err != nil {
		return fmt.Errorf("load aws credentials: %w", err)
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(params.FilePath); err == nil {
		contentType = mtype.String()
	}

	client := s3.NewFromConfig(*cfg)
	logger.Debugf("Exporting %s to s3://%s/%s", params.FilePath, params.Bucket, params.Key)

	return retry.Times(numExportRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		file, err := os.Open(params.FilePath)
		if err != nil {
			return fmt.Errorf("open file: %w", err), true
		}
		defer file.Close() //nolint:errcheck

		uploader := manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = exportPartSize
		})
		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Body:        file,
			Bucket:      aws.String(params.Bucket),
			Key:         aws.String(params.Key),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
				return fmt.Errorf("upload to s3: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()), true
			}
			logger.Warnf("S3 export attempt %d failed: %s", attempt+1, err)
			return fmt.Errorf("upload to s3: %w", err), false
		}
		return nil, true
	})
}

func loadAWSConfig(ctx context.Context, region, accessKeyID, secretKey string, logger log.Logger) (*aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	return &cfg, nil
}
