package datasetfile

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/bitrise-io/go-utils/v2/log"
)

// DownloadInput describes where a downloaded file goes.
type DownloadInput struct {
	// Destination is a local path or an s3://bucket/key URL.
	Destination string
	// AWS settings, only used for s3:// destinations. Empty values fall back to
	// the default AWS credential chain.
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Downloader ...
type Downloader interface {
	Download(ctx context.Context, datasetName, fileName string, input DownloadInput) error
	DownloadDaily(ctx context.Context, route string, query network.DailyFileQuery, input DownloadInput) error
}

type downloader struct {
	api        DownloadAPI
	httpClient *http.Client
	logger     log.Logger
	export     func(context.Context, network.S3ExportParams, log.Logger) error
}

// NewDownloader ...
func NewDownloader(api DownloadAPI, httpClient *http.Client, logger log.Logger) *downloader {
	if httpClient == nil {
		httpClient = network.NewDownloadHTTPClient(logger)
	}
	return &downloader{
		api:        api,
		httpClient: httpClient,
		logger:     logger,
		export:     network.ExportToS3,
	}
}

// Download fetches the matched output of a dataset file.
func (d *downloader) Download(ctx context.Context, datasetName, fileName string, input DownloadInput) error {
	url, err := d.api.DatasetFileDownloadURL(ctx, datasetName, fileName)
	if err != nil {
		return err
	}
	return d.fetch(ctx, url, input)
}

// DownloadDaily fetches a delta or event file.
func (d *downloader) DownloadDaily(ctx context.Context, route string, query network.DailyFileQuery, input DownloadInput) error {
	url, err := d.api.DailyFileDownloadURL(ctx, route, query)
	if err != nil {
		return err
	}
	return d.fetch(ctx, url, input)
}

func (d *downloader) fetch(ctx context.Context, url string, input DownloadInput) error {
	bucket, key, isS3 := network.ParseS3URL(input.Destination)
	if !isS3 {
		d.logger.Infof("Downloading to %s", input.Destination)
		return network.DownloadFile(ctx, d.httpClient, url, input.Destination)
	}

	tmpDir, err := os.MkdirTemp("", "aidentified-download")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			d.logger.Warnf("Failed to remove %s: %s", tmpDir, err)
		}
	}()

	localPath := filepath.Join(tmpDir, path.Base(key))
	d.logger.Infof("Downloading to s3://%s/%s", bucket, key)
	if err := network.DownloadFile(ctx, d.httpClient, url, localPath); err != nil {
		return err
	}

	return d.export(ctx, network.S3ExportParams{
		FilePath:        localPath,
		Bucket:          bucket,
		Key:             key,
		Region:          input.AWSRegion,
		AccessKeyID:     input.AWSAccessKeyID,
		SecretAccessKey: input.AWSSecretAccessKey,
	}, d.logger)
}
