package datasetfile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/aidentified/go-matching-api/datasetfile/compression"
	"github.com/aidentified/go-matching-api/datasetfile/csvfile"
	"github.com/aidentified/go-matching-api/datasetfile/network/partuploader"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// UploadInput describes a dataset file upload.
type UploadInput struct {
	DatasetName     string
	DatasetFileName string
	FilePath        string
	// PartSizeMB is the upload part size in MiB. Defaults to 100, must be at least 5.
	PartSizeMB int
	// Concurrency defaults to 4.
	Concurrency int
	// Dialect of the source file. The zero value means csvfile.DefaultDialect.
	Dialect csvfile.Dialect
}

// Uploader ...
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (json.RawMessage, error)
}

type uploader struct {
	api        UploadAPI
	httpClient *http.Client
	logger     log.Logger
}

// NewUploader creates a dataset file uploader. `httpClient` is used for part transfers
// and can be nil.
func NewUploader(api UploadAPI, httpClient *http.Client, logger log.Logger) *uploader {
	return &uploader{
		api:        api,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Upload validates and uploads a local file to an existing dataset file and returns
// the finalized dataset file.
func (u *uploader) Upload(ctx context.Context, input UploadInput) (json.RawMessage, error) {
	config, err := u.createConfig(input)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(input.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			u.logger.Warnf("Failed to close %s: %s", input.FilePath, err)
		}
	}()

	if info, err := file.Stat(); err == nil {
		format, err := compression.Detect(file)
		if err != nil {
			return nil, err
		}
		u.logger.Printf("File size: %s (%s)", units.HumanSizeWithPrecision(float64(info.Size()), 3), format)
	}

	datasetFileID, err := u.api.DatasetFileID(ctx, input.DatasetName, input.DatasetFileName)
	if err != nil {
		return nil, err
	}

	session, err := partuploader.NewSession(u.api, datasetFileID, config, u.logger)
	if err != nil {
		return nil, err
	}
	u.logger.Infof("Uploading %s to %s/%s in %s parts [session %s]", input.FilePath, input.DatasetName,
		input.DatasetFileName, units.BytesSize(float64(config.PartSizeBytes)), session.ID())

	return session.Upload(ctx, file)
}

func (u *uploader) createConfig(input UploadInput) (partuploader.Config, error) {
	config := partuploader.DefaultConfig()
	config.HTTPClient = u.httpClient
	if input.Dialect != (csvfile.Dialect{}) {
		config.Dialect = input.Dialect
	}

	if input.PartSizeMB != 0 {
		config.PartSizeBytes = int64(input.PartSizeMB) * units.MiB
	}
	if config.PartSizeBytes < partuploader.MinPartSizeBytes {
		return partuploader.Config{}, fmt.Errorf("upload part size must be at least %s", units.BytesSize(partuploader.MinPartSizeBytes))
	}

	if input.Concurrency != 0 {
		config.Concurrency = input.Concurrency
	}

	if err := config.Validate(); err != nil {
		return partuploader.Config{}, err
	}
	return config, nil
}
