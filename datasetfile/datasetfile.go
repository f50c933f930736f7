// Package datasetfile implements the dataset file commands of the matching API
// client on top of the network and partuploader packages.
package datasetfile

import (
	"context"

	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/aidentified/go-matching-api/datasetfile/network/partuploader"
)

// UploadAPI is the part of the API client the uploader needs.
type UploadAPI interface {
	partuploader.APICaller
	DatasetFileID(ctx context.Context, datasetName, fileName string) (string, error)
}

// DownloadAPI is the part of the API client the downloader needs.
type DownloadAPI interface {
	DatasetFileDownloadURL(ctx context.Context, datasetName, fileName string) (string, error)
	DailyFileDownloadURL(ctx context.Context, route string, query network.DailyFileQuery) (string, error)
}

var (
	_ UploadAPI   = (*network.Client)(nil)
	_ DownloadAPI = (*network.Client)(nil)
)
