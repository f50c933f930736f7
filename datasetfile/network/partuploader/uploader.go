package partuploader

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/bitrise-io/go-utils/v2/log"
)

const maxErrorBodySize = 4096

// PartUploader performs the three step handshake for a single part: allocate an
// upload slot, transfer the bytes and acknowledge the storage ETag.
type PartUploader struct {
	api           APICaller
	httpClient    *http.Client
	datasetFileID string
	logger        log.Logger
	stats         *Stats
}

// NewPartUploader ...
func NewPartUploader(api APICaller, httpClient *http.Client, datasetFileID string, logger log.Logger, stats *Stats) *PartUploader {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(DefaultConcurrency)
	}
	if stats == nil {
		stats = NewStats()
	}
	return &PartUploader{
		api:           api,
		httpClient:    httpClient,
		datasetFileID: datasetFileID,
		logger:        logger,
		stats:         stats,
	}
}

// Upload uploads part. Failures are not retried.
func (u *PartUploader) Upload(ctx context.Context, part Part) error {
	start := time.Now()
	checksum := contentMD5(part.Data)

	u.logger.Debugf("Uploading part %d (%d bytes), %d acknowledged so far, %v per part",
		part.Number(), len(part.Data), u.stats.FinishedCount(), u.stats.AveragePartTime().Round(time.Millisecond))

	var slot allocatePartResponse
	err := u.api.Call(ctx, http.MethodPost, network.DatasetFilePartRoute, allocatePartRequest{
		DatasetFileID: u.datasetFileID,
		PartNumber:    part.Number(),
		MD5:           checksum,
	}, &slot)
	if err != nil {
		return err
	}
	if slot.UploadURL == "" {
		return fmt.Errorf("no upload url for part %d", part.Number())
	}

	etag, err := u.transfer(ctx, slot.UploadURL, part, checksum)
	if err != nil {
		return err
	}

	ackPath := fmt.Sprintf("%s%s/", network.DatasetFilePartRoute, slot.PartID)
	if err := u.api.Call(ctx, http.MethodPatch, ackPath, acknowledgePartRequest{ETag: etag}, nil); err != nil {
		return err
	}

	took := time.Since(start)
	u.stats.Record(took, len(part.Data))
	u.logger.Debugf("Part %d uploaded in %v, ETag: %s", part.Number(), took.Round(time.Millisecond), etag)

	return nil
}

func (u *PartUploader) transfer(ctx context.Context, uploadURL string, part Part, checksum string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(part.Data))
	if err != nil {
		return "", &UploadPartError{PartNumber: part.Number(), Detail: err.Error()}
	}
	req.Header.Set("Content-MD5", checksum)
	req.ContentLength = int64(len(part.Data))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", &UploadPartError{PartNumber: part.Number(), Detail: err.Error()}
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			u.logger.Warnf("Failed to close response body: %s", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", &UploadPartError{
			PartNumber: part.Number(),
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(errorBody)),
		}
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", &UploadPartError{PartNumber: part.Number(), StatusCode: resp.StatusCode, Detail: "no ETag in response"}
	}

	return etag, nil
}

func contentMD5(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
