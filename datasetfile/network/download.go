package network

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
)

// DownloadFile downloads url to dest. Download links are presigned storage URLs,
// so transient failures are retried by the retryablehttp policy.
func DownloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	downloader := got.New()
	downloader.Client = client

	if err := downloader.Do(got.NewDownload(ctx, url, dest)); err != nil {
		return fmt.Errorf("Unable to download file: %w", err)
	}
	return nil
}

// NewDownloadHTTPClient returns the client used for file downloads.
func NewDownloadHTTPClient(logger log.Logger) *http.Client {
	client := retryhttp.NewClient(logger)
	client.CheckRetry = func(ctx context.Context, resp *http.Response, downloadErr error) (bool, error) {
		retry, err := retryablehttp.DefaultRetryPolicy(ctx, resp, downloadErr)
		logger.Debugf("CheckRetry: retry=%v ; err=%+v ; downloadErr=%+v", retry, err, downloadErr)
		return retry, err
	}
	return client.StandardClient()
}
