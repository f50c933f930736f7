package partuploader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartUploader_Upload(t *testing.T) {
	storage := newFakeStorage(t)
	api := newFakeAPI(storage.URL)
	stats := NewStats()
	uploader := NewPartUploader(api, storage.Client(), "17", log.NewLogger(), stats)

	err := uploader.Upload(context.Background(), Part{Index: 4, Data: []byte("hello")})
	require.NoError(t, err)

	assert.Equal(t, []int{5}, api.allocatedParts())
	assert.Equal(t, "\"etag-5\"", api.acked["/v1/dataset-file-upload-part/p5/"])
	assert.Equal(t, int64(1), stats.FinishedCount())
	assert.Equal(t, int64(5), stats.UploadedBytes())
}

func TestPartUploader_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	api := newFakeAPI(server.URL)
	server.Close()

	uploader := NewPartUploader(api, nil, "17", log.NewLogger(), nil)
	err := uploader.Upload(context.Background(), Part{Index: 0, Data: []byte("hello")})

	var partErr *UploadPartError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, 0, partErr.StatusCode)
	assert.Contains(t, err.Error(), "Unable to upload file part: ")
}

func TestPartUploader_AllocateFailure(t *testing.T) {
	allocateErr := errors.New("Unable to make API call: 403 forbidden")
	uploader := NewPartUploader(failingAPI{err: allocateErr}, nil, "17", log.NewLogger(), nil)

	err := uploader.Upload(context.Background(), Part{Index: 0, Data: []byte("hello")})
	require.ErrorIs(t, err, allocateErr)
}

type failingAPI struct {
	err error
}

func (f failingAPI) Call(context.Context, string, string, interface{}, interface{}) error {
	return f.err
}

func TestContentMD5(t *testing.T) {
	assert.Equal(t, "XUFAKrxLKna5cZ2REBfFkg==", contentMD5([]byte("hello")))
}

func TestUploadError_Error(t *testing.T) {
	collector := &failureCollector{}
	collector.add(3, &UploadPartError{PartNumber: 4, StatusCode: 500, Detail: "boom"})
	collector.add(RewriteTask, errors.New("Row 9 does not match header length"))
	collector.add(1, fmt.Errorf("Unable to make API call: 502 bad gateway"))

	err := collector.err()
	require.EqualError(t, err, "Error(s) while uploading file: Task rewrite: Row 9 does not match header length, "+
		"Task 1: Unable to make API call: 502 bad gateway, Task 3: Unable to upload file part: 500 boom")

	var partErr *UploadPartError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, 4, partErr.PartNumber)

	assert.NoError(t, (&failureCollector{}).err())
}
