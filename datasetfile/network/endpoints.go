package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// API routes.
const (
	DatasetRoute           = "/v1/dataset/"
	DatasetFileRoute       = "/v1/dataset-file/"
	DatasetFilePartRoute   = "/v1/dataset-file-upload-part/"
	DatasetDeltaFileRoute  = "/v1/dataset-delta-file/"
	DatasetEventsFileRoute = "/v1/events-file/"
)

// ErrNotReady is returned when a dataset file has no download URL yet.
var ErrNotReady = errors.New("Dataset file is not ready for download.")

type listResponse struct {
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}

type datasetRecord struct {
	DatasetID ID `json:"dataset_id"`
}

type datasetFileRecord struct {
	DatasetFileID ID      `json:"dataset_file_id"`
	DownloadURL   *string `json:"download_url"`
}

// DatasetFilePath returns the route of a dataset file, with optional action segments
// such as "initiate-upload".
func DatasetFilePath(datasetFileID string, action ...string) string {
	path := fmt.Sprintf("%s%s/", DatasetFileRoute, url.PathEscape(datasetFileID))
	for _, a := range action {
		path += a + "/"
	}
	return path
}

// DatasetID resolves a dataset name to its id.
func (c *Client) DatasetID(ctx context.Context, name string) (string, error) {
	var resp listResponse
	if err := c.Get(ctx, DatasetRoute, url.Values{"name": {name}}, &resp); err != nil {
		return "", err
	}
	if resp.Count == 0 || len(resp.Results) == 0 {
		return "", fmt.Errorf("No dataset with name '%s' found", name)
	}

	var record datasetRecord
	if err := json.Unmarshal(resp.Results[0], &record); err != nil {
		return "", fmt.Errorf("decode dataset: %w", err)
	}
	return record.DatasetID.String(), nil
}

// DatasetFileID resolves a dataset file name within a dataset to its id.
func (c *Client) DatasetFileID(ctx context.Context, datasetName, fileName string) (string, error) {
	var resp listResponse
	query := url.Values{"dataset_name": {datasetName}, "name": {fileName}}
	if err := c.Get(ctx, DatasetFileRoute, query, &resp); err != nil {
		return "", err
	}
	if resp.Count == 0 || len(resp.Results) == 0 {
		return "", fmt.Errorf("No dataset file with name '%s' found", fileName)
	}

	var record datasetFileRecord
	if err := json.Unmarshal(resp.Results[0], &record); err != nil {
		return "", fmt.Errorf("decode dataset file: %w", err)
	}
	return record.DatasetFileID.String(), nil
}

// ListDatasets ...
func (c *Client) ListDatasets(ctx context.Context) ([]json.RawMessage, error) {
	return c.Paginated(ctx, DatasetRoute, nil)
}

// CreateDataset ...
func (c *Client) CreateDataset(ctx context.Context, name string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.Call(ctx, http.MethodPost, DatasetRoute, map[string]string{"name": name}, &resp)
	return resp, err
}

// DeleteDataset ...
func (c *Client) DeleteDataset(ctx context.Context, name string) error {
	id, err := c.DatasetID(ctx, name)
	if err != nil {
		return err
	}
	return c.Call(ctx, http.MethodDelete, fmt.Sprintf("%s%s/", DatasetRoute, url.PathEscape(id)), nil, nil)
}

// ListDatasetFiles ...
func (c *Client) ListDatasetFiles(ctx context.Context, datasetName string) ([]json.RawMessage, error) {
	return c.Paginated(ctx, DatasetFileRoute, url.Values{"dataset_name": {datasetName}})
}

// CreateDatasetFile ...
func (c *Client) CreateDatasetFile(ctx context.Context, datasetName, fileName string) (json.RawMessage, error) {
	datasetID, err := c.DatasetID(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	payload := map[string]string{"dataset_id": datasetID, "name": fileName}
	var resp json.RawMessage
	err = c.Call(ctx, http.MethodPost, DatasetFileRoute, payload, &resp)
	return resp, err
}

// AbortDatasetFileUpload aborts the upload session of a dataset file.
func (c *Client) AbortDatasetFileUpload(ctx context.Context, datasetName, fileName string) (json.RawMessage, error) {
	id, err := c.DatasetFileID(ctx, datasetName, fileName)
	if err != nil {
		return nil, err
	}

	var resp json.RawMessage
	err = c.Call(ctx, http.MethodPost, DatasetFilePath(id, "abort-upload"), nil, &resp)
	return resp, err
}

// DeleteDatasetFile ...
func (c *Client) DeleteDatasetFile(ctx context.Context, datasetName, fileName string) error {
	id, err := c.DatasetFileID(ctx, datasetName, fileName)
	if err != nil {
		return err
	}
	return c.Call(ctx, http.MethodDelete, DatasetFilePath(id), nil, nil)
}

// DatasetFileDownloadURL returns the download URL of a processed dataset file.
func (c *Client) DatasetFileDownloadURL(ctx context.Context, datasetName, fileName string) (string, error) {
	id, err := c.DatasetFileID(ctx, datasetName, fileName)
	if err != nil {
		return "", err
	}

	var record datasetFileRecord
	if err := c.Call(ctx, http.MethodGet, DatasetFilePath(id), nil, &record); err != nil {
		return "", err
	}
	if record.DownloadURL == nil || *record.DownloadURL == "" {
		return "", ErrNotReady
	}
	return *record.DownloadURL, nil
}

// DailyFileQuery selects delta or event files of a dataset file.
type DailyFileQuery struct {
	DatasetName     string
	DatasetFileName string
	// FileDate (YYYY-MM-DD) is optional.
	FileDate string
}

func (q DailyFileQuery) values() url.Values {
	values := url.Values{
		"dataset_name":      {q.DatasetName},
		"dataset_file_name": {q.DatasetFileName},
	}
	if q.FileDate != "" {
		values.Set("file_date", q.FileDate)
	}
	return values
}

// ListDailyFiles lists the delta or event files served by route.
func (c *Client) ListDailyFiles(ctx context.Context, route string, query DailyFileQuery) ([]json.RawMessage, error) {
	return c.Paginated(ctx, route, query.values())
}

// DailyFileDownloadURL returns the download URL of the newest matching delta or event file.
func (c *Client) DailyFileDownloadURL(ctx context.Context, route string, query DailyFileQuery) (string, error) {
	var resp struct {
		datasetFileRecord
		Results []datasetFileRecord `json:"results"`
	}
	if err := c.Get(ctx, route, query.values(), &resp); err != nil {
		return "", err
	}

	downloadURL := resp.DownloadURL
	if downloadURL == nil && len(resp.Results) > 0 {
		downloadURL = resp.Results[0].DownloadURL
	}
	if downloadURL == nil || *downloadURL == "" {
		return "", ErrNotReady
	}
	return *downloadURL, nil
}
