package datasetfile

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/bitrise-io/go-utils/v2/log"
)

// fakeBackend serves the matching API endpoints, the part storage and the file
// downloads from one httptest server.
type fakeBackend struct {
	*httptest.Server

	downloadURL *string
	content     string

	mu    sync.Mutex
	calls []string
	parts map[string][]byte
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{parts: map[string][]byte{}}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) client() *network.Client {
	logger := log.NewLogger()
	httpClient := network.NewHTTPClient(logger)
	tokens := network.NewTokenService(httpClient, b.URL, network.Credentials{Email: "me@example.com", Password: "secret"}, "", logger)
	return network.NewClient(httpClient, b.URL, tokens, logger)
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
}

func (b *fakeBackend) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	switch {
	case r.URL.Path == "/login":
		fmt.Fprint(w, `{"bearer_token":"token","expires_in":3600}`)
	case strings.HasPrefix(r.URL.Path, "/v1/") && r.Header.Get("Authorization") != "Bearer token":
		w.WriteHeader(http.StatusUnauthorized)
	case r.Method == http.MethodGet && r.URL.Path == network.DatasetFileRoute:
		fmt.Fprint(w, `{"count":1,"next":null,"results":[{"dataset_file_id":9,"name":"people.csv"}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/dataset-file/9/":
		json.NewEncoder(w).Encode(map[string]interface{}{"dataset_file_id": 9, "download_url": b.downloadURL})
	case r.URL.Path == "/v1/dataset-file/9/initiate-upload/", r.URL.Path == "/v1/dataset-file/9/abort-upload/":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/v1/dataset-file/9/complete-upload/":
		fmt.Fprint(w, `{"dataset_file_id":9,"status":"complete"}`)
	case r.Method == http.MethodPost && r.URL.Path == network.DatasetFilePartRoute:
		var req struct {
			PartNumber int `json:"part_number"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		fmt.Fprintf(w, `{"upload_url":"%s/storage/%d","dataset_file_upload_part_id":%d}`, b.URL, req.PartNumber, req.PartNumber)
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, network.DatasetFilePartRoute):
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/storage/"):
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.parts[r.URL.Path] = data
		b.mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/files/out.csv":
		http.ServeContent(w, r, "out.csv", time.Time{}, strings.NewReader(b.content))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
