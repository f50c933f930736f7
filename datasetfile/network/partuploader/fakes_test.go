package partuploader

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aidentified/go-matching-api/datasetfile/network"
)

// fakeAPI records the handshake calls of a session and hands out upload URLs
// pointing at a fakeStorage.
type fakeAPI struct {
	storageURL string

	initiateErr error
	completeErr error

	mu        sync.Mutex
	calls     []string
	allocated []int
	acked     map[string]string
}

func newFakeAPI(storageURL string) *fakeAPI {
	return &fakeAPI{storageURL: storageURL, acked: map[string]string{}}
}

func (f *fakeAPI) Call(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+path)

	switch {
	case method == http.MethodPost && path == network.DatasetFilePartRoute:
		req := body.(allocatePartRequest)
		f.allocated = append(f.allocated, req.PartNumber)
		resp := result.(*allocatePartResponse)
		resp.UploadURL = fmt.Sprintf("%s/parts/%d", f.storageURL, req.PartNumber)
		resp.PartID = network.ID(fmt.Sprintf("p%d", req.PartNumber))
	case method == http.MethodPatch && strings.HasPrefix(path, network.DatasetFilePartRoute):
		req := body.(acknowledgePartRequest)
		f.acked[path] = req.ETag
	case strings.HasSuffix(path, "/initiate-upload/"):
		return f.initiateErr
	case strings.HasSuffix(path, "/complete-upload/"):
		if f.completeErr != nil {
			return f.completeErr
		}
		if raw, ok := result.(*json.RawMessage); ok {
			*raw = json.RawMessage(`{"status":"complete"}`)
		}
	case strings.HasSuffix(path, "/abort-upload/"):
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAPI) count(suffix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, call := range f.calls {
		if strings.HasSuffix(call, suffix) {
			n++
		}
	}
	return n
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) allocatedParts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := append([]int(nil), f.allocated...)
	sort.Ints(parts)
	return parts
}

// fakeStorage accepts part uploads on /parts/<number>.
type fakeStorage struct {
	*httptest.Server

	delay     time.Duration
	failPart  int
	omitETag  bool
	inflight  int32
	maxFlight int32

	mu    sync.Mutex
	parts map[int][]byte
}

func newFakeStorage(t *testing.T) *fakeStorage {
	s := &fakeStorage{parts: map[int][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeStorage) handle(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)
	for {
		peak := atomic.LoadInt32(&s.maxFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&s.maxFlight, peak, current) {
			break
		}
	}

	number, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/parts/"))
	if err != nil || r.Method != http.MethodPut {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	sum := md5.Sum(data)
	if r.Header.Get("Content-MD5") != base64.StdEncoding.EncodeToString(sum[:]) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad digest")
		return
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	if number == s.failPart {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
		return
	}

	s.mu.Lock()
	s.parts[number] = data
	s.mu.Unlock()

	if !s.omitETag {
		w.Header().Set("ETag", fmt.Sprintf("\"etag-%d\"", number))
	}
	w.WriteHeader(http.StatusOK)
}

func (s *fakeStorage) assembled() ([]byte, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numbers := make([]int, 0, len(s.parts))
	for n := range s.parts {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var out []byte
	sizes := make([]int, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, s.parts[n]...)
		sizes = append(sizes, len(s.parts[n]))
	}
	return out, sizes
}
