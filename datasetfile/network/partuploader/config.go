package partuploader

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aidentified/go-matching-api/datasetfile/compression"
	"github.com/aidentified/go-matching-api/datasetfile/csvfile"
	"github.com/docker/go-units"
)

const (
	// MinPartSizeBytes is the smallest part size the storage backend accepts.
	MinPartSizeBytes = 5 * units.MiB
	// DefaultPartSizeBytes ...
	DefaultPartSizeBytes = 100 * units.MiB
	// DefaultConcurrency is the default number of parts in flight.
	DefaultConcurrency = 4
	// DefaultQueueDepth is the number of cut parts that may wait for a worker.
	DefaultQueueDepth = 1
)

// Config holds configuration for an upload session.
type Config struct {
	// PartSizeBytes is the size of every part but the last.
	// Callers uploading to the real API must keep it at or above MinPartSizeBytes.
	PartSizeBytes int64

	// Concurrency is the number of parts uploaded in parallel.
	Concurrency int

	// QueueDepth bounds how many parts are buffered between the rewriter and the workers.
	QueueDepth int

	// Dialect and Contract describe the source file.
	Dialect  csvfile.Dialect
	Contract csvfile.HeaderContract

	// HTTPClient is the HTTP client used to transfer part bytes.
	// If nil, DefaultHTTPClient sized to Concurrency is used.
	HTTPClient *http.Client

	// Open turns the source handle into the plain text stream. It must rewind the handle.
	// Defaults to compression.Open.
	Open func(io.ReadSeeker) (io.ReadCloser, error)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PartSizeBytes: DefaultPartSizeBytes,
		Concurrency:   DefaultConcurrency,
		QueueDepth:    DefaultQueueDepth,
		Dialect:       csvfile.DefaultDialect(),
		Contract:      csvfile.DefaultContract(),
		Open:          compression.Open,
	}
}

// Validate ...
func (c Config) Validate() error {
	if c.PartSizeBytes <= 0 {
		return fmt.Errorf("part size must be positive, got %d", c.PartSizeBytes)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue depth must be positive, got %d", c.QueueDepth)
	}
	if err := c.Dialect.Validate(); err != nil {
		return fmt.Errorf("invalid dialect: %w", err)
	}
	return csvfile.CheckEncoding(c.Dialect.Encoding)
}

func (c Config) withDefaults() Config {
	if c.HTTPClient == nil {
		c.HTTPClient = DefaultHTTPClient(c.Concurrency)
	}
	if c.Open == nil {
		c.Open = compression.Open
	}
	return c
}

// DefaultHTTPClient creates the client used for PUT requests to storage URLs.
// Every worker holds at most one connection, so the pool is sized by concurrency.
// The overall timeout stays unset because a part can take minutes on a slow link;
// the session context bounds it instead.
func DefaultHTTPClient(concurrency int) *http.Client {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxConnsPerHost:       concurrency,
			MaxIdleConnsPerHost:   concurrency,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}
