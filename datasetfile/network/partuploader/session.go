package partuploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aidentified/go-matching-api/datasetfile/csvfile"
	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const abortTimeout = 30 * time.Second

// Session drives the upload of one dataset file.
//
// The source is validated in full before the API is touched. After initiate-upload
// succeeds the session is Uploading and ends either Completed or Aborted; every
// exit that does not complete sends exactly one abort-upload call.
type Session struct {
	id            string
	api           APICaller
	datasetFileID string
	config        Config
	logger        log.Logger
	stats         *Stats

	mu      sync.Mutex
	state   State
	started bool
}

// NewSession ...
func NewSession(api APICaller, datasetFileID string, config Config, logger log.Logger) (*Session, error) {
	if datasetFileID == "" {
		return nil, errors.New("dataset file id must not be empty")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		id:            uuid.NewString(),
		api:           api,
		datasetFileID: datasetFileID,
		config:        config.withDefaults(),
		logger:        logger,
		stats:         NewStats(),
	}, nil
}

// ID returns the correlation id of the session.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns the part upload statistics.
func (s *Session) Stats() *Stats {
	return s.stats
}

// start claims the session for one Upload call.
func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session %s already used", s.id)
	}
	s.started = true
	return nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Upload validates source, uploads it and returns the complete-upload response.
// source is read twice, so it must be seekable.
func (s *Session) Upload(ctx context.Context, source io.ReadSeeker) (json.RawMessage, error) {
	if err := s.start(); err != nil {
		return nil, err
	}

	summary, err := s.validate(source)
	if err != nil {
		s.setState(Aborted)
		return nil, err
	}
	s.logger.Infof("[%s] Validated %d rows", s.id, summary.Rows)

	if err := s.api.Call(ctx, http.MethodPost, network.DatasetFilePath(s.datasetFileID, "initiate-upload"), nil, nil); err != nil {
		s.setState(Aborted)
		return nil, err
	}
	s.setState(Initiated)

	s.setState(Uploading)
	defer func() {
		if s.State() != Completed {
			s.setState(Aborted)
			s.abort(ctx)
		}
	}()

	start := time.Now()
	if err := s.run(ctx, source); err != nil {
		return nil, err
	}

	var result json.RawMessage
	if err := s.api.Call(ctx, http.MethodPost, network.DatasetFilePath(s.datasetFileID, "complete-upload"), nil, &result); err != nil {
		return nil, err
	}
	s.setState(Completed)

	s.logger.Donef("[%s] Uploaded %d parts (%s) in %s", s.id, s.stats.FinishedCount(),
		units.HumanSizeWithPrecision(float64(s.stats.UploadedBytes()), 3), time.Since(start).Round(time.Second))

	return result, nil
}

func (s *Session) validate(source io.ReadSeeker) (csvfile.Summary, error) {
	r, err := s.config.Open(source)
	if err != nil {
		return csvfile.Summary{}, err
	}
	defer func(r io.ReadCloser) {
		if err := r.Close(); err != nil {
			s.logger.Warnf("[%s] Failed to close source: %s", s.id, err)
		}
	}(r)

	return csvfile.Validate(r, s.config.Dialect, s.config.Contract)
}

// run streams the rewritten source through the chunker to the workers. The first
// failure stops the dispatch of new parts; parts already in flight finish and
// their outcome is collected too.
func (s *Session) run(ctx context.Context, source io.ReadSeeker) error {
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	failures := &failureCollector{}
	fail := func(task int, err error) error {
		failures.add(task, err)
		stop()
		return err
	}

	parts := make(chan Part, s.config.QueueDepth)
	uploader := NewPartUploader(s.api, s.config.HTTPClient, s.datasetFileID, s.logger, s.stats)

	var g errgroup.Group
	g.Go(func() error {
		err := s.produce(stopCtx, source, parts)
		if err == nil || errors.Is(err, ErrStopped) || (stopCtx.Err() != nil && errors.Is(err, context.Canceled)) {
			return nil
		}
		return fail(RewriteTask, err)
	})

	for w := 0; w < s.config.Concurrency; w++ {
		g.Go(func() error {
			for {
				select {
				case <-stopCtx.Done():
					return nil
				case part, ok := <-parts:
					if !ok {
						return nil
					}
					if stopCtx.Err() != nil {
						return nil
					}
					if err := uploader.Upload(ctx, part); err != nil {
						s.logger.Warnf("[%s] Part %d failed: %s", s.id, part.Number(), err)
						return fail(part.Index, err)
					}
				}
			}
		})
	}

	_ = g.Wait()

	if err := failures.err(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Session) produce(ctx context.Context, source io.ReadSeeker, parts chan<- Part) error {
	chunker := NewChunker(s.config.PartSizeBytes, parts, ctx.Done())

	r, err := s.config.Open(source)
	if err != nil {
		return err
	}
	defer func(r io.ReadCloser) {
		if err := r.Close(); err != nil {
			s.logger.Warnf("[%s] Failed to close source: %s", s.id, err)
		}
	}(r)

	rows, err := csvfile.Rewrite(ctx, r, s.config.Dialect, s.config.Contract, chunker)
	if err != nil {
		return err
	}
	if err := chunker.Close(); err != nil {
		return err
	}

	s.logger.Debugf("[%s] Rewrote %d rows into %d parts", s.id, rows, chunker.PartsSent())
	return nil
}

func (s *Session) abort(ctx context.Context) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	s.logger.Warnf("[%s] Aborting upload of dataset file %s", s.id, s.datasetFileID)
	if err := s.api.Call(abortCtx, http.MethodPost, network.DatasetFilePath(s.datasetFileID, "abort-upload"), nil, nil); err != nil {
		s.logger.Errorf("[%s] Failed to abort upload: %s", s.id, err)
	}
}
