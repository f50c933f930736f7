package partuploader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// RewriteTask identifies the rewrite stage in an UploadError.
const RewriteTask = -1

// UploadPartError reports a failed transfer of part bytes to the storage URL.
type UploadPartError struct {
	PartNumber int
	// StatusCode is zero for transport failures.
	StatusCode int
	Detail     string
}

func (e *UploadPartError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("Unable to upload file part: %s", e.Detail)
	}
	return fmt.Sprintf("Unable to upload file part: %d %s", e.StatusCode, e.Detail)
}

// TaskFailure is the failure of one task of an upload.
type TaskFailure struct {
	// Task is the 0-based part index, or RewriteTask.
	Task int
	Err  error
}

func (f TaskFailure) name() string {
	if f.Task == RewriteTask {
		return "rewrite"
	}
	return strconv.Itoa(f.Task)
}

// UploadError aggregates every task failure of an upload session.
type UploadError struct {
	Failures []TaskFailure
}

func (e *UploadError) Error() string {
	messages := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		messages = append(messages, fmt.Sprintf("Task %s: %s", f.name(), f.Err))
	}
	return "Error(s) while uploading file: " + strings.Join(messages, ", ")
}

// Unwrap ...
func (e *UploadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

type failureCollector struct {
	mu       sync.Mutex
	failures []TaskFailure
}

func (c *failureCollector) add(task int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, TaskFailure{Task: task, Err: err})
}

func (c *failureCollector) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.failures) == 0 {
		return nil
	}
	failures := append([]TaskFailure(nil), c.failures...)
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Task < failures[j].Task
	})
	return &UploadError{Failures: failures}
}
