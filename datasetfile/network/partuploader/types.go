// Package partuploader uploads a dataset file to the matching API as a multipart
// upload. The source is validated, rewritten to canonical CSV, cut into fixed size
// parts and the parts are uploaded by a bounded pool of workers.
package partuploader

import (
	"context"
	"fmt"

	"github.com/aidentified/go-matching-api/datasetfile/network"
)

// APICaller performs authenticated JSON calls against the matching API.
type APICaller interface {
	Call(ctx context.Context, method, path string, body interface{}, result interface{}) error
}

// Part is a contiguous slice of the rewritten stream.
type Part struct {
	// Index is 0-based; the API numbers parts from 1.
	Index int
	Data  []byte
}

// Number returns the 1-based part number used by the API.
func (p Part) Number() int {
	return p.Index + 1
}

// State of an upload session.
type State int

const (
	Pending State = iota
	Initiated
	Uploading
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Initiated:
		return "initiated"
	case Uploading:
		return "uploading"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type allocatePartRequest struct {
	DatasetFileID string `json:"dataset_file_id"`
	PartNumber    int    `json:"part_number"`
	MD5           string `json:"md5"`
}

type allocatePartResponse struct {
	UploadURL string     `json:"upload_url"`
	PartID    network.ID `json:"dataset_file_upload_part_id"`
}

type acknowledgePartRequest struct {
	ETag string `json:"etag"`
}
