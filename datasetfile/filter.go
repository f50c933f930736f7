package datasetfile

import (
	"encoding/json"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// FilterByName keeps the list entries whose "name" matches a glob pattern.
// An empty pattern keeps everything.
func FilterByName(records []json.RawMessage, pattern string) ([]json.RawMessage, error) {
	if pattern == "" {
		return records, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid filter pattern '%s'", pattern)
	}

	filtered := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		var entry struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(record, &entry); err != nil {
			return nil, fmt.Errorf("decode list entry: %w", err)
		}

		match, err := doublestar.Match(pattern, entry.Name)
		if err != nil {
			return nil, err
		}
		if match {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}
