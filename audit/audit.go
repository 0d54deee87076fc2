// Package audit writes the record of processed users to a JSON file.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Record is one processed user and what was (or would be) done to them.
type Record struct {
	DID       string    `json:"identifier"`
	Handle    string    `json:"handle"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteFile serializes records as an indented JSON array at path,
// replacing any existing file.
func WriteFile(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling audit records: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}
