// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

const (
	// SourceFile reads the corpus from the local filesystem.
	SourceFile = "file"
	// SourceMinIO downloads the corpus object from the configured bucket.
	SourceMinIO = "minio"
)

// IngestionTask asks a worker to load a corpus and ingest it.
type IngestionTask struct {
	TaskID      string    `json:"task_id"`
	Source      string    `json:"source"`
	Location    string    `json:"location"`
	RequestedAt time.Time `json:"requested_at"`
}
