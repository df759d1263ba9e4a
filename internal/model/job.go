// internal/model/job.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a print job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusSuccess    JobStatus = "SUCCESS"
	JobStatusFailed     JobStatus = "FAILED"
)

// ConnectionType represents how the printer is reached
type ConnectionType string

const (
	ConnectionTypeTCP    ConnectionType = "TCP"
	ConnectionTypeSerial ConnectionType = "SERIAL"
	ConnectionTypeUSB    ConnectionType = "USB"
)

// JSONArray type for PostgreSQL JSONB arrays
type JSONArray []interface{}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// PrintJob represents one descriptor submitted for printing and its
// outcome. Descriptor keeps the request document as received so a job
// can be inspected or resubmitted later.
type PrintJob struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Status         JobStatus      `json:"status" db:"status"`
	Host           string         `json:"host" db:"host"`
	Port           int            `json:"port" db:"port"`
	Communication  string         `json:"communication" db:"communication"`
	ConnectionType ConnectionType `json:"connection_type" db:"connection_type"`
	Descriptor     JSONArray      `json:"descriptor" db:"descriptor"`
	Pages          int            `json:"pages" db:"pages"`
	PacketBytes    int            `json:"packet_bytes" db:"packet_bytes"`
	ErrorMessage   *string        `json:"error_message" db:"error_message"`
	StartedAt      *time.Time     `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at" db:"completed_at"`
	DurationMs     *int           `json:"duration_ms" db:"duration_ms"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// IsCompleted checks if the job reached a terminal state
func (j *PrintJob) IsCompleted() bool {
	return j.Status == JobStatusSuccess || j.Status == JobStatusFailed
}
