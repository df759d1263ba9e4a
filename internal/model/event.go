// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventJobQueued           EventType = "JOB_QUEUED"
	EventJobStarted          EventType = "JOB_STARTED"
	EventJobCompleted        EventType = "JOB_COMPLETED"
	EventJobFailed           EventType = "JOB_FAILED"
	EventPrinterConnected    EventType = "PRINTER_CONNECTED"
	EventPrinterDisconnected EventType = "PRINTER_DISCONNECTED"
	EventPrinterError        EventType = "PRINTER_ERROR"
)

// PrintEvent represents an event in the system, published on the
// internal bus and forwarded to websocket subscribers.
type PrintEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	JobID     uuid.UUID  `json:"job_id"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"` // INFO, WARNING, ERROR
}

// JobEventData represents job lifecycle events
type JobEventData struct {
	Status       JobStatus `json:"status"`
	Pages        int       `json:"pages,omitempty"`
	PacketBytes  int       `json:"packet_bytes,omitempty"`
	DurationMs   *int      `json:"duration_ms,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// PrinterErrorEventData represents printer transport failures
type PrinterErrorEventData struct {
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	ErrorMessage string    `json:"error_message"`
	ErrorTime    time.Time `json:"error_time"`
}
