// internal/service/print_service.go
package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"label-service/internal/config"
	"label-service/internal/driver/sato"
	"label-service/internal/font"
	"label-service/internal/model"
	"label-service/internal/protocol"
	"label-service/internal/repository"
	"label-service/internal/sbpl"
	"label-service/internal/utils"
)

// EventPublisher receives job lifecycle events for broadcasting
type EventPublisher interface {
	PublishPrintEvent(event *model.PrintEvent)
}

// PrintService handles descriptor translation and printer sessions
type PrintService struct {
	jobRepo   repository.JobRepository
	fonts     *font.Repository
	config    *config.Config
	logger    *utils.ServiceLogger
	publisher EventPublisher

	// newSession is swapped out in tests
	newSession func(header sbpl.Header, logger *zap.Logger) (sbpl.Session, error)
}

// NewPrintService creates a new print service instance
func NewPrintService(
	jobRepo repository.JobRepository,
	fonts *font.Repository,
	cfg *config.Config,
	logger *zap.Logger,
	publisher EventPublisher,
) *PrintService {
	ps := &PrintService{
		jobRepo:   jobRepo,
		fonts:     fonts,
		config:    cfg,
		logger:    utils.NewServiceLogger(logger, "print-service"),
		publisher: publisher,
	}
	ps.newSession = ps.newPrinterSession
	return ps
}

// newPrinterSession builds a session for the header's transport. TCP
// needs no connection block; serial and USB sessions merge the
// header's connection object over the configured port defaults.
func (ps *PrintService) newPrinterSession(header sbpl.Header, logger *zap.Logger) (sbpl.Session, error) {
	connType := headerConnectionType(header)
	if connType == model.ConnectionTypeTCP {
		return sato.NewSession(header.Communication, logger)
	}

	settings := ps.transportSettings(connType, header)
	if err := protocol.ValidateConfig(connType, settings); err != nil {
		return nil, fmt.Errorf("invalid %s connection settings: %w", connType, err)
	}
	conn, err := protocol.CreateConnection(connType, settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s transport: %w", connType, err)
	}

	dial := func(host string, port int) protocol.Connection { return conn }
	return sato.NewSession(header.Communication, logger, sato.WithDialer(dial))
}

// transportSettings seeds the factory configuration from the service
// defaults, letting the descriptor's connection object override any
// key.
func (ps *PrintService) transportSettings(connType model.ConnectionType, header sbpl.Header) map[string]interface{} {
	settings := map[string]interface{}{}
	switch connType {
	case model.ConnectionTypeSerial:
		defaults := ps.config.Printer.DefaultPorts.Serial
		settings["baud_rate"] = defaults.BaudRate
		settings["data_bits"] = defaults.DataBits
		settings["stop_bits"] = defaults.StopBits
		settings["parity"] = defaults.Parity
		settings["timeout"] = defaults.Timeout.String()
	case model.ConnectionTypeUSB:
		defaults := ps.config.Printer.DefaultPorts.USB
		settings["endpoint"] = defaults.Endpoint
		settings["timeout"] = defaults.Timeout.String()
	}
	for key, value := range header.Connection {
		settings[key] = value
	}
	return settings
}

func headerConnectionType(header sbpl.Header) model.ConnectionType {
	if header.ConnectionType == "" {
		return model.ConnectionTypeTCP
	}
	return model.ConnectionType(strings.ToUpper(header.ConnectionType))
}

// Print translates a descriptor document, records a job and drives a
// full printer session for it.
func (ps *PrintService) Print(ctx context.Context, rawDescriptor []byte) (*PrintResponse, error) {
	tr, err := ps.translate(rawDescriptor)
	if err != nil {
		return nil, err
	}

	header := tr.Header()
	if header.Communication == "" {
		header.Communication = ps.config.Printer.DefaultCommunication
	}
	connType := headerConnectionType(header)
	if header.Port == 0 && connType == model.ConnectionTypeTCP {
		header.Port = ps.config.Printer.DefaultPorts.TCP.Port
	}
	tr.SetHeader(header)

	packet, err := tr.Generator().ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render packet: %w", err)
	}

	job := &model.PrintJob{
		ID:             uuid.New(),
		Status:         model.JobStatusPending,
		Host:           header.Host,
		Port:           header.Port,
		Communication:  header.Communication,
		ConnectionType: connType,
		Descriptor:     rawDescriptorArray(rawDescriptor),
		Pages:          tr.Generator().PageCount(),
		PacketBytes:    len(packet),
		CreatedAt:      time.Now(),
	}

	if err := ps.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create print job: %w", err)
	}
	ps.publishJobEvent(model.EventJobQueued, job, "INFO")

	jobLogger := utils.NewJobLogger(ps.logger.Logger, job.ID.String())
	jobLogger.Start(
		zap.String("host", job.Host),
		zap.Int("port", job.Port),
		zap.String("communication", job.Communication),
		zap.Int("pages", job.Pages),
		zap.Int("packet_bytes", job.PacketBytes),
	)

	startedAt := time.Now()
	job.Status = model.JobStatusProcessing
	job.StartedAt = &startedAt
	if err := ps.jobRepo.Update(ctx, job); err != nil {
		ps.logger.Error("Failed to update print job status", zap.Error(err))
	}
	ps.publishJobEvent(model.EventJobStarted, job, "INFO")

	sess, err := ps.newSession(header, ps.logger.Logger)
	if err != nil {
		ps.failJob(ctx, job, err)
		jobLogger.Error(err)
		return nil, fmt.Errorf("failed to create printer session: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, ps.config.Printer.OperationTimeout)
	defer cancel()

	if err := tr.Post(execCtx, sess); err != nil {
		ps.failJob(ctx, job, err)
		ps.publishPrinterError(job, err)
		jobLogger.Error(err)
		return nil, fmt.Errorf("print session failed: %w", err)
	}

	completedAt := time.Now()
	durationMs := int(completedAt.Sub(startedAt).Milliseconds())
	job.Status = model.JobStatusSuccess
	job.CompletedAt = &completedAt
	job.DurationMs = &durationMs
	if err := ps.jobRepo.Update(ctx, job); err != nil {
		ps.logger.Error("Failed to update print job", zap.Error(err))
	}
	ps.publishJobEvent(model.EventJobCompleted, job, "INFO")
	jobLogger.Success(zap.Int("duration_ms", durationMs))

	return &PrintResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Pages:       job.Pages,
		PacketBytes: job.PacketBytes,
		DurationMs:  durationMs,
	}, nil
}

// Preview translates a descriptor and returns the rendered packet
// without touching any printer.
func (ps *PrintService) Preview(ctx context.Context, rawDescriptor []byte) (*PreviewResponse, error) {
	tr, err := ps.translate(rawDescriptor)
	if err != nil {
		return nil, err
	}

	packet, err := tr.Generator().ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render packet: %w", err)
	}

	header := tr.Header()
	return &PreviewResponse{
		Host:          header.Host,
		Port:          header.Port,
		Communication: header.Communication,
		Pages:         tr.Generator().PageCount(),
		PacketBytes:   len(packet),
		Packet:        hex.EncodeToString(packet),
	}, nil
}

// GetJob retrieves print job details
func (ps *PrintService) GetJob(ctx context.Context, jobID uuid.UUID) (*model.PrintJob, error) {
	job, err := ps.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("print job not found: %w", err)
	}
	return job, nil
}

// ListJobs lists print jobs with filtering
func (ps *PrintService) ListJobs(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, *PaginationResult, error) {
	jobs, total, err := ps.jobRepo.List(ctx, filter.toRepoFilter())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list print jobs: %w", err)
	}

	pagination := &PaginationResult{
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: (total + filter.PerPage - 1) / filter.PerPage,
	}

	return jobs, pagination, nil
}

// ListFonts returns the available fonts and session frame tables
func (ps *PrintService) ListFonts() (*FontListResponse, error) {
	fonts, err := ps.fonts.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list fonts: %w", err)
	}

	return &FontListResponse{
		Fonts:          fonts,
		DefaultFont:    ps.config.Printer.DefaultFont,
		Communications: sato.Communications(),
	}, nil
}

// Helper methods

// translate builds a fresh translator and parses the descriptor.
// Translators carry per-document state, so each request gets its own.
func (ps *PrintService) translate(rawDescriptor []byte) (*sbpl.Translator, error) {
	enc := sbpl.NewEncoder(ps.fonts)
	gen := sbpl.NewGenerator(enc,
		sbpl.WithMaxPacketBytes(ps.config.Printer.MaxPacketBytes),
		sbpl.WithDPI(ps.config.Printer.DPI),
	)
	tr := sbpl.NewTranslator(gen)

	if err := tr.Parse(rawDescriptor); err != nil {
		return nil, fmt.Errorf("descriptor rejected: %w", err)
	}
	return tr, nil
}

// failJob marks the job failed and records the error
func (ps *PrintService) failJob(ctx context.Context, job *model.PrintJob, err error) {
	completedAt := time.Now()
	job.Status = model.JobStatusFailed
	job.CompletedAt = &completedAt
	if job.StartedAt != nil {
		durationMs := int(completedAt.Sub(*job.StartedAt).Milliseconds())
		job.DurationMs = &durationMs
	}
	errorMsg := err.Error()
	job.ErrorMessage = &errorMsg

	if updateErr := ps.jobRepo.Update(ctx, job); updateErr != nil {
		ps.logger.Error("Failed to update print job error", zap.Error(updateErr))
	}
	ps.publishJobEvent(model.EventJobFailed, job, "ERROR")
}

func (ps *PrintService) publishJobEvent(eventType model.EventType, job *model.PrintJob, severity string) {
	if ps.publisher == nil {
		return
	}

	data := model.JSONObject{
		"status":       string(job.Status),
		"pages":        job.Pages,
		"packet_bytes": job.PacketBytes,
	}
	if job.DurationMs != nil {
		data["duration_ms"] = *job.DurationMs
	}
	if job.ErrorMessage != nil {
		data["error_message"] = *job.ErrorMessage
	}

	ps.publisher.PublishPrintEvent(&model.PrintEvent{
		ID:        uuid.New(),
		EventType: eventType,
		JobID:     job.ID,
		Data:      data,
		Timestamp: time.Now(),
		Source:    "print-service",
		Severity:  severity,
	})
}

func (ps *PrintService) publishPrinterError(job *model.PrintJob, err error) {
	if ps.publisher == nil {
		return
	}

	ps.publisher.PublishPrintEvent(&model.PrintEvent{
		ID:        uuid.New(),
		EventType: model.EventPrinterError,
		JobID:     job.ID,
		Data: model.JSONObject{
			"host":          job.Host,
			"port":          job.Port,
			"error_message": err.Error(),
		},
		Timestamp: time.Now(),
		Source:    "print-service",
		Severity:  "ERROR",
	})
}

// rawDescriptorArray re-decodes the request body for JSONB storage.
// Parse already validated it, so decode errors cannot happen here.
func rawDescriptorArray(raw []byte) model.JSONArray {
	var doc model.JSONArray
	if err := doc.Scan(append([]byte(nil), raw...)); err != nil {
		return nil
	}
	return doc
}

// DTOs for Print Service

// PrintResponse represents print execution response
type PrintResponse struct {
	JobID       uuid.UUID       `json:"job_id"`
	Status      model.JobStatus `json:"status"`
	Pages       int             `json:"pages"`
	PacketBytes int             `json:"packet_bytes"`
	DurationMs  int             `json:"duration_ms"`
}

// PreviewResponse represents a rendered packet without device I/O
type PreviewResponse struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Communication string `json:"communication"`
	Pages         int    `json:"pages"`
	PacketBytes   int    `json:"packet_bytes"`
	Packet        string `json:"packet"`
}

// FontListResponse lists rasterizable fonts and known frame tables
type FontListResponse struct {
	Fonts          []string `json:"fonts"`
	DefaultFont    string   `json:"default_font"`
	Communications []string `json:"communications"`
}

// JobFilter represents print job listing filters
type JobFilter struct {
	Status    *model.JobStatus `json:"status,omitempty"`
	Host      *string          `json:"host,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	Page      int              `json:"page"`
	PerPage   int              `json:"per_page"`
	SortBy    string           `json:"sort_by"`
	SortOrder string           `json:"sort_order"`
}

// PaginationResult represents pagination metadata
type PaginationResult struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// toRepoFilter converts to repository filter
func (jf *JobFilter) toRepoFilter() *repository.JobFilter {
	return &repository.JobFilter{
		Status:    jf.Status,
		Host:      jf.Host,
		StartDate: jf.StartDate,
		EndDate:   jf.EndDate,
		Page:      jf.Page,
		PerPage:   jf.PerPage,
		SortBy:    jf.SortBy,
		SortOrder: jf.SortOrder,
	}
}
