// internal/service/print_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"label-service/internal/config"
	"label-service/internal/font"
	"label-service/internal/model"
	"label-service/internal/repository"
	"label-service/internal/sbpl"
)

const testDescriptor = `[
	{"host": "192.168.0.251", "port": 1024, "communication": "SG412R_Status5"},
	[
		{"set_label_size": [400, 300]},
		{"pos": [10, 20], "write_text": "HELLO"},
		{"print": 1}
	]
]`

// fakeJobRepo records print jobs in memory
type fakeJobRepo struct {
	jobs    map[uuid.UUID]*model.PrintJob
	updates []model.JobStatus
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*model.PrintJob)}
}

func (r *fakeJobRepo) Create(ctx context.Context, job *model.PrintJob) error {
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *fakeJobRepo) Update(ctx context.Context, job *model.PrintJob) error {
	copied := *job
	r.jobs[job.ID] = &copied
	r.updates = append(r.updates, job.Status)
	return nil
}

func (r *fakeJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus) error {
	r.jobs[id].Status = status
	r.updates = append(r.updates, status)
	return nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.jobs, id)
	return nil
}

func (r *fakeJobRepo) List(ctx context.Context, filter *repository.JobFilter) ([]*model.PrintJob, int, error) {
	var jobs []*model.PrintJob
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs, len(jobs), nil
}

func (r *fakeJobRepo) GetJobStats(ctx context.Context, since *time.Time) (*repository.JobStats, error) {
	return &repository.JobStats{}, nil
}

func (r *fakeJobRepo) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

// fakeSession records the phases it is driven through
type fakeSession struct {
	calls   []string
	payload []byte
	failOn  string
	host    string
	port    int
}

func (s *fakeSession) do(op string) error {
	s.calls = append(s.calls, op)
	if op == s.failOn {
		return errors.New(op + " failed")
	}
	return nil
}

func (s *fakeSession) Open(ctx context.Context, host string, port int) error {
	s.host, s.port = host, port
	return s.do("open")
}
func (s *fakeSession) Prepare(ctx context.Context) error                     { return s.do("prepare") }
func (s *fakeSession) Send(ctx context.Context, packet []byte) error {
	s.payload = append([]byte(nil), packet...)
	return s.do("send")
}
func (s *fakeSession) Finish(ctx context.Context) error { return s.do("finish") }
func (s *fakeSession) Close() error                     { return s.do("close") }

// fakePublisher collects published events
type fakePublisher struct {
	events []*model.PrintEvent
}

func (p *fakePublisher) PublishPrintEvent(event *model.PrintEvent) {
	p.events = append(p.events, event)
}

func testConfig() *config.Config {
	return &config.Config{
		Printer: config.PrinterConfig{
			DefaultCommunication: "SG412R_Status5",
			OperationTimeout:     5 * time.Second,
			MaxPacketBytes:       1 << 20,
			DPI:                  203,
			DefaultFont:          "goregular",
			DefaultPorts: config.PrinterPortConfig{
				TCP: config.TCPPortConfig{Port: 1024},
				Serial: config.SerialPortConfig{
					BaudRate: 9600,
					DataBits: 8,
					StopBits: 1,
					Parity:   "none",
					Timeout:  5 * time.Second,
				},
				USB: config.USBPortConfig{Endpoint: 1, Timeout: 5 * time.Second},
			},
		},
	}
}

func newTestService(repo *fakeJobRepo, pub *fakePublisher, sess *fakeSession) *PrintService {
	ps := NewPrintService(repo, font.NewRepository(""), testConfig(), zap.NewNop(), pub)
	ps.newSession = func(header sbpl.Header, logger *zap.Logger) (sbpl.Session, error) {
		return sess, nil
	}
	return ps
}

func TestPrintSuccess(t *testing.T) {
	repo := newFakeJobRepo()
	pub := &fakePublisher{}
	sess := &fakeSession{}
	ps := newTestService(repo, pub, sess)

	resp, err := ps.Print(context.Background(), []byte(testDescriptor))
	if err != nil {
		t.Fatalf("Print: %v", err)
	}

	if resp.Status != model.JobStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", resp.Status)
	}
	if resp.Pages != 1 {
		t.Errorf("pages = %d, want 1", resp.Pages)
	}
	if resp.PacketBytes == 0 {
		t.Error("packet bytes is zero")
	}

	job, err := repo.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Status != model.JobStatusSuccess {
		t.Errorf("persisted status = %s, want SUCCESS", job.Status)
	}
	if job.Host != "192.168.0.251" || job.Port != 1024 {
		t.Errorf("job endpoint = %s:%d", job.Host, job.Port)
	}
	if job.CompletedAt == nil || job.DurationMs == nil {
		t.Error("completion timestamps not recorded")
	}

	wantCalls := []string{"open", "prepare", "send", "finish", "close"}
	if len(sess.calls) != len(wantCalls) {
		t.Fatalf("session calls = %v, want %v", sess.calls, wantCalls)
	}
	for i, call := range wantCalls {
		if sess.calls[i] != call {
			t.Errorf("session call %d = %s, want %s", i, sess.calls[i], call)
		}
	}
	if len(sess.payload) != resp.PacketBytes {
		t.Errorf("sent %d bytes, response reports %d", len(sess.payload), resp.PacketBytes)
	}

	var types []model.EventType
	for _, event := range pub.events {
		types = append(types, event.EventType)
	}
	want := []model.EventType{model.EventJobQueued, model.EventJobStarted, model.EventJobCompleted}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestPrintSessionFailureMarksJobFailed(t *testing.T) {
	repo := newFakeJobRepo()
	pub := &fakePublisher{}
	sess := &fakeSession{failOn: "prepare"}
	ps := newTestService(repo, pub, sess)

	_, err := ps.Print(context.Background(), []byte(testDescriptor))
	if err == nil {
		t.Fatal("expected error from failed session")
	}

	if len(repo.jobs) != 1 {
		t.Fatalf("job count = %d, want 1", len(repo.jobs))
	}
	for _, job := range repo.jobs {
		if job.Status != model.JobStatusFailed {
			t.Errorf("job status = %s, want FAILED", job.Status)
		}
		if job.ErrorMessage == nil {
			t.Error("error message not recorded")
		}
	}

	// Post owns the session, so even a failed prepare releases it.
	if sess.calls[len(sess.calls)-1] != "close" {
		t.Errorf("last session call = %s, want close", sess.calls[len(sess.calls)-1])
	}

	var sawFailed, sawPrinterError bool
	for _, event := range pub.events {
		switch event.EventType {
		case model.EventJobFailed:
			sawFailed = true
		case model.EventPrinterError:
			sawPrinterError = true
		}
	}
	if !sawFailed || !sawPrinterError {
		t.Errorf("events missing: failed=%v printer_error=%v", sawFailed, sawPrinterError)
	}
}

func TestPrintRejectsBadDescriptor(t *testing.T) {
	repo := newFakeJobRepo()
	ps := newTestService(repo, &fakePublisher{}, &fakeSession{})

	_, err := ps.Print(context.Background(), []byte(`{"not": "an array"}`))
	if err == nil {
		t.Fatal("expected error for malformed descriptor")
	}
	if len(repo.jobs) != 0 {
		t.Errorf("no job should be recorded for a rejected descriptor, got %d", len(repo.jobs))
	}
}

func TestPreviewDoesNotTouchSession(t *testing.T) {
	sess := &fakeSession{}
	ps := newTestService(newFakeJobRepo(), &fakePublisher{}, sess)

	resp, err := ps.Preview(context.Background(), []byte(testDescriptor))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if resp.Pages != 1 {
		t.Errorf("pages = %d, want 1", resp.Pages)
	}
	if resp.Packet == "" {
		t.Error("packet hex is empty")
	}
	if resp.Communication != "SG412R_Status5" {
		t.Errorf("communication = %s", resp.Communication)
	}
	if len(sess.calls) != 0 {
		t.Errorf("preview drove the session: %v", sess.calls)
	}
}

func TestPrintDefaultsPortAndCommunication(t *testing.T) {
	repo := newFakeJobRepo()
	sess := &fakeSession{}
	ps := newTestService(repo, &fakePublisher{}, sess)

	descriptor := `[{"host": "printer.local"}, [{"write_text": "X"}]]`
	resp, err := ps.Print(context.Background(), []byte(descriptor))
	if err != nil {
		t.Fatalf("Print: %v", err)
	}

	job, _ := repo.GetByID(context.Background(), resp.JobID)
	if job.Port != 1024 {
		t.Errorf("port = %d, want default 1024", job.Port)
	}
	if job.Communication != "SG412R_Status5" {
		t.Errorf("communication = %s, want config default", job.Communication)
	}
	if sess.host != "printer.local" || sess.port != 1024 {
		t.Errorf("session dialed %s:%d, want printer.local:1024", sess.host, sess.port)
	}
}

func TestNewPrinterSessionTransports(t *testing.T) {
	ps := NewPrintService(newFakeJobRepo(), font.NewRepository(""), testConfig(), zap.NewNop(), nil)

	tests := []struct {
		name    string
		header  sbpl.Header
		wantErr bool
	}{
		{
			name:   "tcp_default",
			header: sbpl.Header{Host: "192.168.0.251", Port: 1024, Communication: "SG412R_Status5"},
		},
		{
			name: "serial_with_port",
			header: sbpl.Header{
				Communication:  "SG412R_Status5",
				ConnectionType: "serial",
				Connection:     map[string]interface{}{"port": "/dev/ttyUSB0"},
			},
		},
		{
			name: "usb_missing_ids",
			header: sbpl.Header{
				Communication:  "SG412R_Status5",
				ConnectionType: "usb",
			},
			wantErr: true,
		},
		{
			name: "unknown_communication",
			header: sbpl.Header{
				Host:          "192.168.0.251",
				Communication: "NO_SUCH_MODEL",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := ps.newPrinterSession(tt.header, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newPrinterSession: %v", err)
			}
			if sess == nil {
				t.Fatal("session is nil")
			}
		})
	}
}
