package sato

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"label-service/internal/model"
	"label-service/internal/protocol"
)

// fakeConnection is a scripted transport: writes are recorded and
// every read answers with a canned acknowledgement.
type fakeConnection struct {
	writes   [][]byte
	reads    int
	open     bool
	closed   bool
	writeErr error
	readErr  error
}

func (f *fakeConnection) Open(ctx context.Context) error {
	f.open = true
	return nil
}

func (f *fakeConnection) Close() error {
	f.open = false
	f.closed = true
	return nil
}

func (f *fakeConnection) IsOpen() bool { return f.open }

func (f *fakeConnection) Write(ctx context.Context, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.reads++
	return []byte{0x06}, nil
}

func (f *fakeConnection) Type() model.ConnectionType { return model.ConnectionTypeTCP }

func newTestSession(t *testing.T, conn *fakeConnection) *Session {
	t.Helper()
	sess, err := NewSession("SG412R_Status5", zap.NewNop(), WithDialer(
		func(host string, port int) protocol.Connection { return conn },
	))
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	return sess
}

func TestSessionFrameSequence(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConnection{}
	sess := newTestSession(t, conn)

	packet := []byte("\x02\x1bA\x1bQ1\x1bZ\x03")
	if err := sess.Open(ctx, "192.168.0.251", 1024); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := sess.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if err := sess.Send(ctx, packet); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if err := sess.Finish(ctx); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	initialize := []byte{0x1B, 0x41, 0x1B, 0x43, 0x52, 0x30, 0x2C, 0x30, 0x1B, 0x5A, 0x3D}
	status := []byte{0x21, 0x01, 0x05, 0x2A, 0x2A, 0x2A, 0x2A, 0x2A, 0x03}
	want := [][]byte{initialize, status, packet, status}

	if len(conn.writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(conn.writes), len(want))
	}
	for i := range want {
		if !bytes.Equal(conn.writes[i], want[i]) {
			t.Errorf("write %d = % x, want % x", i, conn.writes[i], want[i])
		}
	}
	if conn.reads != 2 {
		t.Errorf("got %d acknowledgement reads, want 2", conn.reads)
	}
	if !conn.closed {
		t.Error("transport not released")
	}
}

func TestSessionPhaseErrors(t *testing.T) {
	ctx := context.Background()
	packet := []byte{0x02, 0x03}

	tests := []struct {
		name string
		run  func(s *Session) error
	}{
		{"prepare_before_open", func(s *Session) error {
			return s.Prepare(ctx)
		}},
		{"send_before_prepare", func(s *Session) error {
			if err := s.Open(ctx, "h", 1024); err != nil {
				return err
			}
			return s.Send(ctx, packet)
		}},
		{"finish_before_prepare", func(s *Session) error {
			if err := s.Open(ctx, "h", 1024); err != nil {
				return err
			}
			return s.Finish(ctx)
		}},
		{"open_twice", func(s *Session) error {
			if err := s.Open(ctx, "h", 1024); err != nil {
				return err
			}
			return s.Open(ctx, "h", 1024)
		}},
		{"prepare_twice", func(s *Session) error {
			if err := s.Open(ctx, "h", 1024); err != nil {
				return err
			}
			if err := s.Prepare(ctx); err != nil {
				return err
			}
			return s.Prepare(ctx)
		}},
		{"send_after_finish", func(s *Session) error {
			if err := s.Open(ctx, "h", 1024); err != nil {
				return err
			}
			if err := s.Prepare(ctx); err != nil {
				return err
			}
			if err := s.Finish(ctx); err != nil {
				return err
			}
			return s.Send(ctx, packet)
		}},
		{"send_after_close", func(s *Session) error {
			if err := s.Open(ctx, "h", 1024); err != nil {
				return err
			}
			if err := s.Close(); err != nil {
				return err
			}
			return s.Send(ctx, packet)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess := newTestSession(t, &fakeConnection{})
			err := tc.run(sess)
			var stateErr *StateError
			if !errors.As(err, &stateErr) {
				t.Errorf("expected StateError, got %v", err)
			}
		})
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	conn := &fakeConnection{}
	sess := newTestSession(t, conn)

	if err := sess.Open(context.Background(), "h", 1024); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if !conn.closed {
		t.Error("transport not released")
	}
}

func TestSessionReleasesOnFailedFinish(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConnection{}
	sess := newTestSession(t, conn)

	if err := sess.Open(ctx, "h", 1024); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := sess.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	conn.readErr = fmt.Errorf("printer went away")
	if err := sess.Finish(ctx); err == nil {
		t.Fatal("expected Finish to fail")
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !conn.closed {
		t.Error("transport not released after failed finish")
	}
}

func TestNewSessionUnknownCommunication(t *testing.T) {
	if _, err := NewSession("GL408e_Status3", zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown communication mode")
	}
}
