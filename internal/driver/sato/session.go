// internal/driver/sato/session.go
package sato

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"label-service/internal/protocol"
)

// phase is the session state. Transitions only move forward; Close is
// legal from every phase.
type phase int

const (
	phaseClosed phase = iota
	phaseOpened
	phaseInitialized
	phaseFinalizing
)

func (p phase) String() string {
	switch p {
	case phaseClosed:
		return "closed"
	case phaseOpened:
		return "opened"
	case phaseInitialized:
		return "initialized"
	case phaseFinalizing:
		return "finalizing"
	}
	return "unknown"
}

// StateError reports a session call made in the wrong phase
type StateError struct {
	Op    string
	Phase string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("session: %s not allowed in phase %s", e.Op, e.Phase)
}

// Dialer builds the transport for a session. The default dials the
// printer over TCP; tests and non-LAN deployments substitute their
// own.
type Dialer func(host string, port int) protocol.Connection

// Session drives one print exchange against a SATO printer: open the
// transport, initialize and ready the printer, send exactly one label
// packet, then confirm completion. It implements sbpl.Session.
type Session struct {
	frames FrameSet
	dial   Dialer
	logger *zap.Logger
	conn   protocol.Connection
	phase  phase
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithDialer replaces the transport dialer
func WithDialer(dial Dialer) SessionOption {
	return func(s *Session) {
		s.dial = dial
	}
}

// NewSession creates a session speaking the named communication mode
func NewSession(communication string, logger *zap.Logger, opts ...SessionOption) (*Session, error) {
	frames, err := FramesFor(communication)
	if err != nil {
		return nil, err
	}

	s := &Session{
		frames: frames,
		logger: logger.With(zap.String("communication", communication)),
		phase:  phaseClosed,
	}
	s.dial = func(host string, port int) protocol.Connection {
		return protocol.NewTCPConnection(&protocol.TCPConfig{
			Host:         host,
			Port:         port,
			KeepAlive:    true,
			Timeout:      10 * time.Second,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}, s.logger)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open dials the printer
func (s *Session) Open(ctx context.Context, host string, port int) error {
	if s.phase != phaseClosed || s.conn != nil {
		return &StateError{Op: "open", Phase: s.phase.String()}
	}

	conn := s.dial(host, port)
	if err := conn.Open(ctx); err != nil {
		return fmt.Errorf("open printer session: %w", err)
	}

	s.conn = conn
	s.phase = phaseOpened
	s.logger.Info("Printer session opened",
		zap.String("host", host),
		zap.Int("port", port),
	)
	return nil
}

// Prepare initializes the printer and waits for its ready
// acknowledgement. Legal once, directly after Open.
func (s *Session) Prepare(ctx context.Context) error {
	if s.phase != phaseOpened {
		return &StateError{Op: "prepare", Phase: s.phase.String()}
	}

	if err := s.conn.Write(ctx, s.frames.Initialize); err != nil {
		return fmt.Errorf("send initialize frame: %w", err)
	}
	if err := s.roundTrip(ctx, "prepare"); err != nil {
		return err
	}

	s.phase = phaseInitialized
	s.logger.Debug("Printer session prepared")
	return nil
}

// Send transmits one serialized label packet
func (s *Session) Send(ctx context.Context, packet []byte) error {
	if s.phase != phaseInitialized {
		return &StateError{Op: "send", Phase: s.phase.String()}
	}

	if err := s.conn.Write(ctx, packet); err != nil {
		return fmt.Errorf("send label packet: %w", err)
	}

	s.logger.Info("Label packet sent", zap.Int("bytes", len(packet)))
	return nil
}

// Finish confirms the print completed. The session cannot send again
// afterwards; release it with Close.
func (s *Session) Finish(ctx context.Context) error {
	if s.phase != phaseInitialized {
		return &StateError{Op: "finish", Phase: s.phase.String()}
	}
	s.phase = phaseFinalizing

	if err := s.roundTrip(ctx, "finish"); err != nil {
		return err
	}

	s.logger.Info("Printer session finished")
	return nil
}

// Close releases the transport. Safe to call in any phase and more
// than once.
func (s *Session) Close() error {
	s.phase = phaseClosed

	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil

	if err := conn.Close(); err != nil {
		return fmt.Errorf("close printer session: %w", err)
	}
	return nil
}

// roundTrip sends the status frame and reads the printer's
// acknowledgement.
func (s *Session) roundTrip(ctx context.Context, op string) error {
	if err := s.conn.Write(ctx, s.frames.Status); err != nil {
		return fmt.Errorf("%s: send status frame: %w", op, err)
	}
	response, err := s.conn.Read(ctx, s.frames.ResponseMax)
	if err != nil {
		return fmt.Errorf("%s: read acknowledgement: %w", op, err)
	}

	s.logger.Debug("Printer acknowledgement received",
		zap.String("op", op),
		zap.Int("bytes", len(response)),
	)
	return nil
}
