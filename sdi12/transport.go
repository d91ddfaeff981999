package sdi12

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/logger"
)

// TraceKind identifies a TraceEvent.
type TraceKind int

const (
	// TraceSend is emitted after a command was written and the line turned around.
	TraceSend TraceKind = iota
	// TraceReceive is emitted for each reply.
	TraceReceive
	// TraceTimeout is emitted when no reply arrived in time.
	TraceTimeout
	// TraceServiceRequest is emitted when a sensor signals an early ready.
	TraceServiceRequest
)

func (k TraceKind) String() string {
	switch k {
	case TraceSend:
		return "send"
	case TraceReceive:
		return "receive"
	case TraceTimeout:
		return "timeout"
	case TraceServiceRequest:
		return "service-request"
	default:
		return "unknown"
	}
}

// TraceEvent describes one observable step on the bus.
type TraceEvent struct {
	Kind    TraceKind
	Command Command
	// Line is the reply text of TraceReceive and TraceServiceRequest events.
	Line string
	// Elapsed is the time since the transaction started.
	Elapsed time.Duration
}

// TraceHook observes bus traffic. It runs synchronously on the calling
// goroutine and must not block.
type TraceHook func(TraceEvent)

// Transport performs SDI-12 transactions on one bus.
//
// This type is NOT goroutine-safe. The bus carries one transaction at a time;
// callers sharing a Transport must serialize access.
type Transport struct {
	port     hal.Transceiver
	cfg      *DriverConfig
	clock    hal.Clock
	logger   logger.Logger
	signaler *lineSignaler
	reader   *responseReader
	metrics  *DriverMetrics
}

// NewTransport creates a Transport owning port, the TX pin tx, and the
// direction controller of cfg.
func NewTransport(port hal.Transceiver, tx hal.Pin, cfg *DriverConfig) (*Transport, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if port == nil || tx == nil {
		return nil, ErrTransceiverNil
	}

	l := cfg.GetLogger()
	m := newDriverMetrics()

	return &Transport{
		port:     port,
		cfg:      cfg,
		clock:    cfg.Clock(),
		logger:   l,
		signaler: newLineSignaler(port, tx, cfg, l),
		reader:   newResponseReader(port, cfg, l, m),
		metrics:  m,
	}, nil
}

// Config returns the transport configuration.
func (t *Transport) Config() *DriverConfig { return t.cfg }

// Metrics returns the transport metrics.
func (t *Transport) Metrics() *DriverMetrics { return t.metrics }

// Transact wakes the bus, sends cmd and collects the reply.
//
// The serial port is released and reconfigured at the start of every call, so
// nothing from a previous transaction leaks into this one. termination is
// passed to the reader (see readUntil); use "" for single-line replies.
//
// ok is false when no reply arrived within timeout. err is non-nil only for
// ErrTransport failures and context cancellation.
func (t *Transport) Transact(ctx context.Context, cmd Command, timeout time.Duration, termination string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	addr := commandAddress(cmd)
	start := t.clock.Now()
	t.metrics.incTransaction(addr)

	if err := t.signaler.wakeAndSend(cmd); err != nil {
		t.metrics.incTransportErrCount()
		t.logger.Error("sdi12: transaction failed", "cmd", cmd, "error", err)

		return "", false, err
	}
	t.logger.Debug("sdi12 send", "cmd", cmd)
	t.trace(TraceEvent{Kind: TraceSend, Command: cmd, Elapsed: t.clock.Now().Sub(start)})

	line, ok := t.reader.readUntil(ctx, t.clock.Now().Add(timeout), termination)
	if !ok {
		t.metrics.incTimeout(addr)
		t.logger.Debug("sdi12 timeout", "cmd", cmd, "timeout", timeout)
		t.trace(TraceEvent{Kind: TraceTimeout, Command: cmd, Elapsed: t.clock.Now().Sub(start)})

		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		return "", false, nil
	}

	t.metrics.incResponseCount()
	t.logger.Debug("sdi12 recv", "cmd", cmd, "line", line)
	t.trace(TraceEvent{Kind: TraceReceive, Command: cmd, Line: line, Elapsed: t.clock.Now().Sub(start)})

	return line, true, nil
}

// awaitServiceRequest waits up to wait for any inbound line, which a sensor
// sends when a measurement finishes early. With force set the line is not
// checked and the full period elapses.
func (t *Transport) awaitServiceRequest(ctx context.Context, cmd Command, wait time.Duration, force bool) (bool, error) {
	start := t.clock.Now()
	deadline := start.Add(wait)
	poll := t.cfg.ServiceRequestPoll()

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if !force && t.port.Available() > 0 {
			line, _ := t.reader.readLine()
			t.metrics.incServiceRequestCount()
			t.logger.Debug("sdi12 service request", "cmd", cmd, "line", line)
			t.trace(TraceEvent{Kind: TraceServiceRequest, Command: cmd, Line: line, Elapsed: t.clock.Now().Sub(start)})

			return true, nil
		}

		now := t.clock.Now()
		if !now.Before(deadline) {
			return false, nil
		}
		t.clock.Sleep(min(poll, deadline.Sub(now)))
	}
}

// Close leaves the direction controller listening and releases the serial port.
func (t *Transport) Close() error {
	t.cfg.Direction().Close()

	if err := t.port.Deinit(); err != nil {
		return errors.Join(ErrTransport, err)
	}

	return nil
}

func (t *Transport) trace(ev TraceEvent) {
	if t.cfg.traceHook != nil {
		t.cfg.traceHook(ev)
	}
}

func commandAddress(cmd Command) Address {
	if len(cmd) == 0 {
		return 0
	}

	return Address(cmd[0])
}
