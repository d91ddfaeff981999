package sdi12

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/logger"
)

// responseReader assembles reply lines from the transceiver.
type responseReader struct {
	port    hal.Transceiver
	cfg     *DriverConfig
	clock   hal.Clock
	logger  logger.Logger
	metrics *DriverMetrics
}

func newResponseReader(port hal.Transceiver, cfg *DriverConfig, l logger.Logger, m *DriverMetrics) *responseReader {
	return &responseReader{
		port:    port,
		cfg:     cfg,
		clock:   cfg.Clock(),
		logger:  l,
		metrics: m,
	}
}

// readUntil collects lines until deadline.
//
// With an empty termination the first decoded line ends the read. Otherwise
// lines are collected until one equals termination. Lines are joined with
// '\n'. It reports false when no line was decoded before the deadline, and
// returns no later than deadline plus one poll interval.
func (r *responseReader) readUntil(ctx context.Context, deadline time.Time, termination string) (string, bool) {
	var (
		buf      strings.Builder
		received bool
	)

	for ctx.Err() == nil {
		if r.port.Available() > 0 {
			line, ok := r.readLine()
			if ok {
				if received {
					buf.WriteByte('\n')
				}
				buf.WriteString(line)
				received = true

				if termination == "" || line == termination {
					break
				}
			}

			if r.clock.Now().Before(deadline) {
				continue
			}

			break
		}

		now := r.clock.Now()
		if !now.Before(deadline) {
			break
		}
		r.clock.Sleep(min(r.cfg.PollInterval(), deadline.Sub(now)))
	}

	if d := r.cfg.SettleDelay(); d > 0 {
		r.clock.Sleep(d)
	}

	if !received {
		return "", false
	}

	return strings.TrimSpace(buf.String()), true
}

// readLine reads and decodes one line. Undecodable lines are logged and dropped.
func (r *responseReader) readLine() (string, bool) {
	raw, err := r.port.ReadLine()
	if err != nil {
		r.logger.Warn("sdi12: serial read failed", "error", err)
		return "", false
	}
	if raw == nil {
		return "", false
	}

	line, err := decodeLine(raw)
	if err != nil {
		r.metrics.incDecodeErrCount()
		r.logger.Warn("sdi12: discard undecodable line", "raw", fmt.Sprintf("%q", raw), "error", err)

		return "", false
	}

	return line, true
}

// decodeLine validates raw as text and strips its line terminator.
func decodeLine(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrDecode
	}

	return strings.TrimRight(string(raw), "\r\n"), nil
}
