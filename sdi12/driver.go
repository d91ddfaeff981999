package sdi12

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/logger"
)

// MaxDigitCount is the widest value-count field of a measurement reply
// (three digits, used by high-volume measurements).
const MaxDigitCount = 3

// MeasureRequest selects the measurement command.
//
// The zero value is a standard "aM!" measurement with a one digit value count.
type MeasureRequest struct {
	// Kind is the command verb: "M", "M1".."M9", "MC", "C", "C1"..., "HA"...
	Kind string
	// DigitCount is the width of the value count field in the reply:
	// 1 for M, 2 for C, 3 for high-volume commands.
	DigitCount int
	// ForceWait ignores early service requests and always waits the full
	// time the sensor announced, for sensors that put noise on the line.
	ForceWait bool
}

func (r MeasureRequest) withDefaults() MeasureRequest {
	if r.Kind == "" {
		r.Kind = DefaultMeasureKind
	}
	if r.DigitCount == 0 {
		r.DigitCount = DefaultMeasureDigitCount
	}

	return r
}

// Measurement holds the values collected for one measurement request.
type Measurement struct {
	// Values are the sign-delimited values in reply order, as sent.
	Values []string
	// Expected is the value count the sensor announced.
	Expected int
	// Wait is the time the sensor announced for the measurement.
	Wait time.Duration
	// ServiceRequest reports whether the sensor signaled early.
	ServiceRequest bool
	// Retrievals is the number of data commands sent.
	Retrievals int
}

// Complete reports whether the announced value count was reached.
func (m *Measurement) Complete() bool {
	return len(m.Values) >= m.Expected
}

// Driver implements the SDI-12 protocol operations on top of a Transport.
//
// This type is NOT goroutine-safe; see the package documentation.
type Driver struct {
	transport *Transport
	cfg       *DriverConfig
	logger    logger.Logger
	metrics   *DriverMetrics
}

// NewDriver creates a Driver that owns a new Transport on port and tx.
func NewDriver(port hal.Transceiver, tx hal.Pin, cfg *DriverConfig) (*Driver, error) {
	t, err := NewTransport(port, tx, cfg)
	if err != nil {
		return nil, err
	}

	return &Driver{
		transport: t,
		cfg:       cfg,
		logger:    cfg.GetLogger(),
		metrics:   t.Metrics(),
	}, nil
}

// Metrics returns the driver metrics.
func (d *Driver) Metrics() *DriverMetrics { return d.metrics }

// Close releases the bus.
func (d *Driver) Close() error {
	return d.transport.Close()
}

// Transact sends an arbitrary command, e.g. an extended "aX...!" command.
func (d *Driver) Transact(ctx context.Context, cmd Command, timeout time.Duration, termination string) (string, bool, error) {
	return d.transport.Transact(ctx, cmd, timeout, termination)
}

func (d *Driver) transact(ctx context.Context, cmd Command) (string, bool, error) {
	return d.transport.Transact(ctx, cmd, d.cfg.ResponseTimeout(), "")
}

// Probe reports whether a sensor answers at addr.
func (d *Driver) Probe(ctx context.Context, addr Address) (bool, error) {
	if !addr.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidAddress, byte(addr))
	}

	line, ok, err := d.transact(ctx, NewCommand(addr, ""))
	if err != nil || !ok {
		return false, err
	}

	return line == addr.String(), nil
}

// Identify reads the identification of the sensor at addr. It returns nil
// when the sensor does not answer, the reply is too short, or it comes from
// another address.
func (d *Driver) Identify(ctx context.Context, addr Address) (*SensorIdentity, error) {
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, byte(addr))
	}

	line, ok, err := d.transact(ctx, NewCommand(addr, "I"))
	if err != nil || !ok {
		return nil, err
	}

	id, err := ParseIdentity(line)
	if err == nil && id.Address != addr {
		err = fmt.Errorf("%w: identification %q from address %q", ErrMalformedReply, line, byte(id.Address))
	}
	if err != nil {
		d.metrics.incMalformedReplyCount()
		d.logger.Warn("sdi12: identification rejected", "addr", addr, "line", line, "error", err)

		return nil, nil //nolint:nilnil // absence is not an error
	}

	return id, nil
}

// Measure starts a measurement at addr, waits for it, and collects the values.
//
// It returns nil when the sensor does not answer the request or the reply
// is malformed. Otherwise the returned Measurement holds all values collected
// by up to MaxDataRetrievals data commands; it may be short of the announced
// count, see Measurement.Complete.
func (d *Driver) Measure(ctx context.Context, addr Address, req MeasureRequest) (*Measurement, error) {
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, byte(addr))
	}
	req = req.withDefaults()
	if req.DigitCount < 1 || req.DigitCount > MaxDigitCount {
		return nil, fmt.Errorf("sdi12: digit count %d out of range [1, %d]", req.DigitCount, MaxDigitCount)
	}

	cmd := NewCommand(addr, req.Kind)
	line, ok, err := d.transact(ctx, cmd)
	if err != nil || !ok {
		return nil, err
	}

	ready, err := ParseMeasurementReady(line, addr, req.DigitCount)
	if err != nil {
		d.metrics.incMalformedReplyCount()
		d.logger.Warn("sdi12: measurement reply rejected", "addr", addr, "cmd", cmd, "line", line, "error", err)

		return nil, nil //nolint:nilnil // absence is not an error
	}

	m := &Measurement{
		Values:   []string{},
		Expected: ready.ValueCount,
		Wait:     time.Duration(ready.WaitSeconds) * time.Second,
	}

	m.ServiceRequest, err = d.transport.awaitServiceRequest(ctx, cmd, m.Wait, req.ForceWait)
	if err != nil {
		return nil, err
	}

	// The first data command is always sent; the loop then runs while values
	// are missing, up to MaxDataRetrievals commands.
	for i := 0; i < MaxDataRetrievals; i++ {
		values, err := d.retrieve(ctx, addr, "D"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		m.Retrievals++
		m.Values = append(m.Values, values...)

		if len(m.Values) >= m.Expected {
			break
		}
	}

	if !m.Complete() {
		d.metrics.incPartialMeasurementCount()
		d.logger.Warn("sdi12: measurement incomplete",
			"addr", addr,
			"cmd", cmd,
			"expected", m.Expected,
			"received", len(m.Values),
			"retrievals", m.Retrievals,
		)
	}

	return m, nil
}

// ReadContinuous reads continuous measurement index (0-9) of the sensor at addr.
func (d *Driver) ReadContinuous(ctx context.Context, addr Address, index int) ([]string, bool, error) {
	if !addr.IsValid() {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidAddress, byte(addr))
	}
	if index < 0 || index > 9 {
		return nil, false, fmt.Errorf("sdi12: continuous index %d out of range [0, 9]", index)
	}

	line, ok, err := d.transact(ctx, NewCommand(addr, "R"+strconv.Itoa(index)))
	if err != nil || !ok {
		return nil, false, err
	}

	return d.parseData(addr, line), true, nil
}

// ReadSensor probes addr and, if a sensor answers, reads its identification
// and one standard measurement. Both results are nil for an inactive address.
func (d *Driver) ReadSensor(ctx context.Context, addr Address) (*SensorIdentity, *Measurement, error) {
	return d.ReadSensorWith(ctx, addr, MeasureRequest{})
}

// ReadSensorWith is ReadSensor with the measurement selected by req.
func (d *Driver) ReadSensorWith(ctx context.Context, addr Address, req MeasureRequest) (*SensorIdentity, *Measurement, error) {
	active, err := d.Probe(ctx, addr)
	if err != nil || !active {
		return nil, nil, err
	}

	id, err := d.Identify(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	m, err := d.Measure(ctx, addr, req)
	if err != nil {
		return id, nil, err
	}

	return id, m, nil
}

// ChangeAddress moves the sensor at from to address to. It reports whether
// the sensor acknowledged with its new address.
func (d *Driver) ChangeAddress(ctx context.Context, from, to Address) (bool, error) {
	if !from.IsValid() || !to.IsValid() {
		return false, fmt.Errorf("%w: %q -> %q", ErrInvalidAddress, byte(from), byte(to))
	}

	line, ok, err := d.transact(ctx, NewCommand(from, "A"+to.String()))
	if err != nil || !ok {
		return false, err
	}

	return line == to.String(), nil
}

// QueryAddress asks for the address of the only sensor on the bus. With
// several sensors attached the replies collide and the result is meaningless.
func (d *Driver) QueryAddress(ctx context.Context) (Address, bool, error) {
	line, ok, err := d.transact(ctx, QueryAddressCommand)
	if err != nil || !ok {
		return 0, false, err
	}

	addr, err := ParseAddress(line)
	if err != nil {
		d.metrics.incMalformedReplyCount()
		d.logger.Warn("sdi12: address query reply rejected", "line", line, "error", err)

		return 0, false, nil
	}

	return addr, true, nil
}

// retrieve sends one data command and parses its reply. A missing or
// unparsable reply yields no values.
func (d *Driver) retrieve(ctx context.Context, addr Address, verb string) ([]string, error) {
	d.metrics.incRetrievalCount()

	line, ok, err := d.transact(ctx, NewCommand(addr, verb))
	if err != nil || !ok {
		return nil, err
	}

	return d.parseData(addr, line), nil
}

func (d *Driver) parseData(addr Address, line string) []string {
	if len(line) == 0 || Address(line[0]) != addr {
		d.metrics.incMalformedReplyCount()
		d.logger.Warn("sdi12: data reply from wrong address", "addr", addr, "line", line)

		return nil
	}

	values, err := ParseValues(line)
	if err != nil {
		d.metrics.incParseErrCount()
		d.logger.Warn("sdi12: discard unparsable data", "addr", addr, "line", line, "error", err)

		return nil
	}

	return values
}
