// Command sdi12-read reads identification and one measurement from each
// configured SDI-12 sensor.
//
// Usage:
//
//	sdi12-read [flags]
//
// Flags:
//
//	-config string        YAML configuration file path
//	-device string        Serial device of the bus (default /dev/ttyUSB0)
//	-addresses string     Comma separated sensor addresses, or "all" (default 0)
//	-dir-pin string       Single direction control GPIO
//	-drive-pin string     Driver enable GPIO (with -receive-pin)
//	-receive-pin string   Receiver enable GPIO (with -drive-pin)
//	-measure string       Measurement command: M, M1..M9, C, ... (default M)
//	-log-level string     Log level: debug, info, warn, error (default info)
//	-simulate             Use a simulated bus instead of hardware
//
// Examples:
//
//	# Read sensor 0 through a USB adapter with an RS-485 style transceiver
//	sdi12-read -device /dev/ttyUSB0 -drive-pin GPIO17 -receive-pin GPIO27
//
//	# Scan every address of a simulated bus
//	sdi12-read -simulate -addresses all -log-level debug
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/hwio"
	"github.com/arloliu/go-sdi12/internal/sim"
	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/sdi12"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.NewSlog(level, false)
	logger.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error("sdi12-read failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, log logger.Logger, out io.Writer) error {
	addrs, err := cfg.SensorAddresses()
	if err != nil {
		return err
	}

	driver, err := openDriver(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			log.Warn("close driver", "error", err)
		}
	}()

	req := cfg.MeasureRequest()
	for _, addr := range addrs {
		if err := readOne(ctx, driver, addr, req, out); err != nil {
			return err
		}
	}

	m := driver.Metrics()
	log.Debug("bus statistics",
		"transactions", m.TransactionCount.Load(),
		"timeouts", m.TimeoutCount.Load(),
		"malformed", m.MalformedReplyCount.Load(),
		"partial", m.PartialMeasurementCount.Load(),
	)

	return nil
}

func readOne(ctx context.Context, d *sdi12.Driver, addr sdi12.Address, req sdi12.MeasureRequest, out io.Writer) error {
	id, m, err := d.ReadSensorWith(ctx, addr, req)
	if err != nil {
		return err
	}
	if id == nil && m == nil {
		fmt.Fprintf(out, "%s: no sensor\n", addr)
		return nil
	}

	if id != nil {
		fmt.Fprintf(out, "%s: %s %s %s (SDI-12 %s) %s\n",
			addr, id.Manufacturer, id.Model, id.Version, id.SDIVersion, id.ExtraInfo)
	}
	if m == nil {
		fmt.Fprintf(out, "%s: no measurement\n", addr)
		return nil
	}

	status := "complete"
	if !m.Complete() {
		status = fmt.Sprintf("partial %d/%d", len(m.Values), m.Expected)
	}
	fmt.Fprintf(out, "%s: %s [%s]\n", addr, strings.Join(m.Values, " "), status)

	return nil
}

func openDriver(cfg *Config, log logger.Logger) (*sdi12.Driver, error) {
	opts := append(cfg.DriverOptions(), sdi12.WithLogger(log))

	if cfg.Simulate {
		return openSimulated(cfg, opts)
	}

	switch {
	case cfg.DirPin != "":
		pin, err := hwio.OpenPin(cfg.DirPin, !cfg.DirTransmitHigh)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdi12.WithDirection(sdi12.NewSingleDirectionPinLevel(pin, cfg.DirTransmitHigh)))
	case cfg.DrivePin != "":
		levels := sdi12.DualPinLevels{DriveActive: cfg.DriveActiveHigh, ReceiveActive: cfg.ReceiveActiveHigh}
		drive, err := hwio.OpenPin(cfg.DrivePin, !levels.DriveActive)
		if err != nil {
			return nil, err
		}
		receive, err := hwio.OpenPin(cfg.ReceivePin, levels.ReceiveActive)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdi12.WithDirection(sdi12.NewDualDirectionPins(drive, receive, levels)))
	}

	port := hwio.NewSerialPort(cfg.Device, log)

	return newDriver(port, port.BreakLine(), opts)
}

// openSimulated attaches a demo sensor at every configured address.
func openSimulated(cfg *Config, opts []sdi12.Option) (*sdi12.Driver, error) {
	addrs, err := cfg.SensorAddresses()
	if err != nil {
		return nil, err
	}

	clock := sim.NewClock()
	bus := sim.NewBus(clock)
	for i, addr := range addrs {
		bus.Attach(&sim.Sensor{
			Address:             byte(addr),
			Identification:      fmt.Sprintf("13%-8s%-6s100demo", "SIMULATE", fmt.Sprintf("SDI%03d", i)),
			WaitSeconds:         2,
			Values:              []string{"+21.5", "-0.75", "+1013"},
			ServiceRequestAfter: 1500 * time.Millisecond,
		})
	}

	opts = append(opts, sdi12.WithClock(clock))

	return newDriver(bus, sim.NewPin("tx", clock), opts)
}

func newDriver(port hal.Transceiver, tx hal.Pin, opts []sdi12.Option) (*sdi12.Driver, error) {
	dcfg, err := sdi12.NewDriverConfig(opts...)
	if err != nil {
		return nil, err
	}

	return sdi12.NewDriver(port, tx, dcfg)
}
