package hwio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/arloliu/go-sdi12/hal"
	"github.com/arloliu/go-sdi12/logger"
	"github.com/tarm/serial"
)

// pollReadTimeout is the tty read timeout of the receive goroutine. It bounds
// how long Deinit waits for the goroutine to notice the port is closing.
const pollReadTimeout = 20 * time.Millisecond

var errPortClosed = errors.New("hwio: serial port not open")

// SerialPort is a hal.Transceiver on a tty device.
//
// Received bytes are collected by a goroutine into a line buffer, so Available
// never blocks. The port is opened by Configure and closed by Deinit.
type SerialPort struct {
	device string
	logger logger.Logger
	open   func(*serial.Config) (io.ReadWriteCloser, error)

	mu      sync.Mutex
	port    io.ReadWriteCloser
	timeout time.Duration
	rx      *lineBuffer
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ hal.Transceiver = (*SerialPort)(nil)

// NewSerialPort creates a SerialPort for device, e.g. "/dev/ttyUSB0".
// The device is not opened until Configure.
func NewSerialPort(device string, l logger.Logger) *SerialPort {
	if l == nil {
		l = logger.GetLogger()
	}

	return &SerialPort{
		device: device,
		logger: l.With("device", device),
		open:   openTarm,
		rx:     newLineBuffer(),
	}
}

func openTarm(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(c)
}

// Device returns the tty device path.
func (s *SerialPort) Device() string { return s.device }

// Configure opens the device with cfg, closing it first if already open.
func (s *SerialPort) Configure(cfg hal.SerialConfig) error {
	if err := s.Deinit(); err != nil {
		return err
	}

	stop := serial.Stop1
	if cfg.StopBits == 2 {
		stop = serial.Stop2
	}

	port, err := s.open(&serial.Config{
		Name:        s.device,
		Baud:        cfg.BaudRate,
		ReadTimeout: pollReadTimeout,
		Size:        byte(cfg.DataBits),
		Parity:      serial.Parity(cfg.Parity),
		StopBits:    stop,
	})
	if err != nil {
		return fmt.Errorf("hwio: open %s at %d %d%c%d: %w", s.device, cfg.BaudRate, cfg.DataBits, cfg.Parity, cfg.StopBits, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.port = port
	s.timeout = cfg.Timeout
	s.rx.reset()
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.receiveLoop(port, s.done)

	return nil
}

// Deinit closes the device. It is a no-op on a closed port.
func (s *SerialPort) Deinit() error {
	s.mu.Lock()
	port, done := s.port, s.done
	s.port, s.done = nil, nil
	s.mu.Unlock()

	if port == nil {
		return nil
	}

	close(done)
	err := port.Close()
	s.wg.Wait()
	s.rx.reset()

	if err != nil {
		return fmt.Errorf("hwio: close %s: %w", s.device, err)
	}

	return nil
}

func (s *SerialPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	if port == nil {
		return 0, errPortClosed
	}

	return port.Write(p)
}

func (s *SerialPort) Available() int {
	return s.rx.len()
}

// ReadLine waits up to the configured timeout for a complete line.
func (s *SerialPort) ReadLine() ([]byte, error) {
	s.mu.Lock()
	open, timeout := s.port != nil, s.timeout
	s.mu.Unlock()

	if !open {
		return nil, errPortClosed
	}

	return s.rx.readLine(timeout), nil
}

func (s *SerialPort) receiveLoop(port io.Reader, done <-chan struct{}) {
	defer s.wg.Done()

	buf := make([]byte, 64)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			s.rx.write(buf[:n])
		}

		select {
		case <-done:
			return
		default:
		}

		// tarm/serial reports a read timeout as io.EOF
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Warn("hwio: serial receive stopped", "error", err)
			return
		}
	}
}
