package hwio

import (
	"bytes"
	"sync"
	"time"
)

// lineBuffer accumulates received bytes and hands them out line by line.
type lineBuffer struct {
	mu     sync.Mutex
	buf    []byte
	notify chan struct{}
}

func newLineBuffer() *lineBuffer {
	return &lineBuffer{notify: make(chan struct{}, 1)}
}

func (b *lineBuffer) write(p []byte) {
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *lineBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.buf)
}

func (b *lineBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = nil
}

// readLine returns the bytes up to and including the first '\n'. Without a
// complete line before timeout it returns everything buffered, or nil.
func (b *lineBuffer) readLine(timeout time.Duration) []byte {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if line, ok := b.take(false); ok {
			return line
		}

		select {
		case <-b.notify:
		case <-timer.C:
			line, _ := b.take(true)
			return line
		}
	}
}

func (b *lineBuffer) take(partial bool) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := bytes.IndexByte(b.buf, '\n') + 1
	if n == 0 {
		if !partial || len(b.buf) == 0 {
			return nil, false
		}
		n = len(b.buf)
	}

	line := make([]byte, n)
	copy(line, b.buf[:n])
	b.buf = b.buf[n:]

	return line, true
}
