package trigger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"funduscam/internal/logger"

	"go.bug.st/serial"
)

// QueueSize bounds how many unread lines a source keeps.
const QueueSize = 16

// Source delivers lines from the trigger channel without blocking the caller.
type Source interface {
	// Poll returns the next pending line, or ok == false when none is waiting.
	Poll() (line string, ok bool)
	Close() error
}

// ReaderSource reads lines from r on a background goroutine and hands them
// to Poll through a bounded queue. Read errors are logged and never surface
// to the poller.
type ReaderSource struct {
	reader io.Reader
	lines  chan string
	done   chan struct{}
	logger *logger.Logger

	dropped   int // owned by readLoop
	closeOnce sync.Once
}

// NewReaderSource starts reading r. If r is an io.Closer, Close closes it.
func NewReaderSource(r io.Reader, logger *logger.Logger) *ReaderSource {
	s := &ReaderSource{
		reader: r,
		lines:  make(chan string, QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	go s.readLoop()
	return s
}

// OpenSerial opens the controller board's serial port and waits warmup for
// the board to finish its reset.
func OpenSerial(portName string, baudRate int, readTimeout, warmup time.Duration, logger *logger.Logger) (*ReaderSource, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	logger.Info("Serial port %s opened at %d baud, waiting %v for the board", portName, baudRate, warmup)
	time.Sleep(warmup)

	return NewReaderSource(port, logger), nil
}

func (s *ReaderSource) readLoop() {
	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := s.reader.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				s.push(string(pending[:i]))
				pending = pending[i+1:]
			}
		}

		select {
		case <-s.done:
			return
		default:
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(pending) > 0 {
					s.push(string(pending))
				}
				s.logger.Info("Trigger channel closed")
				return
			}
			s.logger.Warning("Trigger channel read error: %v", err)
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// push queues line, dropping it when the loop has fallen behind. One warning
// is logged when dropping starts and one when the queue accepts lines again.
func (s *ReaderSource) push(line string) {
	select {
	case s.lines <- line:
		if s.dropped > 0 {
			s.logger.Warning("Trigger queue recovered after dropping %d line(s)", s.dropped)
			s.dropped = 0
		}
	default:
		if s.dropped == 0 {
			s.logger.Warning("Trigger queue full, dropping lines")
		}
		s.dropped++
	}
}

// Poll returns the oldest unread line without blocking.
func (s *ReaderSource) Poll() (string, bool) {
	select {
	case line := <-s.lines:
		return line, true
	default:
		return "", false
	}
}

// Close stops the reader and closes the underlying reader when possible. It
// does not wait for a read that is already blocked.
func (s *ReaderSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if c, ok := s.reader.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
