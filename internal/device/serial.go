package device

import (
	"bufio"
	"errors"
	"fmt"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

type lineResult struct {
	line string
	err  error
}

// SerialDevice implements Device using go.bug.st/serial.
// One reader goroutine owns the port's read side for the device's lifetime.
type SerialDevice struct {
	port  serial.Port
	dev   string
	lines chan lineResult
	done  chan struct{}
	wmu   sync.Mutex
	once  sync.Once
}

// NewSerialDevice creates and opens a serial device with the given path and baudrate.
func NewSerialDevice(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	s := &SerialDevice{
		port:  p,
		dev:   dev,
		lines: make(chan lineResult, 16),
		done:  make(chan struct{}),
	}
	go s.readLoop(bufio.NewReader(p))
	return s, nil
}

func (s *SerialDevice) readLoop(r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		select {
		case s.lines <- lineResult{line, err}:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// ReadLine reads a single line from the serial port, blocking until newline or timeout.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case res := <-s.lines:
		return res.line, res.err
	case <-s.done:
		return "", errors.New("serial port not open")
	case <-expired:
		return "", ErrReadTimeout
	}
}

// WriteLine writes a single line followed by '\n' to the serial port.
func (s *SerialDevice) WriteLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	select {
	case <-s.done:
		return errors.New("serial port not open")
	default:
	}
	_, err := s.port.Write(append([]byte(line), '\n'))
	return err
}

// Close closes the underlying serial connection. Safe to call more than once.
func (s *SerialDevice) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.port.Close()
	})
	return err
}

// String returns the device path.
func (s *SerialDevice) String() string { return s.dev }
