package vision

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"BeaconBot/internal/model"
	"BeaconBot/internal/parser"
)

// readBackoff is the pause after a failed read so a broken socket does not spin.
const readBackoff = 50 * time.Millisecond

// Listener receives vision fixes as UDP datagrams and feeds them to a tracker.
type Listener struct {
	conn    *net.UDPConn
	read    func([]byte) (int, error)
	tracker *Tracker
	parser  parser.Parser
	bufSize int
	wg      sync.WaitGroup
}

// Listen binds addr and starts feeding decoded fixes to the tracker.
func Listen(addr string, p parser.Parser, tracker *Tracker, bufSize int) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve vision addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen vision: %w", err)
	}
	if bufSize <= 0 {
		bufSize = 2048
	}
	l := &Listener{conn: conn, tracker: tracker, parser: p, bufSize: bufSize}
	l.read = func(b []byte) (int, error) {
		n, _, err := conn.ReadFromUDP(b)
		return n, err
	}
	l.wg.Add(1)
	go l.loop()
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

func (l *Listener) loop() {
	defer l.wg.Done()
	buf := make([]byte, l.bufSize)
	for {
		n, err := l.read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.tracker.log.Debug("read failed", "error", err)
			time.Sleep(readBackoff)
			continue
		}
		fix, err := l.parser.DecodeFix(string(buf[:n]))
		if err != nil {
			l.tracker.log.Debug("skip fix", "error", err)
			continue
		}
		l.tracker.Feed(fix)
	}
}

// Close stops the listener.
func (l *Listener) Close() error {
	err := l.conn.Close()
	l.wg.Wait()
	return err
}

// Sender sends vision fixes over UDP. hubsim uses it to stand in for the camera.
type Sender struct {
	conn   *net.UDPConn
	parser parser.Parser
}

// NewSender creates a UDP sender for the given address.
func NewSender(addr string, p parser.Parser) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &Sender{conn: conn, parser: p}, nil
}

// Send encodes and writes one fix.
func (s *Sender) Send(f model.VisionFix) error {
	line, err := s.parser.EncodeFix(f)
	if err != nil {
		return err
	}
	_, err = s.conn.Write([]byte(line))
	return err
}

// Close releases the UDP socket.
func (s *Sender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
