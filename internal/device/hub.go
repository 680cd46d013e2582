package device

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/model"
	"BeaconBot/internal/parser"
	"BeaconBot/internal/util"
)

// SerialHub is a Hub reached over a line device. A reader goroutine keeps the
// latest sensor and color frames; commands are written synchronously and
// skipped when the value did not change.
type SerialHub struct {
	dev Device
	log hclog.Logger

	mu       sync.RWMutex
	sensor   model.HubFrame
	red      int
	blue     int
	hasColor bool
	lastSeen time.Time

	cmdMu  sync.Mutex
	motors map[int]float64
	servos map[int]float64

	stop      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewSerialHub wraps an open device. Call Start to begin reading frames.
func NewSerialHub(dev Device) *SerialHub {
	return &SerialHub{
		dev:    dev,
		log:    util.Logger("hub"),
		motors: make(map[int]float64),
		servos: make(map[int]float64),
		stop:   make(chan struct{}),
	}
}

// OpenSerialHub opens the serial port and starts reading frames.
func OpenSerialHub(path string, baud int) (*SerialHub, error) {
	dev, err := NewSerialDevice(path, baud)
	if err != nil {
		return nil, fmt.Errorf("open hub: %w", err)
	}
	h := NewSerialHub(dev)
	h.Start()
	return h, nil
}

// Start launches the frame reader. Only the first call has an effect.
func (h *SerialHub) Start() {
	h.startOnce.Do(func() {
		h.wg.Add(1)
		go h.readLoop()
	})
}

func (h *SerialHub) readLoop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.stop:
			return
		default:
		}

		line, err := h.dev.ReadLine(200 * time.Millisecond)
		if err != nil {
			if !errors.Is(err, ErrReadTimeout) {
				h.log.Debug("read failed", "error", err)
				time.Sleep(200 * time.Millisecond)
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		f, err := parser.ParseHubFrame(line)
		if err != nil {
			h.log.Debug("skip frame", "line", line, "error", err)
			continue
		}
		h.apply(f)
	}
}

func (h *SerialHub) apply(f model.HubFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSeen = time.Now()
	switch f.Kind {
	case model.FrameSensor:
		h.sensor = f
	case model.FrameColor:
		h.red, h.blue, h.hasColor = f.Red, f.Blue, true
	}
}

// LastSeen returns when the last valid frame arrived.
func (h *SerialHub) LastSeen() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSeen
}

// Encoder returns the last reading of an encoder, or 0 if the hub never reported it.
func (h *SerialHub) Encoder(index int) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if index < 0 || index >= len(h.sensor.Encoders) {
		return 0
	}
	return h.sensor.Encoders[index]
}

func (h *SerialHub) HeadingRaw() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sensor.HeadingRaw
}

func (h *SerialHub) GyroReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sensor.GyroReady
}

func (h *SerialHub) Color() (int, int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.red, h.blue, h.hasColor
}

// SetMotor sets a motor's power in [-1, 1].
func (h *SerialHub) SetMotor(id int, power float64) error {
	return h.send(h.motors, model.HubCommand{Kind: model.CommandMotor, ID: id, Value: clamp(power, -1, 1)})
}

// SetServo sets a servo's position in [0, 1].
func (h *SerialHub) SetServo(id int, position float64) error {
	return h.send(h.servos, model.HubCommand{Kind: model.CommandServo, ID: id, Value: clamp(position, 0, 1)})
}

func (h *SerialHub) DisableGyro() error {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()
	return h.dev.WriteLine(parser.FormatHubCommand(model.HubCommand{Kind: model.CommandGyroDisable}))
}

func (h *SerialHub) send(cache map[int]float64, cmd model.HubCommand) error {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()
	if last, ok := cache[cmd.ID]; ok && last == cmd.Value {
		return nil
	}
	if err := h.dev.WriteLine(parser.FormatHubCommand(cmd)); err != nil {
		return fmt.Errorf("hub command %c%d: %w", cmd.Kind, cmd.ID, err)
	}
	cache[cmd.ID] = cmd.Value
	return nil
}

// Close stops every motor, the reader, and the device. Safe to call more than once.
func (h *SerialHub) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.stop)

		h.cmdMu.Lock()
		for id, p := range h.motors {
			if p != 0 {
				_ = h.dev.WriteLine(parser.FormatHubCommand(model.HubCommand{Kind: model.CommandMotor, ID: id}))
			}
		}
		h.cmdMu.Unlock()

		h.wg.Wait()
		err = h.dev.Close()
	})
	return err
}
