package device

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/model"
	"BeaconBot/internal/parser"
	"BeaconBot/internal/util"
)

// SimConfig describes the simulated robot.
type SimConfig struct {
	LeftMotors       []int
	RightMotors      []int
	Encoders         int
	TicksPerSecond   float64       // encoder rate at full power
	DegreesPerSecond float64       // turn rate at full opposite power on both sides
	CalibrateAfter   time.Duration // gyro becomes ready after this much simulated time
	Red, Blue        int           // color sensor reading; both zero means no sensor
}

// NewSimConfig derives a simulation from the robot wiring.
func NewSimConfig(r model.RobotConfig, encoders int) SimConfig {
	return SimConfig{
		LeftMotors:       r.LeftMotors,
		RightMotors:      r.RightMotors,
		Encoders:         encoders,
		TicksPerSecond:   3000,
		DegreesPerSecond: 180,
		CalibrateAfter:   time.Second,
	}
}

// SimHub is an in-process kinematic hub: motor power integrates into encoder
// ticks, and the left/right power difference integrates into heading.
type SimHub struct {
	cfg SimConfig
	log hclog.Logger

	mu       sync.Mutex
	motors   map[int]float64
	servos   map[int]float64
	encoders []float64
	heading  float64
	gyroOff  bool
	elapsed  time.Duration

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSimHub creates a stopped simulation. Use Start or Step to advance it.
func NewSimHub(cfg SimConfig) *SimHub {
	if cfg.Encoders <= 0 {
		cfg.Encoders = 5
	}
	return &SimHub{
		cfg:      cfg,
		log:      util.Logger("simhub"),
		motors:   make(map[int]float64),
		servos:   make(map[int]float64),
		encoders: make([]float64, cfg.Encoders),
		stop:     make(chan struct{}),
	}
}

// Step advances the simulation by dt.
func (h *SimHub) Step(dt time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.elapsed += dt
	sec := dt.Seconds()
	for id, p := range h.motors {
		if id >= 0 && id < len(h.encoders) {
			h.encoders[id] += p * h.cfg.TicksPerSecond * sec
		}
	}
	left := h.sidePower(h.cfg.LeftMotors)
	right := h.sidePower(h.cfg.RightMotors)
	// Left forward (negative) with right back turns clockwise.
	h.heading += (right - left) / 2 * h.cfg.DegreesPerSecond * sec
}

func (h *SimHub) sidePower(ids []int) float64 {
	if len(ids) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range ids {
		sum += h.motors[id]
	}
	return sum / float64(len(ids))
}

// Start advances the simulation in real time until Close.
func (h *SimHub) Start(interval time.Duration) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				h.Step(interval)
			}
		}
	}()
}

// Apply executes one hub command.
func (h *SimHub) Apply(cmd model.HubCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch cmd.Kind {
	case model.CommandMotor:
		h.motors[cmd.ID] = clamp(cmd.Value, -1, 1)
	case model.CommandServo:
		h.servos[cmd.ID] = clamp(cmd.Value, 0, 1)
	case model.CommandGyroDisable:
		h.gyroOff = true
	}
}

func (h *SimHub) SetMotor(id int, power float64) error {
	h.Apply(model.HubCommand{Kind: model.CommandMotor, ID: id, Value: power})
	return nil
}

func (h *SimHub) SetServo(id int, position float64) error {
	h.Apply(model.HubCommand{Kind: model.CommandServo, ID: id, Value: position})
	return nil
}

func (h *SimHub) DisableGyro() error {
	h.Apply(model.HubCommand{Kind: model.CommandGyroDisable})
	return nil
}

func (h *SimHub) Encoder(index int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.encoders) {
		return 0
	}
	return h.encoders[index]
}

func (h *SimHub) HeadingRaw() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.heading
}

func (h *SimHub) GyroReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.gyroOff && h.elapsed >= h.cfg.CalibrateAfter
}

func (h *SimHub) Color() (int, int, bool) {
	return h.cfg.Red, h.cfg.Blue, h.cfg.Red != 0 || h.cfg.Blue != 0
}

// Motor returns the last commanded power of a motor.
func (h *SimHub) Motor(id int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.motors[id]
}

// Servo returns the last commanded position of a servo.
func (h *SimHub) Servo(id int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.servos[id]
}

// Frame returns the current sensor frame as the hub would send it.
func (h *SimHub) Frame() model.HubFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return model.HubFrame{
		Kind:       model.FrameSensor,
		HeadingRaw: h.heading,
		GyroReady:  !h.gyroOff && h.elapsed >= h.cfg.CalibrateAfter,
		Encoders:   append([]float64(nil), h.encoders...),
	}
}

// Stream plays the hub side of the serial protocol over dev: it sends a sensor
// frame (and a color frame, if configured) every interval and applies the
// commands it receives. It returns when stop is closed.
func (h *SimHub) Stream(dev Device, interval time.Duration, stop <-chan struct{}) error {
	h.log.Info("streaming", "interval", interval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			line, err := dev.ReadLine(interval)
			if err != nil {
				if !errors.Is(err, ErrReadTimeout) {
					time.Sleep(interval)
				}
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			cmd, err := parser.ParseHubCommand(line)
			if err != nil {
				h.log.Debug("skip command", "line", line, "error", err)
				continue
			}
			h.Apply(cmd)
		}
	}()
	defer wg.Wait()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			h.log.Info("streaming stopped")
			return nil
		case <-ticker.C:
		}
		if err := dev.WriteLine(parser.FormatHubFrame(h.Frame())); err != nil {
			h.log.Warn("write failed", "error", err)
			continue
		}
		if red, blue, ok := h.Color(); ok {
			_ = dev.WriteLine(parser.FormatHubFrame(model.HubFrame{Kind: model.FrameColor, Red: red, Blue: blue}))
		}
	}
}

// Close stops the real-time simulation. Safe to call more than once.
func (h *SimHub) Close() error {
	h.closeOnce.Do(func() { close(h.stop) })
	h.wg.Wait()
	return nil
}
