// Package core wires the hub, vision feed, telemetry and autonomous sequencer
// together and runs the match control loop.
package core

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/auto"
	"BeaconBot/internal/device"
	"BeaconBot/internal/model"
	"BeaconBot/internal/parser"
	"BeaconBot/internal/telemetry"
	"BeaconBot/internal/util"
	"BeaconBot/internal/vision"
)

// Option configures a System.
type Option func(*System)

// WithHub uses an already constructed hub instead of opening one from the config.
func WithHub(h device.Hub) Option {
	return func(s *System) { s.hub = h }
}

// System owns every runtime component of one match. The control loop
// goroutine is the only caller of the sequencer.
type System struct {
	cfg model.Config
	log hclog.Logger

	hub      device.Hub
	tracker  *vision.Tracker
	listener *vision.Listener
	store    *telemetry.Store
	server   *telemetry.Server
	seq      *auto.Sequencer
	match    uint64

	stop      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	started   bool
	startLock sync.Mutex
	stopOnce  sync.Once
	closeOnce sync.Once
}

// ErrStopped is returned by Start once the system has been stopped.
var ErrStopped = errors.New("core: system stopped")

// NewSystem builds all components from cfg. Defaults must already be applied.
// Components that fail to open are logged and degraded; the returned error is
// only set when the sequencer itself cannot be built.
func NewSystem(cfg model.Config, opts ...Option) (*System, error) {
	s := &System{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// The store comes first so every component logger also writes into the match log.
	if cfg.Telemetry.DBPath != "" {
		st, err := telemetry.OpenStore(cfg.Telemetry.DBPath)
		if err != nil {
			util.Logger("core").Error("match log unavailable", "path", cfg.Telemetry.DBPath, "error", err)
		} else {
			s.store = st
			util.SetupLogger(cfg.Log.Level, st.LogWriter())
		}
	}
	s.log = util.Logger("core")

	if s.hub == nil {
		s.hub = s.openHub()
	}

	s.tracker = vision.NewTracker(cfg.Field.Targets, model.Ms(cfg.Vision.StaleMs))
	if cfg.Vision.UDPAddr != "" {
		p, err := parser.New(cfg.Vision.WireFormat)
		if err != nil {
			s.log.Error("vision feed disabled", "error", err)
		} else if l, err := vision.Listen(cfg.Vision.UDPAddr, p, s.tracker, cfg.Vision.ReadBuffer); err != nil {
			s.log.Error("vision feed disabled", "addr", cfg.Vision.UDPAddr, "error", err)
		} else {
			s.listener = l
		}
	}

	s.server = telemetry.NewServer(cfg.Telemetry.Addr, s.store)

	r := cfg.Robot
	hw := auto.Hardware{
		Gyro:         device.NewGyro(s.hub),
		Drive:        device.NewTankDrive(s.hub, r),
		Shooter:      device.NewMotor(s.hub, r.ShooterMotor),
		Blocker:      device.NewServo(s.hub, r.BlockerServo, r.ServoMin, r.ServoMax),
		PresserLeft:  device.NewServo(s.hub, r.PresserLeft, r.ServoMin, r.ServoMax),
		PresserRight: device.NewServo(s.hub, r.PresserRight, r.ServoMin, r.ServoMax),
		Vision:       s.tracker,
	}
	if r.HasColor {
		hw.Color = device.NewColorSensor(s.hub)
	}
	seq, err := auto.New(cfg, hw)
	if err != nil {
		s.closeResources()
		return nil, err
	}
	s.seq = seq
	return s, nil
}

// openHub opens the serial hub, falling back to the simulator when no device
// is configured or the port cannot be opened.
func (s *System) openHub() device.Hub {
	sim := func() device.Hub {
		return device.NewSimHub(device.NewSimConfig(s.cfg.Robot, s.cfg.Hub.Encoders))
	}
	if s.cfg.Hub.Device == "" {
		s.log.Info("no hub device configured, using simulated hub")
		return sim()
	}
	h, err := device.OpenSerialHub(s.cfg.Hub.Device, s.cfg.Hub.Baud)
	if err != nil {
		s.log.Error("hub unavailable, using simulated hub", "device", s.cfg.Hub.Device, "error", err)
		return sim()
	}
	s.log.Info("hub open", "device", s.cfg.Hub.Device, "baud", s.cfg.Hub.Baud)
	return h
}

func (s *System) period() time.Duration {
	return time.Second / time.Duration(s.cfg.Match.LoopHz)
}

// Start begins a match and runs the control loop in the background.
func (s *System) Start() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}
	select {
	case <-s.stop:
		return ErrStopped
	default:
	}

	if s.store != nil {
		id, err := s.store.BeginMatch(s.cfg.Routine.Alliance)
		if err != nil {
			s.log.Warn("match log not recording", "error", err)
		} else {
			s.match = id
		}
	}
	if err := s.server.Start(); err != nil {
		s.log.Error("telemetry server not started", "error", err)
	}
	if sim, ok := s.hub.(*device.SimHub); ok {
		sim.Start(s.period())
	}

	s.seq.OnMatchStart()
	s.log.Info("match started", "match", s.match, "alliance", s.cfg.Routine.Alliance,
		"loop_hz", s.cfg.Match.LoopHz, "duration", model.Ms(s.cfg.Match.DurationMs))

	s.wg.Add(1)
	go s.run()
	s.started = true
	return nil
}

func (s *System) run() {
	defer s.wg.Done()
	defer close(s.done)

	ticker := time.NewTicker(s.period())
	defer ticker.Stop()
	deadline := time.NewTimer(model.Ms(s.cfg.Match.DurationMs))
	defer deadline.Stop()

	var ticks int
	for {
		select {
		case <-s.stop:
			s.finish("stopped")
			return
		case <-deadline.C:
			s.finish("match time elapsed")
			return
		case <-ticker.C:
			s.seq.OnTick()
			ticks++
			if ticks%s.cfg.Telemetry.PublishEvery == 0 {
				s.server.Publish(s.seq.Status())
			}
		}
	}
}

func (s *System) finish(reason string) {
	s.seq.OnMatchStop()
	st := s.seq.Status()
	s.server.Publish(st)
	if err := s.seq.Err(); err != nil {
		s.log.Warn("routine ended with error", "error", err)
	}
	s.log.Info("match over", "reason", reason, "state", st.State, "shots", st.Shots)
}

// Done is closed when the control loop has exited.
func (s *System) Done() <-chan struct{} { return s.done }

// Match returns the id of the match in the match log, or 0 when not recording.
func (s *System) Match() uint64 { return s.match }

// Server exposes the telemetry server.
func (s *System) Server() *telemetry.Server { return s.server }

// Stop ends the match (if still running) and releases every component.
// Safe to call more than once and from several goroutines.
func (s *System) Stop() {
	s.startLock.Lock()
	s.stopOnce.Do(func() {
		close(s.stop)
		// Without a loop nobody else closes done.
		if !s.started {
			close(s.done)
		}
	})
	s.startLock.Unlock()
	s.wg.Wait()
	s.closeResources()
}

func (s *System) closeResources() {
	s.closeOnce.Do(func() {
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.server.Stop()
		if s.hub != nil {
			if err := s.hub.Close(); err != nil {
				s.log.Warn("hub close failed", "error", err)
			}
		}
		if s.store != nil {
			_ = s.store.Close()
		}
	})
}
