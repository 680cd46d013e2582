package auto

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixge/pidctrl"
	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/driveto"
	"BeaconBot/internal/model"
	"BeaconBot/internal/nav"
	"BeaconBot/internal/util"
)

// ErrMissingDevice is returned by New when a required device handle is nil.
var ErrMissingDevice = errors.New("auto: missing device")

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// WithLogger sets the logger. Defaults to the "auto" component logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

// Sequencer runs the autonomous routine one control-loop tick at a time.
// It is not safe for concurrent use; the control loop is its only caller.
type Sequencer struct {
	cfg      model.Config
	nav      nav.Config
	hw       Hardware
	targets  []model.Target
	alliance model.AllianceColor
	log      hclog.Logger
	now      func() time.Time

	state       State
	timer       time.Time
	waiting     bool
	accumulator float64
	target      int
	beacon      model.AllianceColor
	shots       int
	syncExpires time.Time
	completed   time.Time
	active      *driveto.Request
	hold        *pidctrl.PIDController
	lastOutcome driveto.Outcome
	tick        uint64
	err         error
}

// New builds a sequencer. cfg must already have defaults applied.
func New(cfg model.Config, hw Hardware, opts ...Option) (*Sequencer, error) {
	required := map[string]any{
		"gyro":          hw.Gyro,
		"drive":         hw.Drive,
		"shooter":       hw.Shooter,
		"blocker":       hw.Blocker,
		"presser_left":  hw.PresserLeft,
		"presser_right": hw.PresserRight,
		"vision":        hw.Vision,
	}
	for name, dev := range required {
		if dev == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDevice, name)
		}
	}

	s := &Sequencer{
		cfg:      cfg,
		nav:      cfg.Robot.NavConfig(),
		hw:       hw,
		targets:  cfg.Field.Targets,
		alliance: cfg.Routine.Alliance,
		now:      time.Now,
		target:   -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = util.Logger("auto")
	}
	return s, nil
}

// OnMatchStart resets the routine context and parks the actuators.
func (s *Sequencer) OnMatchStart() {
	now := s.now()
	s.state = First
	s.timer = now.Add(model.Ms(s.cfg.Routine.GyroTimeoutMs))
	s.waiting = false
	s.accumulator = 0
	s.target = -1
	s.beacon = ""
	s.shots = 0
	s.syncExpires = time.Time{}
	s.completed = time.Time{}
	s.active = nil
	s.hold = nil
	s.lastOutcome = driveto.Pending
	s.tick = 0
	s.err = nil

	s.hw.Drive.Stop()
	s.hw.Shooter.SetPower(0)
	s.hw.Blocker.Max() // max is down
	s.hw.PresserLeft.Min()
	s.hw.PresserRight.Min()
	s.log.Info("match start", "alliance", s.alliance, "gyro_ready", s.hw.Gyro.IsReady())
}

// OnTick advances the routine by one control-loop period.
func (s *Sequencer) OnTick() {
	s.tick++
	now := s.now()

	// While a request is active it owns the tick.
	if s.active != nil {
		s.active.Drive()
		if s.active.IsDone() {
			s.lastOutcome = s.active.Outcome()
			s.completed = now
			s.log.Debug("request complete", "state", s.state.String(), "outcome", s.lastOutcome.String())
			if s.lastOutcome == driveto.TimedOut {
				s.log.Warn("request timed out", "state", s.state.String())
			}
			s.active = nil
			s.hold = nil
		}
		return
	}

	s.hw.Vision.TrackOneTick()

	if !s.hw.Vision.IsStale() && !now.Before(s.syncExpires) {
		s.syncExpires = now.Add(model.Ms(s.cfg.Routine.GyroSyncIntervalMs))
		s.hw.Gyro.SetHeading(s.hw.Vision.Heading())
	}

	s.step(now)
}

// OnMatchStop cancels any active request and stops the drive and shooter.
func (s *Sequencer) OnMatchStop() {
	if s.active != nil {
		s.active.Cancel()
		s.lastOutcome = s.active.Outcome()
		s.active = nil
		s.hold = nil
	}
	s.hw.Drive.Stop()
	s.hw.Shooter.SetPower(0)
	s.log.Info("match stop", "state", s.state.String(), "shots", s.shots, "ticks", s.tick)
}

// State returns the current state.
func (s *Sequencer) State() State { return s.state }

// Active reports whether a motion request is in progress.
func (s *Sequencer) Active() bool { return s.active != nil }

// Err returns the last sequence violation, if any.
func (s *Sequencer) Err() error { return s.err }

// Status returns a snapshot of the routine for display.
func (s *Sequencer) Status() model.Status {
	return model.Status{
		Time:        s.now(),
		Tick:        s.tick,
		State:       s.state.String(),
		Heading:     s.hw.Gyro.Heading(),
		HeadingRaw:  s.hw.Gyro.HeadingRaw(),
		Encoder:     s.hw.Drive.Encoder(),
		Shots:       s.shots,
		Target:      s.targetName(),
		Active:      s.active != nil,
		LastOutcome: s.lastOutcome.String(),
		GyroReady:   s.hw.Gyro.IsReady(),
		VisionStale: s.hw.Vision.IsStale(),
	}
}

func (s *Sequencer) setState(next State) {
	if next != s.state {
		s.log.Debug("state", "from", s.state.String(), "to", next.String())
	}
	s.state = next
}

func (s *Sequencer) advance() { s.move(s.state.Next()) }

func (s *Sequencer) back() { s.move(s.state.Prev()) }

func (s *Sequencer) move(next State, err error) {
	if err != nil {
		if s.cfg.Routine.Strict {
			panic(err)
		}
		s.log.Error("sequence violation, aborting", "state", s.state.String(), "error", err)
		s.err = err
		s.state = Last
		return
	}
	s.setState(next)
}

func (s *Sequencer) abort(reason string) {
	s.log.Warn(reason+", aborting", "state", s.state.String())
	s.setState(Last)
}

// armWait starts the search wait timer once per wait state entry.
func (s *Sequencer) armWait() {
	if !s.waiting {
		s.timer = s.completed.Add(model.Ms(s.cfg.Routine.FindTargetDelayMs))
		s.waiting = true
	}
}

func (s *Sequencer) syncGyro() {
	s.hw.Gyro.SetHeading(s.hw.Vision.Heading())
}

func (s *Sequencer) step(now time.Time) {
	rt := s.cfg.Routine

	switch s.state {
	case Init:
		if s.hw.Gyro.IsReady() {
			s.setState(DriveToShoot)
		} else if now.After(s.timer) {
			s.log.Warn("gyro not ready, continuing without it")
			s.hw.Gyro.Disable()
			s.advance()
		}

	case DriveToShoot:
		s.driveForward(rt.ShootDistance)
		s.advance()

	case Shoot:
		s.hw.Blocker.Min() // min is up
		s.spinShooter()
		s.timer = now.Add(model.Ms(rt.ShotDelayMs))
		s.shots++
		s.advance()

	case ShootWait:
		s.hw.Blocker.Max()
		if now.After(s.timer) {
			if s.shots >= rt.NumShots {
				s.advance()
			} else {
				s.back()
			}
		}

	case DriveToBall:
		s.driveForward(rt.BallDistance)
		s.advance()

	case TurnIn:
		s.turnAngle(*rt.TurnInAngle * s.allianceSign())
		s.advance()

	case DrivePastBall:
		s.driveForward(rt.PastBallDistance)
		s.advance()

	case BlindTurn:
		if !s.hw.Gyro.IsReady() {
			s.abort("no gyro for target search")
		} else {
			// Turn away first; the other alliance's nearby target may come into view.
			s.turnAngle(*rt.BlindTurn * s.allianceSign())
			s.waiting = false
			s.setState(FindTargetWait)
		}
		s.accumulator = 0

	case FindTarget:
		if s.accumulator < rt.FindTargetMax {
			s.turnAngle(rt.FindTargetIncrement)
			s.accumulator += rt.FindTargetIncrement
			s.waiting = false
			s.advance()
		} else {
			s.abort("search budget exhausted")
		}

	case FindTargetWait:
		s.armWait()
		if !s.hw.Vision.IsStale() {
			s.target = s.firstTarget()
			if s.target < 0 {
				s.target = s.closestTarget()
			}
			s.log.Info("selected target", "target", s.targetName())
			s.syncGyro()
			s.advance()
		} else if now.After(s.timer) {
			s.back()
		}

	case TurnToDest:
		if s.target < 0 {
			s.abort("no target found")
			return
		}
		bearing := s.hw.Vision.BearingTo(s.destination(s.target))
		s.log.Info("turning to destination", "target", s.targetName(), "bearing", bearing)
		s.turnBearing(bearing)
		s.advance()

	case DriveToDest:
		if s.target >= 0 {
			distance := s.hw.Vision.DistanceTo(s.destination(s.target))
			s.log.Info("driving to destination", "target", s.targetName(), "distance", distance)
			s.driveForward(distance)
		}
		s.advance()

	case TurnToTarget:
		bearing := s.wallBearing()
		s.log.Info("turning to wall", "target", s.targetName(), "bearing", bearing)
		s.turnBearing(bearing)
		s.waiting = false
		s.accumulator = 0
		s.advance()

	case WaitTarget:
		s.armWait()
		if !s.hw.Vision.IsStale() {
			s.syncGyro()
			s.setState(AlignAtTarget)
		} else if now.After(s.timer) {
			s.log.Info("target not yet visible for approach, searching")
			s.advance()
		}

	case TargetNotVisible:
		// Clockwise on the first attempt, counter-clockwise on the second.
		var angle float64
		switch {
		case s.accumulator == 0:
			angle = rt.FindTargetIncrement
		case s.accumulator*rt.FindTargetIncrement > 0:
			angle = -2 * rt.FindTargetIncrement
		default:
			s.abort("unable to reacquire target")
			return
		}
		s.accumulator = angle
		s.turnAngle(angle)
		s.waiting = false
		s.back()

	case AlignAtTarget:
		if s.hw.Vision.IsStale() {
			s.abort("unable to align at target")
			return
		}
		bearing := s.hw.Vision.Bearing(s.target)
		s.log.Info("turning to target", "target", s.targetName(), "bearing", bearing)
		s.turnBearing(bearing)
		s.advance()

	case ApproachTarget:
		if s.hw.Vision.IsStale() {
			s.log.Warn("target lost during approach, attempting blind bump")
			s.driveForward(rt.BlindBump)
			s.setState(CheckColor)
			return
		}
		distance := s.hw.Vision.Distance(s.target)
		if distance < rt.ApproachMin {
			s.advance()
			return
		}
		s.log.Info("driving toward target", "target", s.targetName(), "distance", distance)
		// Half the distance so the robot realigns before the next leg.
		s.driveForward(distance / 2)
		s.back()

	case AlignTargetPlane:
		name := s.targetName()
		if !s.hw.Vision.IsVisible(name) {
			s.abort("unable to align to target plane")
			return
		}
		s.turnAngle(s.hw.Vision.TargetAngle(name))
		s.advance()

	case BumpWall:
		s.driveForward(rt.ApproachMin / 2)
		s.advance()

	case CheckColor:
		s.beacon = rt.DefaultBeacon
		if s.hw.Color != nil {
			if c, ok := s.hw.Color.Color(); ok {
				s.beacon = c
			} else {
				s.log.Warn("beacon color inconclusive, using default", "default", rt.DefaultBeacon)
			}
		}
		s.log.Info("beacon color", "color", s.beacon)
		s.advance()

	case PressBeacon:
		if s.beacon == model.Red {
			s.hw.PresserLeft.Max()
		} else {
			s.hw.PresserRight.Max()
		}
		s.timer = now.Add(model.Ms(rt.BeaconDelayMs))
		s.advance()

	case BeaconWait:
		if now.After(s.timer) {
			s.advance()
		}

	case BackAway:
		s.hw.PresserLeft.Min()
		s.hw.PresserRight.Min()
		s.driveForward(-rt.DestinationOffset)
		s.advance()

	case Done:
	}
}
