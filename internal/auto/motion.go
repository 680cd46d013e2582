package auto

import (
	"math"

	"github.com/felixge/pidctrl"

	"BeaconBot/internal/driveto"
	"BeaconBot/internal/nav"
)

// bindings builds the capability map shared by every motion request.
func (s *Sequencer) bindings() driveto.Bindings {
	return driveto.Bindings{
		nav.ChannelGyro: {
			Sense: func(*driveto.Condition) float64 { return s.hw.Gyro.HeadingContinuous() },
			Run:   s.runTurn,
			Stop:  func(*driveto.Condition) { s.hw.Drive.Stop() },
		},
		nav.ChannelDriveEncoder: {
			Sense: func(*driveto.Condition) float64 { return s.hw.Drive.Encoder() },
			Run:   s.runDrive,
			Stop:  func(*driveto.Condition) { s.hw.Drive.Stop() },
		},
		nav.ChannelShooter: {
			Sense: func(*driveto.Condition) float64 { return s.hw.Shooter.Encoder() },
			Run:   func(*driveto.Condition) { s.hw.Shooter.SetPower(s.cfg.Robot.SpeedShoot) },
			Stop:  func(*driveto.Condition) { s.hw.Shooter.SetPower(0) },
		},
	}
}

// turnSpeed is slow near the threshold and fast beyond TurnFastThreshold degrees.
func (s *Sequencer) turnSpeed(c *driveto.Condition) float64 {
	if math.Abs(c.Error) > s.cfg.Robot.TurnFastThreshold {
		return s.cfg.Robot.SpeedTurnFast
	}
	return s.cfg.Robot.SpeedTurn
}

func (s *Sequencer) runTurn(c *driveto.Condition) {
	speed := s.turnSpeed(c)
	// Clockwise increases heading.
	if c.Comparator == driveto.Greater {
		s.hw.Drive.SetPower(Left, -speed)
		s.hw.Drive.SetPower(Right, speed)
		return
	}
	s.hw.Drive.SetPower(Left, speed)
	s.hw.Drive.SetPower(Right, -speed)
}

// runDrive holds the heading captured at request start. Forward is negative
// power, matching the joystick convention.
func (s *Sequencer) runDrive(c *driveto.Condition) {
	base := -s.cfg.Robot.SpeedDrive
	if c.Comparator == driveto.Greater {
		base = s.cfg.Robot.SpeedDrive
	}
	if s.hold == nil || !s.hw.Gyro.IsReady() {
		s.hw.Drive.SetPowerBoth(base)
		return
	}
	corr := s.hold.Update(s.hw.Gyro.HeadingContinuous())
	s.hw.Drive.SetPower(Left, base-corr)
	s.hw.Drive.SetPower(Right, base+corr)
}

// issue starts a single-condition request. Only one request is ever active.
func (s *Sequencer) issue(c driveto.Condition) {
	if s.active != nil {
		s.log.Warn("request already active, dropping", "condition", c.String())
		return
	}
	r, err := driveto.New(s.bindings(), []driveto.Condition{c},
		driveto.WithClock(s.now),
		driveto.WithTimeout(s.nav.TimeoutDefault),
	)
	if err != nil {
		s.log.Error("cannot build request", "condition", c.String(), "error", err)
		return
	}
	s.log.Debug("request issued", "state", s.state.String(), "condition", c.String())
	s.active = r
}

func (s *Sequencer) turnAngle(angle float64) {
	s.hold = nil
	s.issue(nav.TurnAngle(s.hw.Gyro.HeadingContinuous(), angle, s.nav))
}

func (s *Sequencer) turnBearing(bearing float64) {
	s.hold = nil
	s.issue(nav.TurnBearing(s.hw.Gyro.Heading(), s.hw.Gyro.HeadingContinuous(), bearing, s.nav))
}

func (s *Sequencer) driveForward(distance float64) {
	s.hold = nil
	if kp := *s.cfg.Robot.HoldKp; s.hw.Gyro.IsReady() && kp != 0 {
		limit := s.cfg.Robot.SpeedDrive / 2
		s.hold = pidctrl.NewPIDController(kp, s.cfg.Robot.HoldKi, s.cfg.Robot.HoldKd).
			SetOutputLimits(-limit, limit).
			Set(s.hw.Gyro.HeadingContinuous())
	}
	s.issue(nav.DriveDistance(s.hw.Drive.Encoder(), distance, s.nav))
}

// spinShooter runs the shooter for one shot's worth of encoder ticks.
func (s *Sequencer) spinShooter() {
	s.issue(driveto.GreaterThan(nav.ChannelShooter, s.hw.Shooter.Encoder()+s.cfg.Routine.ShootSpin))
}
