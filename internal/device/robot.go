package device

import (
	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/auto"
	"BeaconBot/internal/model"
	"BeaconBot/internal/nav"
	"BeaconBot/internal/util"
)

var (
	_ auto.Gyro        = (*Gyro)(nil)
	_ auto.Drive       = (*TankDrive)(nil)
	_ auto.Motor       = (*Motor)(nil)
	_ auto.Servo       = (*Servo)(nil)
	_ auto.ColorSensor = (*ColorSensor)(nil)
	_ Hub              = (*SerialHub)(nil)
	_ Hub              = (*SimHub)(nil)
)

// Gyro adapts the hub's integrating gyro. Syncing keeps an offset so the
// continuous heading never jumps by a full turn.
type Gyro struct {
	hub      Hub
	log      hclog.Logger
	offset   float64
	disabled bool
}

func NewGyro(hub Hub) *Gyro {
	return &Gyro{hub: hub, log: util.Logger("gyro")}
}

func (g *Gyro) IsReady() bool              { return !g.disabled && g.hub.GyroReady() }
func (g *Gyro) HeadingRaw() float64        { return g.hub.HeadingRaw() }
func (g *Gyro) HeadingContinuous() float64 { return g.hub.HeadingRaw() + g.offset }
func (g *Gyro) Heading() float64           { return nav.Normalize(g.HeadingContinuous()) }

// SetHeading syncs the gyro so Heading reports deg. Ignored once disabled.
func (g *Gyro) SetHeading(deg float64) {
	if g.disabled {
		return
	}
	g.offset += nav.ShortestTurn(g.Heading(), deg)
}

// Disable marks the gyro unusable for the rest of the match.
func (g *Gyro) Disable() {
	g.disabled = true
	if err := g.hub.DisableGyro(); err != nil {
		g.log.Warn("disable failed", "error", err)
	}
}

// TankDrive drives every motor on a side together and reads one encoder for distance.
type TankDrive struct {
	hub     Hub
	log     hclog.Logger
	left    []int
	right   []int
	encoder int
}

func NewTankDrive(hub Hub, r model.RobotConfig) *TankDrive {
	return &TankDrive{
		hub:     hub,
		log:     util.Logger("drive"),
		left:    r.LeftMotors,
		right:   r.RightMotors,
		encoder: r.EncoderIndex,
	}
}

func (d *TankDrive) SetPower(side auto.Side, power float64) {
	ids := d.left
	if side == auto.Right {
		ids = d.right
	}
	for _, id := range ids {
		if err := d.hub.SetMotor(id, power); err != nil {
			d.log.Warn("set motor failed", "motor", id, "error", err)
		}
	}
}

func (d *TankDrive) SetPowerBoth(power float64) {
	d.SetPower(auto.Left, power)
	d.SetPower(auto.Right, power)
}

func (d *TankDrive) Stop() { d.SetPowerBoth(0) }

func (d *TankDrive) Encoder() float64 { return d.hub.Encoder(d.encoder) }

// Motor is a single hub motor whose encoder shares its port number.
type Motor struct {
	hub Hub
	log hclog.Logger
	id  int
}

func NewMotor(hub Hub, id int) *Motor {
	return &Motor{hub: hub, log: util.Logger("motor"), id: id}
}

func (m *Motor) SetPower(power float64) {
	if err := m.hub.SetMotor(m.id, power); err != nil {
		m.log.Warn("set motor failed", "motor", m.id, "error", err)
	}
}

func (m *Motor) Encoder() float64 { return m.hub.Encoder(m.id) }

// Servo is a hub servo with calibrated end positions. A servo with a
// negative id is not wired and ignores every command.
type Servo struct {
	hub      Hub
	log      hclog.Logger
	id       int
	min, max float64
}

func NewServo(hub Hub, id int, lo, hi float64) *Servo {
	return &Servo{hub: hub, log: util.Logger("servo"), id: id, min: lo, max: hi}
}

// Enabled reports whether the servo is wired.
func (s *Servo) Enabled() bool { return s.id >= 0 }

func (s *Servo) SetPosition(pos float64) {
	if !s.Enabled() {
		return
	}
	if err := s.hub.SetServo(s.id, pos); err != nil {
		s.log.Warn("set servo failed", "servo", s.id, "error", err)
	}
}

func (s *Servo) Min() { s.SetPosition(s.min) }
func (s *Servo) Max() { s.SetPosition(s.max) }

// ColorSensor classifies the hub's color reading as a beacon color.
type ColorSensor struct {
	hub Hub
}

func NewColorSensor(hub Hub) *ColorSensor { return &ColorSensor{hub: hub} }

// Color returns false when there is no reading or the channels tie.
func (c *ColorSensor) Color() (model.AllianceColor, bool) {
	red, blue, ok := c.hub.Color()
	switch {
	case !ok || red == blue:
		return "", false
	case red > blue:
		return model.Red, true
	default:
		return model.Blue, true
	}
}
