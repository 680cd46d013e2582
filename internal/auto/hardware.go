package auto

import (
	"BeaconBot/internal/model"
	"BeaconBot/internal/nav"
)

// Side selects one half of a tank drive.
type Side int

const (
	Left Side = iota
	Right
)

// Gyro is the heading sensor.
type Gyro interface {
	// IsReady reports whether calibration has finished.
	IsReady() bool
	// Heading is the synced heading in [0, 360).
	Heading() float64
	// HeadingContinuous is the synced heading without wrapping, used for turn thresholds.
	HeadingContinuous() float64
	// HeadingRaw is the integrated sensor heading before any sync.
	HeadingRaw() float64
	// SetHeading syncs the sensor so Heading reports deg.
	SetHeading(deg float64)
	Disable()
}

// Drive is a tank drive train with one encoder used for distance.
type Drive interface {
	SetPower(side Side, power float64)
	SetPowerBoth(power float64)
	Stop()
	Encoder() float64
}

// Motor is a single motor with an encoder.
type Motor interface {
	SetPower(power float64)
	Encoder() float64
}

// Servo is a positional servo.
type Servo interface {
	SetPosition(pos float64)
	Min()
	Max()
}

// ColorSensor reads the beacon color in front of the robot.
type ColorSensor interface {
	// Color returns false when the reading is inconclusive.
	Color() (model.AllianceColor, bool)
}

// Vision is the localization subsystem.
type Vision interface {
	// TrackOneTick latches the newest fix for this tick.
	TrackOneTick()
	IsStale() bool
	Heading() float64
	Bearing(target int) float64
	BearingTo(p nav.Point) float64
	Distance(target int) float64
	DistanceTo(p nav.Point) float64
	IsVisible(name string) bool
	TargetAngle(name string) float64
}

// Hardware bundles the device handles the sequencer commands.
// Color may be nil when the robot has no beacon sensor.
type Hardware struct {
	Gyro         Gyro
	Drive        Drive
	Shooter      Motor
	Blocker      Servo
	PresserLeft  Servo
	PresserRight Servo
	Color        ColorSensor
	Vision       Vision
}
