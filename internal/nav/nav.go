// Package nav builds turn and drive conditions from the robot's current
// sensor readings and provides the field geometry used to aim them.
package nav

import (
	"math"
	"time"

	"BeaconBot/internal/driveto"
)

// FullCircle is one revolution in degrees.
const FullCircle = 360

// Channels used by the motion helpers.
const (
	ChannelGyro         driveto.Channel = "gyro"
	ChannelDriveEncoder driveto.Channel = "drive_encoder"
	ChannelShooter      driveto.Channel = "shooter_encoder"
)

// Config holds the calibration constants of the drive train.
type Config struct {
	OverrunGyro      float64       // degrees the turn is cut short by
	OverrunEncoder   float64       // ticks the drive is cut short by
	EncoderPerMM     float64       // drive encoder ticks per millimeter
	TimeoutDefault   time.Duration // floor of every turn budget
	TimeoutPerDegree time.Duration // extra budget per degree turned
}

// DefaultConfig returns the calibration of the competition robot.
func DefaultConfig() Config {
	return Config{
		OverrunGyro:      2,
		OverrunEncoder:   25,
		EncoderPerMM:     3.2,
		TimeoutDefault:   driveto.DefaultTimeout,
		TimeoutPerDegree: 100 * time.Millisecond,
	}
}

// Normalize maps any angle into [0, 360).
func Normalize(deg float64) float64 {
	d := math.Mod(deg, FullCircle)
	if d < 0 {
		d += FullCircle
	}
	// Tiny negative angles round up to a full circle.
	if d >= FullCircle {
		d = 0
	}
	return d
}

// ShortestTurn returns the signed turn from heading to bearing, positive clockwise.
// The result never exceeds 180 degrees in magnitude; a half turn goes clockwise.
func ShortestTurn(heading, bearing float64) float64 {
	cw := Normalize(bearing - heading)
	ccw := Normalize(heading - bearing)
	if cw <= ccw {
		return cw
	}
	return -ccw
}

// TurnAngle builds a heading condition for turning angle degrees from the
// continuous heading. Positive angles turn clockwise.
func TurnAngle(heading, angle float64, cfg Config) driveto.Condition {
	target := heading + angle
	var c driveto.Condition
	if angle > 0 {
		c = driveto.GreaterThan(ChannelGyro, target-cfg.OverrunGyro)
	} else {
		c = driveto.LessThan(ChannelGyro, target+cfg.OverrunGyro)
	}
	c.Timeout = time.Duration(math.Abs(angle))*cfg.TimeoutPerDegree + cfg.TimeoutDefault
	return c
}

// TurnBearing turns the short way from the normalized heading to an absolute bearing.
// continuous is the unwrapped heading the condition will be sensed against.
func TurnBearing(heading, continuous, bearing float64, cfg Config) driveto.Condition {
	return TurnAngle(continuous, ShortestTurn(heading, bearing), cfg)
}

// DriveDistance builds a drive encoder condition for distance millimeters from
// the current encoder reading. The encoder counts down when driving forward.
func DriveDistance(encoder, distance float64, cfg Config) driveto.Condition {
	target := encoder - distance*cfg.EncoderPerMM
	if distance < 0 {
		return driveto.GreaterThan(ChannelDriveEncoder, target-cfg.OverrunEncoder)
	}
	return driveto.LessThan(ChannelDriveEncoder, target+cfg.OverrunEncoder)
}

// Point is a field position in millimeters, origin at field center.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Bearing is the absolute direction from one point to another in [0, 360).
func Bearing(from, to Point) float64 {
	return Normalize(math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi)
}

// Distance is the straight-line distance between two points.
func Distance(from, to Point) float64 {
	return math.Hypot(to.X-from.X, to.Y-from.Y)
}
