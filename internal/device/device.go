// Package device talks to the motor/sensor hub and adapts it to the robot facades.
// It abstracts reading and writing line-based data with optional timeouts.
package device

import (
	"errors"
	"time"
)

// ErrReadTimeout is returned by ReadLine when no line arrived in time.
var ErrReadTimeout = errors.New("read timeout")

// Device defines an abstract interface for line-based links (serial port, pty).
type Device interface {
	// ReadLine reads a single line terminated by '\n'.
	// If timeout > 0, it must return after timeout even if no data available.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Close closes the device and releases underlying resources.
	Close() error
}

// Hub is the microcontroller owning motors, servos, encoders, the gyro and
// the color sensor. Implementations are safe for concurrent use.
type Hub interface {
	SetMotor(id int, power float64) error
	SetServo(id int, position float64) error
	DisableGyro() error
	// Encoder returns the last reading of the encoder on a motor port.
	Encoder(index int) float64
	HeadingRaw() float64
	GyroReady() bool
	// Color returns the raw color channels; ok is false before the first reading.
	Color() (red, blue int, ok bool)
	Close() error
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
