// Package driveto implements the motion-termination controller: a request that
// keeps actuating until one of its sensor conditions is met or every condition
// has run out of time.
package driveto

import (
	"fmt"
	"time"
)

// Channel identifies the sensor/actuator pair a Condition concerns.
// The controller never interprets it; it only looks up the caller's binding.
type Channel string

// Comparator selects the direction in which the live value must cross the threshold.
type Comparator int

const (
	Greater Comparator = iota + 1
	Less
)

func (c Comparator) String() string {
	switch c {
	case Greater:
		return "GREATER"
	case Less:
		return "LESS"
	default:
		return fmt.Sprintf("Comparator(%d)", int(c))
	}
}

// Condition is one threshold-crossing criterion.
type Condition struct {
	Channel    Channel
	Comparator Comparator
	Threshold  float64

	// Timeout is this condition's budget. Zero uses the request default.
	Timeout time.Duration

	// Error is live - Threshold as of the last evaluation.
	Error    float64
	Deadline time.Time

	Started   bool
	Satisfied bool
	TimedOut  bool
}

// GreaterThan builds a condition satisfied once the channel reaches threshold from below.
func GreaterThan(ch Channel, threshold float64) Condition {
	return Condition{Channel: ch, Comparator: Greater, Threshold: threshold}
}

// LessThan builds a condition satisfied once the channel reaches threshold from above.
func LessThan(ch Channel, threshold float64) Condition {
	return Condition{Channel: ch, Comparator: Less, Threshold: threshold}
}

// Pending reports whether the condition is still being driven.
func (c *Condition) Pending() bool {
	return !c.Satisfied && !c.TimedOut
}

// evaluate records the live value and reports whether the threshold has been reached.
func (c *Condition) evaluate(live float64) bool {
	c.Started = true
	c.Error = live - c.Threshold
	switch c.Comparator {
	case Greater:
		return live >= c.Threshold
	case Less:
		return live <= c.Threshold
	}
	return false
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %.2f (err %.2f)", c.Channel, c.Comparator, c.Threshold, c.Error)
}
