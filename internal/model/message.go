// Package model defines shared data structures for BeaconBot.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"BeaconBot/internal/nav"
)

// MMPerInch converts field drawings to millimeters.
const MMPerInch = 25.4

// AllianceColor is the side the robot plays for, also used for beacon colors.
type AllianceColor string

const (
	Red  AllianceColor = "red"
	Blue AllianceColor = "blue"
)

// ParseAllianceColor converts a color name into an AllianceColor.
func ParseAllianceColor(value string) (AllianceColor, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "red":
		return Red, nil
	case "blue":
		return Blue, nil
	default:
		return "", fmt.Errorf("unknown alliance color %q", value)
	}
}

// Target is one vision target mounted on the field wall.
type Target struct {
	Name     string        `yaml:"name" json:"name"`
	Color    AllianceColor `yaml:"color" json:"color"`
	Location nav.Point     `yaml:"location" json:"location"`
	Offset   nav.Point     `yaml:"offset" json:"offset"` // from the image to the beacon
}

// Adjusted is the point the robot actually navigates relative to.
func (t Target) Adjusted() nav.Point {
	return nav.Point{X: t.Location.X + t.Offset.X, Y: t.Location.Y + t.Offset.Y}
}

// DefaultTargets is the 2016-17 field layout.
func DefaultTargets() []Target {
	fieldWidth := math.Trunc((12*12 - 2) * MMPerInch)
	yBlue := math.Trunc(fieldWidth / 2)
	xRed := -yBlue
	near := math.Trunc(12 * MMPerInch)
	far := math.Trunc(36 * MMPerInch)
	offBlue := nav.Point{X: 0, Y: -250}
	offRed := nav.Point{X: 250, Y: 0}
	return []Target{
		{Name: "Wheels", Color: Blue, Location: nav.Point{X: near, Y: yBlue}, Offset: offBlue},
		{Name: "Tools", Color: Red, Location: nav.Point{X: xRed, Y: far}, Offset: offRed},
		{Name: "LEGO", Color: Blue, Location: nav.Point{X: -far, Y: yBlue}, Offset: offBlue},
		{Name: "Gears", Color: Red, Location: nav.Point{X: xRed, Y: -near}, Offset: offRed},
	}
}

// VisionFix is one pose estimate from the vision subsystem.
type VisionFix struct {
	Time    time.Time          `json:"-"`
	X       float64            `json:"x"`
	Y       float64            `json:"y"`
	Heading float64            `json:"heading"`
	Visible map[string]float64 `json:"visible,omitempty"` // target name -> plane angle
}

// Position returns the robot's field position.
func (f VisionFix) Position() nav.Point {
	return nav.Point{X: f.X, Y: f.Y}
}

// Status is the read-only snapshot of the autonomous routine shown to operators.
type Status struct {
	Time        time.Time `json:"time"`
	Tick        uint64    `json:"tick"`
	State       string    `json:"state"`
	Heading     float64   `json:"heading"`
	HeadingRaw  float64   `json:"heading_raw"`
	Encoder     float64   `json:"encoder"`
	Shots       int       `json:"shots"`
	Target      string    `json:"target"`
	Active      bool      `json:"active"`
	LastOutcome string    `json:"last_outcome"`
	GyroReady   bool      `json:"gyro_ready"`
	VisionStale bool      `json:"vision_stale"`
}
