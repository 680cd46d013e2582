// Package model defines the configuration structures used to initialize BeaconBot.
// It includes robot calibration, the autonomous routine, the field layout and the
// hub, vision and telemetry endpoints.
package model

import (
	"time"

	"BeaconBot/internal/nav"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Robot     RobotConfig     `yaml:"robot"`
	Routine   RoutineConfig   `yaml:"routine"`
	Field     FieldConfig     `yaml:"field"`
	Hub       HubConfig       `yaml:"hub"`
	Vision    VisionConfig    `yaml:"vision"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Match     MatchConfig     `yaml:"match"`
	Log       LogConfig       `yaml:"log"`
}

// RobotConfig holds drive train calibration and actuator speeds.
type RobotConfig struct {
	EncoderPerMM      float64 `yaml:"encoder_per_mm"`
	OverrunGyro       float64 `yaml:"overrun_gyro"`    // degrees
	OverrunEncoder    float64 `yaml:"overrun_encoder"` // ticks
	TimeoutDefaultMs  int     `yaml:"timeout_default_ms"`
	TimeoutPerDegMs   int     `yaml:"timeout_per_degree_ms"`
	SpeedTurn         float64 `yaml:"speed_turn"`
	SpeedTurnFast     float64 `yaml:"speed_turn_fast"`
	TurnFastThreshold float64 `yaml:"turn_fast_threshold"` // degrees of error
	SpeedDrive        float64 `yaml:"speed_drive"`
	SpeedShoot        float64 `yaml:"speed_shoot"`

	// Heading hold gains applied while driving straight. hold_kp: 0 turns the hold off.
	HoldKp *float64 `yaml:"hold_kp"`
	HoldKi float64  `yaml:"hold_ki"`
	HoldKd float64  `yaml:"hold_kd"`

	// Hub wiring. Motor and servo ids as numbered on the hub.
	LeftMotors   []int   `yaml:"left_motors"`
	RightMotors  []int   `yaml:"right_motors"`
	EncoderIndex int     `yaml:"encoder_index"`
	ShooterMotor int     `yaml:"shooter_motor"`
	BlockerServo int     `yaml:"blocker_servo"`
	PresserLeft  int     `yaml:"presser_left_servo"`
	PresserRight int     `yaml:"presser_right_servo"`
	ServoMin     float64 `yaml:"servo_min"`
	ServoMax     float64 `yaml:"servo_max"`
	HasColor     bool    `yaml:"has_color_sensor"`
}

// RoutineConfig holds the constants of the autonomous routine.
type RoutineConfig struct {
	Alliance            AllianceColor `yaml:"alliance"`
	GyroTimeoutMs       int           `yaml:"gyro_timeout_ms"`
	GyroSyncIntervalMs  int           `yaml:"gyro_sync_interval_ms"`
	ShootDistance       float64       `yaml:"shoot_distance"` // mm
	ShootSpin           float64       `yaml:"shoot_spin"`     // shooter ticks per shot
	NumShots            int           `yaml:"num_shots"`
	ShotDelayMs         int           `yaml:"shot_delay_ms"`
	BallDistance        float64       `yaml:"ball_distance"`
	TurnInAngle         *float64      `yaml:"turn_in_angle"`
	PastBallDistance    float64       `yaml:"past_ball_distance"`
	BlindTurn           *float64      `yaml:"blind_turn"`
	FindTargetDelayMs   int           `yaml:"find_target_delay_ms"`
	FindTargetMax       float64       `yaml:"find_target_max"`
	FindTargetIncrement float64       `yaml:"find_target_increment"`
	BlindBump           float64       `yaml:"blind_bump"`
	DestinationOffset   float64       `yaml:"destination_offset"`
	ApproachMin         float64       `yaml:"approach_min"`
	BeaconDelayMs       int           `yaml:"beacon_delay_ms"`
	DefaultBeacon       AllianceColor `yaml:"default_beacon"`
	WallBearingBlue     *float64      `yaml:"wall_bearing_blue"`
	WallBearingRed      *float64      `yaml:"wall_bearing_red"`
	FirstTargets        []string      `yaml:"first_targets"`
	Strict              bool          `yaml:"strict"`
}

// FieldConfig lists the vision targets on the field.
type FieldConfig struct {
	Targets []Target `yaml:"targets"`
}

// HubConfig selects the motor/sensor hub. An empty device runs the simulator.
type HubConfig struct {
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	Encoders int    `yaml:"encoders"`
}

// VisionConfig controls the vision fix feed.
type VisionConfig struct {
	UDPAddr    string `yaml:"udp_addr"`
	WireFormat string `yaml:"wire_format"` // csv/json
	StaleMs    int    `yaml:"stale_ms"`
	ReadBuffer int    `yaml:"read_buffer"`
}

// TelemetryConfig controls the operator telemetry server and match log.
type TelemetryConfig struct {
	Addr         string `yaml:"addr"`
	DBPath       string `yaml:"db_path"`
	PublishEvery int    `yaml:"publish_every"` // ticks
}

// MatchConfig controls the control loop.
type MatchConfig struct {
	LoopHz     int `yaml:"loop_hz"`
	DurationMs int `yaml:"duration_ms"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

func defaultFloat(v *float64, d float64) {
	if *v == 0 {
		*v = d
	}
}

// defaultPtr sets a field whose zero value is meaningful only when it is absent.
func defaultPtr(v **float64, d float64) {
	if *v == nil {
		*v = &d
	}
}

func defaultInt(v *int, d int) {
	if *v == 0 {
		*v = d
	}
}

// ApplyDefaults fills every unset field with the competition robot's values.
func (c *Config) ApplyDefaults() {
	r := &c.Robot
	navDefaults := nav.DefaultConfig()
	defaultFloat(&r.EncoderPerMM, navDefaults.EncoderPerMM)
	defaultFloat(&r.OverrunGyro, navDefaults.OverrunGyro)
	defaultFloat(&r.OverrunEncoder, navDefaults.OverrunEncoder)
	defaultInt(&r.TimeoutDefaultMs, int(navDefaults.TimeoutDefault/time.Millisecond))
	defaultInt(&r.TimeoutPerDegMs, int(navDefaults.TimeoutPerDegree/time.Millisecond))
	defaultFloat(&r.SpeedTurn, 0.1)
	defaultFloat(&r.SpeedTurnFast, 0.5)
	defaultFloat(&r.TurnFastThreshold, 60)
	defaultFloat(&r.SpeedDrive, 1.0)
	defaultFloat(&r.SpeedShoot, 1.0)
	defaultPtr(&r.HoldKp, 0.02)
	defaultFloat(&r.ServoMax, 1.0)
	// Ids may legitimately be zero, so wiring defaults only apply to an empty section.
	if len(r.LeftMotors) == 0 && len(r.RightMotors) == 0 {
		r.LeftMotors = []int{0, 2}
		r.RightMotors = []int{1, 3}
		r.EncoderIndex = 2
		r.ShooterMotor = 4
		r.BlockerServo, r.PresserLeft, r.PresserRight = 0, 1, 2
	}

	rt := &c.Routine
	if rt.Alliance == "" {
		rt.Alliance = Blue
	}
	defaultInt(&rt.GyroTimeoutMs, 5000)
	defaultInt(&rt.GyroSyncIntervalMs, 1000)
	defaultFloat(&rt.ShootDistance, 1850)
	defaultFloat(&rt.ShootSpin, 3700)
	defaultInt(&rt.NumShots, 2)
	defaultInt(&rt.ShotDelayMs, 1000)
	defaultFloat(&rt.BallDistance, 1100)
	defaultPtr(&rt.TurnInAngle, 5)
	defaultFloat(&rt.PastBallDistance, 1000)
	defaultPtr(&rt.BlindTurn, -40)
	defaultInt(&rt.FindTargetDelayMs, 750)
	defaultFloat(&rt.FindTargetMax, -*rt.BlindTurn+60)
	defaultFloat(&rt.FindTargetIncrement, rt.FindTargetMax/5)
	defaultFloat(&rt.BlindBump, 1000)
	defaultFloat(&rt.DestinationOffset, 12*MMPerInch)
	defaultFloat(&rt.ApproachMin, 400)
	defaultInt(&rt.BeaconDelayMs, 1000)
	if rt.DefaultBeacon == "" {
		rt.DefaultBeacon = Blue
	}
	defaultPtr(&rt.WallBearingBlue, 90)
	defaultPtr(&rt.WallBearingRed, 0)
	if len(rt.FirstTargets) == 0 {
		rt.FirstTargets = []string{"LEGO", "Tools"}
	}

	if len(c.Field.Targets) == 0 {
		c.Field.Targets = DefaultTargets()
	}

	defaultInt(&c.Hub.Baud, 115200)
	defaultInt(&c.Hub.Encoders, 5)

	if c.Vision.WireFormat == "" {
		c.Vision.WireFormat = "csv"
	}
	defaultInt(&c.Vision.StaleMs, 500)
	defaultInt(&c.Vision.ReadBuffer, 2048)

	defaultInt(&c.Telemetry.PublishEvery, 5)
	if c.Telemetry.DBPath == "" {
		c.Telemetry.DBPath = "tmp/matches.db"
	}

	defaultInt(&c.Match.LoopHz, 50)
	defaultInt(&c.Match.DurationMs, 30000)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// NavConfig converts the robot calibration into motion helper settings.
func (r RobotConfig) NavConfig() nav.Config {
	return nav.Config{
		OverrunGyro:      r.OverrunGyro,
		OverrunEncoder:   r.OverrunEncoder,
		EncoderPerMM:     r.EncoderPerMM,
		TimeoutDefault:   time.Duration(r.TimeoutDefaultMs) * time.Millisecond,
		TimeoutPerDegree: time.Duration(r.TimeoutPerDegMs) * time.Millisecond,
	}
}

// Ms converts a millisecond config field to a duration.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
