package model

// FrameKind tags a line sent by the hub.
type FrameKind byte

const (
	FrameSensor FrameKind = 'S'
	FrameColor  FrameKind = 'C'
)

// HubFrame is one decoded hub line. Only the fields of its kind are set.
type HubFrame struct {
	Kind       FrameKind
	HeadingRaw float64   // sensor: integrated gyro heading, degrees
	GyroReady  bool      // sensor: calibration finished
	Encoders   []float64 // sensor: one reading per motor port
	Red        int       // color: red channel
	Blue       int       // color: blue channel
}

// CommandKind tags a line sent to the hub.
type CommandKind byte

const (
	CommandMotor       CommandKind = 'M'
	CommandServo       CommandKind = 'V'
	CommandGyroDisable CommandKind = 'G'
)

// HubCommand is one actuator command for the hub.
type HubCommand struct {
	Kind  CommandKind
	ID    int
	Value float64 // motor power -1..1 or servo position 0..1
}
