package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"BeaconBot/internal/model"
)

// ParseHubFrame parses one line sent by the hub.
func ParseHubFrame(line string) (model.HubFrame, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields[0]) != 1 {
		return model.HubFrame{}, fmt.Errorf("%w: bad frame tag %q", ErrMalformed, fields[0])
	}

	switch kind := model.FrameKind(fields[0][0]); kind {
	case model.FrameSensor:
		if len(fields) < 3 {
			return model.HubFrame{}, fmt.Errorf("%w: sensor frame needs at least 3 fields, got %d", ErrMalformed, len(fields))
		}
		head, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return model.HubFrame{}, errors.New("invalid heading")
		}
		encoders := make([]float64, 0, len(fields)-3)
		for i, f := range fields[3:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return model.HubFrame{}, fmt.Errorf("invalid encoder %d", i)
			}
			encoders = append(encoders, v)
		}
		return model.HubFrame{
			Kind:       kind,
			HeadingRaw: head,
			GyroReady:  fields[2] == "1",
			Encoders:   encoders,
		}, nil

	case model.FrameColor:
		if len(fields) != 3 {
			return model.HubFrame{}, fmt.Errorf("%w: color frame needs 3 fields, got %d", ErrMalformed, len(fields))
		}
		red, err := strconv.Atoi(fields[1])
		if err != nil {
			return model.HubFrame{}, errors.New("invalid red")
		}
		blue, err := strconv.Atoi(fields[2])
		if err != nil {
			return model.HubFrame{}, errors.New("invalid blue")
		}
		return model.HubFrame{Kind: kind, Red: red, Blue: blue}, nil

	default:
		return model.HubFrame{}, fmt.Errorf("%w: unknown frame %q", ErrMalformed, fields[0])
	}
}

// FormatHubFrame converts a frame into the hub's line format.
func FormatHubFrame(f model.HubFrame) string {
	if f.Kind == model.FrameColor {
		return fmt.Sprintf("C,%d,%d", f.Red, f.Blue)
	}
	ready := 0
	if f.GyroReady {
		ready = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "S,%.2f,%d", f.HeadingRaw, ready)
	for _, e := range f.Encoders {
		fmt.Fprintf(&b, ",%.0f", e)
	}
	return b.String()
}

// FormatHubCommand converts a command into the hub's line format.
func FormatHubCommand(c model.HubCommand) string {
	switch c.Kind {
	case model.CommandGyroDisable:
		return "G,0"
	default:
		return fmt.Sprintf("%c,%d,%.3f", c.Kind, c.ID, c.Value)
	}
}

// ParseHubCommand parses one command line received by the hub.
func ParseHubCommand(line string) (model.HubCommand, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields[0]) != 1 {
		return model.HubCommand{}, fmt.Errorf("%w: bad command tag %q", ErrMalformed, fields[0])
	}

	switch kind := model.CommandKind(fields[0][0]); kind {
	case model.CommandGyroDisable:
		return model.HubCommand{Kind: kind}, nil
	case model.CommandMotor, model.CommandServo:
		if len(fields) != 3 {
			return model.HubCommand{}, fmt.Errorf("%w: command needs 3 fields, got %d", ErrMalformed, len(fields))
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil || id < 0 {
			return model.HubCommand{}, errors.New("invalid id")
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return model.HubCommand{}, errors.New("invalid value")
		}
		return model.HubCommand{Kind: kind, ID: id, Value: v}, nil
	default:
		return model.HubCommand{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, fields[0])
	}
}
