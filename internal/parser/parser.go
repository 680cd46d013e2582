// Package parser converts wire formats to structured types and vice-versa.
//
// Hub line format (hub -> host):
//
//	S,HEADING_RAW,GYRO_READY,ENC0,...,ENCN
//	C,RED,BLUE
//
// Hub command format (host -> hub):
//
//	M,ID,POWER
//	V,ID,POSITION
//	G,0
//
// Vision fix format (vision -> host, CSV or JSON):
//
//	X_MM,Y_MM,HEADING[,NAME:ANGLE;...]
//
// Status format (host -> operators, CSV or JSON):
//
//	STATE,HEADING,RAW,ENCODER,SHOTS,TARGET,ACTIVE,OUTCOME
package parser

import (
	"errors"
	"fmt"
	"strings"

	"BeaconBot/internal/model"
)

// ErrMalformed is returned when a line does not have the expected shape.
var ErrMalformed = errors.New("parser: malformed line")

// Parser encodes operator status and decodes vision fixes in one wire format.
type Parser interface {
	EncodeStatus(s model.Status) (string, error)
	DecodeStatus(line string) (model.Status, error)
	EncodeFix(f model.VisionFix) (string, error)
	DecodeFix(line string) (model.VisionFix, error)
}

// New returns the parser for a wire format name (csv or json).
func New(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return NewCSVParser(), nil
	case "json":
		return NewJSONParser(), nil
	default:
		return nil, fmt.Errorf("unknown wire format %q", format)
	}
}
