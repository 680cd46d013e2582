package parser

import (
	"encoding/json"

	"BeaconBot/internal/model"
)

// JSONParser implements Parser using JSON serialization.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// EncodeStatus encodes a Status into a JSON string.
func (p *JSONParser) EncodeStatus(s model.Status) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

// DecodeStatus decodes a JSON string into a Status.
func (p *JSONParser) DecodeStatus(line string) (model.Status, error) {
	var s model.Status
	err := json.Unmarshal([]byte(line), &s)
	return s, err
}

// EncodeFix encodes a VisionFix into a JSON string.
func (p *JSONParser) EncodeFix(f model.VisionFix) (string, error) {
	b, err := json.Marshal(f)
	return string(b), err
}

// DecodeFix decodes a JSON string into a VisionFix.
func (p *JSONParser) DecodeFix(line string) (model.VisionFix, error) {
	var f model.VisionFix
	err := json.Unmarshal([]byte(line), &f)
	return f, err
}
