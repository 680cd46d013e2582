package parser

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"BeaconBot/internal/model"
)

// CSVParser implements Parser using comma-separated values.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// EncodeStatus converts a Status into one CSV line.
func (p *CSVParser) EncodeStatus(s model.Status) (string, error) {
	if strings.ContainsAny(s.State+s.Target, ",\n") {
		return "", fmt.Errorf("%w: field contains a separator", ErrMalformed)
	}
	line := fmt.Sprintf("%s,%.2f,%.2f,%.0f,%d,%s,%t,%s",
		s.State, s.Heading, s.HeadingRaw, s.Encoder, s.Shots, s.Target, s.Active, s.LastOutcome)
	return line, nil
}

// DecodeStatus parses a CSV status line.
func (p *CSVParser) DecodeStatus(line string) (model.Status, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 8 {
		return model.Status{}, fmt.Errorf("%w: expected 8 fields, got %d", ErrMalformed, len(fields))
	}

	heading, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return model.Status{}, errors.New("invalid heading")
	}
	raw, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return model.Status{}, errors.New("invalid raw heading")
	}
	enc, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return model.Status{}, errors.New("invalid encoder")
	}
	shots, err := strconv.Atoi(fields[4])
	if err != nil {
		return model.Status{}, errors.New("invalid shots")
	}
	active, err := strconv.ParseBool(fields[6])
	if err != nil {
		return model.Status{}, errors.New("invalid active flag")
	}

	return model.Status{
		State:       fields[0],
		Heading:     heading,
		HeadingRaw:  raw,
		Encoder:     enc,
		Shots:       shots,
		Target:      fields[5],
		Active:      active,
		LastOutcome: fields[7],
	}, nil
}

// EncodeFix converts a VisionFix into CSV. Visible targets are sorted by name.
func (p *CSVParser) EncodeFix(f model.VisionFix) (string, error) {
	line := fmt.Sprintf("%.1f,%.1f,%.2f", f.X, f.Y, f.Heading)
	if len(f.Visible) == 0 {
		return line, nil
	}
	names := make([]string, 0, len(f.Visible))
	for name := range f.Visible {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%.2f", name, f.Visible[name])
	}
	return line + "," + strings.Join(parts, ";"), nil
}

// DecodeFix parses a CSV vision fix.
func (p *CSVParser) DecodeFix(line string) (model.VisionFix, error) {
	fields := strings.SplitN(strings.TrimSpace(line), ",", 4)
	if len(fields) < 3 {
		return model.VisionFix{}, fmt.Errorf("%w: expected at least 3 fields, got %d", ErrMalformed, len(fields))
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return model.VisionFix{}, errors.New("invalid x")
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return model.VisionFix{}, errors.New("invalid y")
	}
	heading, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return model.VisionFix{}, errors.New("invalid heading")
	}

	fix := model.VisionFix{X: x, Y: y, Heading: heading}
	if len(fields) == 4 && strings.TrimSpace(fields[3]) != "" {
		fix.Visible = make(map[string]float64)
		for _, pair := range strings.Split(fields[3], ";") {
			name, angle, ok := strings.Cut(pair, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return model.VisionFix{}, fmt.Errorf("%w: bad target %q", ErrMalformed, pair)
			}
			a, err := strconv.ParseFloat(strings.TrimSpace(angle), 64)
			if err != nil {
				return model.VisionFix{}, fmt.Errorf("invalid angle for %s", name)
			}
			fix.Visible[strings.TrimSpace(name)] = a
		}
	}
	return fix, nil
}
