package parser

import (
	"errors"
	"reflect"
	"testing"

	"BeaconBot/internal/model"
)

func TestParseHubFrame(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    model.HubFrame
		wantErr bool
	}{
		{
			name: "sensor frame",
			line: "S,12.50,1,0,-320,4100\n",
			want: model.HubFrame{Kind: model.FrameSensor, HeadingRaw: 12.5, GyroReady: true, Encoders: []float64{0, -320, 4100}},
		},
		{
			name: "sensor frame without encoders",
			line: "S,-3,0",
			want: model.HubFrame{Kind: model.FrameSensor, HeadingRaw: -3, Encoders: []float64{}},
		},
		{
			name: "color frame",
			line: "C,210,40",
			want: model.HubFrame{Kind: model.FrameColor, Red: 210, Blue: 40},
		},
		{name: "unknown tag", line: "X,1,2", wantErr: true},
		{name: "empty", line: "", wantErr: true},
		{name: "short sensor", line: "S,1", wantErr: true},
		{name: "bad encoder", line: "S,1,1,abc", wantErr: true},
		{name: "bad color", line: "C,red,0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHubFrame(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHubFrame(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseHubFrame(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestFormatHubFrame(t *testing.T) {
	f := model.HubFrame{Kind: model.FrameSensor, HeadingRaw: 90.456, GyroReady: true, Encoders: []float64{1, -2.4, 3000}}
	if got, want := FormatHubFrame(f), "S,90.46,1,1,-2,3000"; got != want {
		t.Errorf("FormatHubFrame = %q, want %q", got, want)
	}
	c := model.HubFrame{Kind: model.FrameColor, Red: 5, Blue: 200}
	if got, want := FormatHubFrame(c), "C,5,200"; got != want {
		t.Errorf("FormatHubFrame = %q, want %q", got, want)
	}
}

func TestHubCommands(t *testing.T) {
	tests := []struct {
		cmd  model.HubCommand
		line string
	}{
		{model.HubCommand{Kind: model.CommandMotor, ID: 2, Value: -0.5}, "M,2,-0.500"},
		{model.HubCommand{Kind: model.CommandServo, ID: 0, Value: 1}, "V,0,1.000"},
		{model.HubCommand{Kind: model.CommandGyroDisable}, "G,0"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := FormatHubCommand(tt.cmd); got != tt.line {
				t.Errorf("FormatHubCommand = %q, want %q", got, tt.line)
			}
			got, err := ParseHubCommand(tt.line)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.cmd {
				t.Errorf("ParseHubCommand(%q) = %+v, want %+v", tt.line, got, tt.cmd)
			}
		})
	}

	for _, bad := range []string{"M,1", "M,-1,0.5", "V,a,1", "Q,1,1", ""} {
		if _, err := ParseHubCommand(bad); err == nil {
			t.Errorf("ParseHubCommand(%q) expected error", bad)
		}
	}
}

func TestCSVDecodeFix(t *testing.T) {
	p := NewCSVParser()
	tests := []struct {
		name    string
		line    string
		want    model.VisionFix
		wantErr bool
	}{
		{
			name: "position only",
			line: "-914.0,1200.5,87.25",
			want: model.VisionFix{X: -914, Y: 1200.5, Heading: 87.25},
		},
		{
			name: "with visible targets",
			line: "10,20,30,LEGO:3.5;Wheels:-12",
			want: model.VisionFix{X: 10, Y: 20, Heading: 30, Visible: map[string]float64{"LEGO": 3.5, "Wheels": -12}},
		},
		{
			name: "trailing empty target list",
			line: "1,2,3,",
			want: model.VisionFix{X: 1, Y: 2, Heading: 3},
		},
		{name: "too few fields", line: "1,2", wantErr: true},
		{name: "bad number", line: "1,x,3", wantErr: true},
		{name: "bad target", line: "1,2,3,LEGO", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.DecodeFix(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeFix(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeFix(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestCSVEncodeFixSortsTargets(t *testing.T) {
	line, err := NewCSVParser().EncodeFix(model.VisionFix{X: 1, Y: 2, Heading: 3, Visible: map[string]float64{"Wheels": 1, "Gears": 2}})
	if err != nil {
		t.Fatal(err)
	}
	if want := "1.0,2.0,3.00,Gears:2.00;Wheels:1.00"; line != want {
		t.Errorf("EncodeFix = %q, want %q", line, want)
	}
}

func TestCSVStatus(t *testing.T) {
	p := NewCSVParser()
	st := model.Status{State: "DRIVE_TO_DEST", Heading: 91.5, HeadingRaw: 12.25, Encoder: -4200, Shots: 2, Target: "LEGO", Active: true, LastOutcome: "SATISFIED"}

	line, err := p.EncodeStatus(st)
	if err != nil {
		t.Fatal(err)
	}
	if want := "DRIVE_TO_DEST,91.50,12.25,-4200,2,LEGO,true,SATISFIED"; line != want {
		t.Fatalf("EncodeStatus = %q, want %q", line, want)
	}
	got, err := p.DecodeStatus(line)
	if err != nil {
		t.Fatal(err)
	}
	if got != st {
		t.Errorf("DecodeStatus = %+v, want %+v", got, st)
	}

	if _, err := p.EncodeStatus(model.Status{Target: "a,b"}); !errors.Is(err, ErrMalformed) {
		t.Errorf("EncodeStatus with separator: err = %v, want ErrMalformed", err)
	}
	if _, err := p.DecodeStatus("INIT,1,2"); !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeStatus short line: err = %v, want ErrMalformed", err)
	}
}

func TestJSONDecodeFix(t *testing.T) {
	got, err := NewJSONParser().DecodeFix(`{"x":100,"y":-50,"heading":270,"visible":{"Tools":4}}`)
	if err != nil {
		t.Fatal(err)
	}
	want := model.VisionFix{X: 100, Y: -50, Heading: 270, Visible: map[string]float64{"Tools": 4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeFix = %+v, want %+v", got, want)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    Parser
		wantErr bool
	}{
		{"csv", &CSVParser{}, false},
		{"", &CSVParser{}, false},
		{"JSON", &JSONParser{}, false},
		{"xml", nil, true},
	}
	for _, tt := range tests {
		got, err := New(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v", tt.format, err)
			continue
		}
		if !tt.wantErr && reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
			t.Errorf("New(%q) = %T, want %T", tt.format, got, tt.want)
		}
	}
}
