package device

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"BeaconBot/internal/auto"
	"BeaconBot/internal/model"
)

// mockDevice is an in-memory line device: tests push inbound lines and read
// back what was written.
type mockDevice struct {
	mu      sync.Mutex
	in      chan string
	written []string
	closed  bool
}

func newMockDevice() *mockDevice {
	return &mockDevice{in: make(chan string, 64)}
}

func (m *mockDevice) ReadLine(timeout time.Duration) (string, error) {
	select {
	case line := <-m.in:
		return line, nil
	case <-time.After(timeout):
		return "", ErrReadTimeout
	}
}

func (m *mockDevice) WriteLine(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("closed")
	}
	m.written = append(m.written, s)
	return nil
}

func (m *mockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockDevice) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSerialHubReadsFrames(t *testing.T) {
	dev := newMockDevice()
	h := NewSerialHub(dev)
	h.Start()
	defer h.Close()

	dev.in <- "garbage\n"
	dev.in <- "S,45.5,1,10,20,-300\n"
	dev.in <- "C,180,20\n"

	eventually(t, func() bool {
		_, _, ok := h.Color()
		return ok && h.GyroReady()
	})
	if got := h.HeadingRaw(); got != 45.5 {
		t.Errorf("HeadingRaw = %v, want 45.5", got)
	}
	if got := h.Encoder(2); got != -300 {
		t.Errorf("Encoder(2) = %v, want -300", got)
	}
	if got := h.Encoder(9); got != 0 {
		t.Errorf("Encoder(9) = %v, want 0 for an unreported port", got)
	}
	if red, blue, _ := h.Color(); red != 180 || blue != 20 {
		t.Errorf("Color = %d/%d, want 180/20", red, blue)
	}
	if h.LastSeen().IsZero() {
		t.Error("LastSeen not updated")
	}
}

func TestSerialHubSingleReader(t *testing.T) {
	dev := newMockDevice()
	h := NewSerialHub(dev)
	h.Start()
	h.Start()
	defer h.Close()

	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	if got := strings.Count(string(buf[:n]), "(*SerialHub).readLoop"); got != 1 {
		t.Fatalf("frame readers = %d, want 1", got)
	}

	// Frames pushed back to back are applied in order.
	for i := 1; i <= 50; i++ {
		dev.in <- fmt.Sprintf("S,%d,1,%d\n", i, i)
	}
	eventually(t, func() bool { return h.HeadingRaw() == 50 })
	if h.Encoder(0) != 50 {
		t.Errorf("encoder = %v after the last frame, want 50", h.Encoder(0))
	}
}

func TestSerialHubCommandCache(t *testing.T) {
	dev := newMockDevice()
	h := NewSerialHub(dev)

	steps := []struct {
		name string
		do   func() error
	}{
		{"motor", func() error { return h.SetMotor(1, 0.5) }},
		{"same motor value", func() error { return h.SetMotor(1, 0.5) }},
		{"clamped motor", func() error { return h.SetMotor(1, 4) }},
		{"servo", func() error { return h.SetServo(0, -1) }},
		{"gyro", h.DisableGyro},
	}
	for _, s := range steps {
		if err := s.do(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}

	want := []string{"M,1,0.500", "M,1,1.000", "V,0,0.000", "G,0"}
	got := dev.Written()
	if len(got) != len(want) {
		t.Fatalf("written = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSerialHubCloseStopsMotors(t *testing.T) {
	dev := newMockDevice()
	h := NewSerialHub(dev)
	h.Start()
	_ = h.SetMotor(3, -1)
	_ = h.SetMotor(4, 0)

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	got := dev.Written()
	if got[len(got)-1] != "M,3,0.000" {
		t.Errorf("last command = %q, want motor 3 stopped", got[len(got)-1])
	}
	if !dev.closed {
		t.Error("device not closed")
	}
}

func testSimConfig() SimConfig {
	return SimConfig{
		LeftMotors:       []int{0, 2},
		RightMotors:      []int{1, 3},
		Encoders:         5,
		TicksPerSecond:   1000,
		DegreesPerSecond: 100,
		CalibrateAfter:   time.Second,
	}
}

func TestSimHubKinematics(t *testing.T) {
	h := NewSimHub(testSimConfig())

	if h.GyroReady() {
		t.Error("gyro ready before calibration")
	}
	h.Step(time.Second)
	if !h.GyroReady() {
		t.Error("gyro not ready after calibration")
	}

	// Spin clockwise: left forward, right back.
	for _, id := range []int{0, 2} {
		_ = h.SetMotor(id, -1)
	}
	for _, id := range []int{1, 3} {
		_ = h.SetMotor(id, 1)
	}
	h.Step(500 * time.Millisecond)
	if got := h.HeadingRaw(); math.Abs(got-50) > 1e-9 {
		t.Errorf("heading = %v, want 50", got)
	}
	if got := h.Encoder(2); math.Abs(got+500) > 1e-9 {
		t.Errorf("encoder 2 = %v, want -500", got)
	}

	_ = h.DisableGyro()
	if h.GyroReady() {
		t.Error("gyro ready after disable")
	}
	if f := h.Frame(); f.GyroReady || len(f.Encoders) != 5 {
		t.Errorf("frame = %+v", f)
	}
}

func TestSimHubStream(t *testing.T) {
	cfg := testSimConfig()
	cfg.Red, cfg.Blue = 10, 200
	h := NewSimHub(cfg)
	dev := newMockDevice()
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- h.Stream(dev, 5*time.Millisecond, stop) }()

	dev.in <- "M,4,0.750\n"
	dev.in <- "V,1,1.000\n"
	eventually(t, func() bool { return h.Servo(1) == 1 })
	eventually(t, func() bool {
		var sensor, color bool
		for _, l := range dev.Written() {
			sensor = sensor || l[0] == 'S'
			color = color || l == "C,10,200"
		}
		return sensor && color
	})
	close(stop)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	h.Step(time.Second)
	if got := h.Encoder(4); got != 750 {
		t.Errorf("encoder 4 = %v, want 750", got)
	}
}

func TestGyroSync(t *testing.T) {
	tests := []struct {
		name       string
		raw        float64
		sync       float64
		heading    float64
		continuous float64
	}{
		{"plain", 10, 30, 30, 30},
		{"across zero clockwise", 350, 10, 10, 370},
		{"across zero counter-clockwise", 5, 355, 355, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewSimHub(testSimConfig())
			hub.heading = tt.raw
			g := NewGyro(hub)
			g.SetHeading(tt.sync)
			if got := g.Heading(); math.Abs(got-tt.heading) > 1e-9 {
				t.Errorf("Heading = %v, want %v", got, tt.heading)
			}
			if got := g.HeadingContinuous(); math.Abs(got-tt.continuous) > 1e-9 {
				t.Errorf("HeadingContinuous = %v, want %v", got, tt.continuous)
			}
			if got := g.HeadingRaw(); got != tt.raw {
				t.Errorf("HeadingRaw = %v, want %v", got, tt.raw)
			}
		})
	}
}

func TestGyroDisable(t *testing.T) {
	hub := NewSimHub(testSimConfig())
	hub.Step(time.Second)
	g := NewGyro(hub)
	if !g.IsReady() {
		t.Fatal("gyro not ready")
	}
	g.Disable()
	if g.IsReady() {
		t.Error("gyro ready after disable")
	}
	g.SetHeading(90)
	if g.Heading() != 0 {
		t.Errorf("disabled gyro synced to %v", g.Heading())
	}
}

func TestTankDrive(t *testing.T) {
	dev := newMockDevice()
	hub := NewSerialHub(dev)
	var r model.RobotConfig
	r.LeftMotors = []int{0, 2}
	r.RightMotors = []int{1}
	r.EncoderIndex = 2
	d := NewTankDrive(hub, r)

	d.SetPower(auto.Left, -0.25)
	d.SetPower(auto.Right, 0.25)
	d.Stop()

	want := []string{"M,0,-0.250", "M,2,-0.250", "M,1,0.250", "M,0,0.000", "M,2,0.000", "M,1,0.000"}
	got := dev.Written()
	if len(got) != len(want) {
		t.Fatalf("written = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	hub.apply(model.HubFrame{Kind: model.FrameSensor, Encoders: []float64{0, 0, -1234}})
	if got := d.Encoder(); got != -1234 {
		t.Errorf("Encoder = %v, want -1234", got)
	}
}

func TestServo(t *testing.T) {
	dev := newMockDevice()
	hub := NewSerialHub(dev)

	s := NewServo(hub, 2, 0.1, 0.9)
	s.Max()
	s.Min()
	unwired := NewServo(hub, -1, 0, 1)
	unwired.Max()

	want := []string{"V,2,0.900", "V,2,0.100"}
	got := dev.Written()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("written = %q, want %q", got, want)
	}
	if unwired.Enabled() {
		t.Error("negative id servo reports enabled")
	}
}

func TestColorSensor(t *testing.T) {
	tests := []struct {
		name      string
		red, blue int
		want      model.AllianceColor
		ok        bool
	}{
		{"red", 200, 10, model.Red, true},
		{"blue", 5, 90, model.Blue, true},
		{"tie", 50, 50, "", false},
		{"no sensor", 0, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSimConfig()
			cfg.Red, cfg.Blue = tt.red, tt.blue
			got, ok := NewColorSensor(NewSimHub(cfg)).Color()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Color() = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
