package core

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"BeaconBot/internal/device"
	"BeaconBot/internal/model"
	"BeaconBot/internal/telemetry"
)

func testConfig(t *testing.T, durationMs int) model.Config {
	t.Helper()
	cfg := model.Config{}
	cfg.Telemetry.DBPath = filepath.Join(t.TempDir(), "matches.db")
	cfg.Match.LoopHz = 100
	cfg.Match.DurationMs = durationMs
	cfg.Telemetry.PublishEvery = 1
	cfg.Routine.GyroTimeoutMs = 50
	cfg.ApplyDefaults()
	return cfg
}

func waitDone(t *testing.T, s *System, within time.Duration) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(within):
		t.Fatal("control loop did not exit")
	}
}

func TestSystemRunsMatchToDuration(t *testing.T) {
	cfg := testConfig(t, 300)
	sim := device.NewSimHub(device.NewSimConfig(cfg.Robot, cfg.Hub.Encoders))

	s, err := NewSystem(cfg, WithHub(sim))
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, s, 5*time.Second)

	for _, id := range append(cfg.Robot.LeftMotors, cfg.Robot.RightMotors...) {
		if p := sim.Motor(id); p != 0 {
			t.Errorf("drive motor %d left at %v after match", id, p)
		}
	}
	if p := sim.Motor(cfg.Robot.ShooterMotor); p != 0 {
		t.Errorf("shooter left at %v after match", p)
	}

	st := s.Server().Latest()
	if st.State == "" || st.State == "INIT" || st.Active {
		t.Errorf("final status = %+v", st)
	}
	if s.Match() == 0 {
		t.Fatal("match not recorded")
	}
	s.Stop()

	// Reopen the log to verify what was persisted.
	store, err := telemetry.OpenStore(cfg.Telemetry.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	entries, err := store.Entries(1)
	if err != nil {
		t.Fatal(err)
	}
	var statuses, lines int
	for _, e := range entries {
		switch e.Kind {
		case telemetry.KindStatus:
			statuses++
		case telemetry.KindLog:
			lines++
		}
	}
	if statuses == 0 || lines == 0 {
		t.Errorf("persisted %d statuses and %d log lines", statuses, lines)
	}
}

func TestSystemStopIsIdempotent(t *testing.T) {
	cfg := testConfig(t, 60000)
	s, err := NewSystem(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	s.Stop()
	waitDone(t, s, time.Second)
	s.Stop()
}

func TestSystemConcurrentStop(t *testing.T) {
	cfg := testConfig(t, 60000)
	s, err := NewSystem(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
	waitDone(t, s, time.Second)
}

func TestSystemStopBeforeStart(t *testing.T) {
	cfg := testConfig(t, 60000)
	s, err := NewSystem(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()
	waitDone(t, s, time.Second)
	if err := s.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("partial file gets defaults", func(t *testing.T) {
		path := write("partial.yml", `
routine:
  alliance: red
  num_shots: 3
robot:
  speed_drive: 0.8
hub:
  device: /dev/ttyACM0
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Routine.Alliance != model.Red || cfg.Routine.NumShots != 3 {
			t.Errorf("routine = %+v", cfg.Routine)
		}
		if cfg.Robot.SpeedDrive != 0.8 || cfg.Robot.SpeedTurn != 0.1 {
			t.Errorf("robot speeds = %v/%v", cfg.Robot.SpeedDrive, cfg.Robot.SpeedTurn)
		}
		if cfg.Hub.Device != "/dev/ttyACM0" || cfg.Hub.Baud != 115200 {
			t.Errorf("hub = %+v", cfg.Hub)
		}
		if len(cfg.Field.Targets) != 4 || cfg.Match.LoopHz != 50 {
			t.Errorf("defaults not applied: %d targets, %d Hz", len(cfg.Field.Targets), cfg.Match.LoopHz)
		}
	})

	t.Run("explicit zero wall bearing kept", func(t *testing.T) {
		path := write("bearing.yml", "routine:\n  wall_bearing_blue: 0\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if *cfg.Routine.WallBearingBlue != 0 || *cfg.Routine.WallBearingRed != 0 {
			t.Errorf("wall bearings = %v/%v", *cfg.Routine.WallBearingBlue, *cfg.Routine.WallBearingRed)
		}
	})

	t.Run("explicit zero turns and gain kept", func(t *testing.T) {
		path := write("zeros.yml", "robot:\n  hold_kp: 0\nroutine:\n  blind_turn: 0\n  turn_in_angle: 0\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if *cfg.Robot.HoldKp != 0 || *cfg.Routine.BlindTurn != 0 || *cfg.Routine.TurnInAngle != 0 {
			t.Errorf("hold_kp=%v blind_turn=%v turn_in_angle=%v, want zeros kept",
				*cfg.Robot.HoldKp, *cfg.Routine.BlindTurn, *cfg.Routine.TurnInAngle)
		}
		if cfg.Routine.FindTargetMax != 60 {
			t.Errorf("find_target_max = %v, want 60 from a zero blind turn", cfg.Routine.FindTargetMax)
		}
	})

	t.Run("absent turns and gain defaulted", func(t *testing.T) {
		path := write("empty.yml", "log:\n  level: debug\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if *cfg.Robot.HoldKp != 0.02 || *cfg.Routine.BlindTurn != -40 || *cfg.Routine.TurnInAngle != 5 {
			t.Errorf("hold_kp=%v blind_turn=%v turn_in_angle=%v",
				*cfg.Robot.HoldKp, *cfg.Routine.BlindTurn, *cfg.Routine.TurnInAngle)
		}
	})

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.yml")},
		{"bad yaml", write("bad.yml", "robot: [1, 2\n")},
		{"bad alliance", write("alliance.yml", "routine:\n  alliance: green\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
