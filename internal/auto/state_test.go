package auto

import (
	"errors"
	"testing"
)

func TestStateStepping(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		next    State
		nextErr bool
		prev    State
		prevErr bool
	}{
		{"first", Init, DriveToShoot, false, Init, true},
		{"middle", ShootWait, DriveToBall, false, Shoot, false},
		{"last", Done, Done, true, BackAway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.state.Next()
			if (err != nil) != tt.nextErr || next != tt.next {
				t.Errorf("Next() = %s, %v", next, err)
			}
			if err != nil && !errors.Is(err, ErrSequenceBounds) {
				t.Errorf("Next() error %v is not ErrSequenceBounds", err)
			}
			prev, err := tt.state.Prev()
			if (err != nil) != tt.prevErr || prev != tt.prev {
				t.Errorf("Prev() = %s, %v", prev, err)
			}
		})
	}
}

func TestStateNames(t *testing.T) {
	for s := First; s <= Last; s++ {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseState("WARP_DRIVE"); err == nil {
		t.Error("expected error for unknown state")
	}
	if got := State(99).String(); got != "State(99)" {
		t.Errorf("String() = %q", got)
	}
}
