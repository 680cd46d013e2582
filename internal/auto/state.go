// Package auto implements the autonomous routine: a fixed sequence of states,
// each issuing at most one closed-loop motion request at a time.
package auto

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSequenceBounds is returned when stepping before the first or after the last state.
var ErrSequenceBounds = errors.New("auto: step outside the state sequence")

// State is a phase of the autonomous routine. States are ordered; Next and
// Prev step through them by adjacency.
type State int

const (
	Init State = iota
	DriveToShoot
	Shoot
	ShootWait
	DriveToBall
	TurnIn
	DrivePastBall
	BlindTurn
	FindTarget
	FindTargetWait
	TurnToDest
	DriveToDest
	TurnToTarget
	WaitTarget
	TargetNotVisible
	AlignAtTarget
	ApproachTarget
	AlignTargetPlane
	BumpWall
	CheckColor
	PressBeacon
	BeaconWait
	BackAway
	Done
)

// First and Last bound the sequence.
const (
	First = Init
	Last  = Done
)

var stateNames = [...]string{
	Init:             "INIT",
	DriveToShoot:     "DRIVE_TO_SHOOT",
	Shoot:            "SHOOT",
	ShootWait:        "SHOOT_WAIT",
	DriveToBall:      "DRIVE_TO_BALL",
	TurnIn:           "TURN_IN",
	DrivePastBall:    "DRIVE_PAST_BALL",
	BlindTurn:        "BLIND_TURN",
	FindTarget:       "FIND_TARGET",
	FindTargetWait:   "FIND_TARGET_WAIT",
	TurnToDest:       "TURN_TO_DEST",
	DriveToDest:      "DRIVE_TO_DEST",
	TurnToTarget:     "TURN_TO_TARGET",
	WaitTarget:       "WAIT_TARGET",
	TargetNotVisible: "TARGET_NOT_VISIBLE",
	AlignAtTarget:    "ALIGN_AT_TARGET",
	ApproachTarget:   "APPROACH_TARGET",
	AlignTargetPlane: "ALIGN_TARGET_PLANE",
	BumpWall:         "BUMP_WALL",
	CheckColor:       "CHECK_COLOR",
	PressBeacon:      "PRESS_BEACON",
	BeaconWait:       "BEACON_WAIT",
	BackAway:         "BACK_AWAY",
	Done:             "DONE",
}

func (s State) String() string {
	if s < First || s > Last {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Next returns the following state.
func (s State) Next() (State, error) {
	if s < First || s >= Last {
		return s, fmt.Errorf("%w: no state after %s", ErrSequenceBounds, s)
	}
	return s + 1, nil
}

// Prev returns the preceding state.
func (s State) Prev() (State, error) {
	if s <= First || s > Last {
		return s, fmt.Errorf("%w: no state before %s", ErrSequenceBounds, s)
	}
	return s - 1, nil
}

// ParseState converts a state name into a State.
func ParseState(value string) (State, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for i, name := range stateNames {
		if name == normalized {
			return State(i), nil
		}
	}
	return Init, fmt.Errorf("unknown state %q", value)
}
