package auto

import (
	"math"
	"slices"

	"BeaconBot/internal/model"
	"BeaconBot/internal/nav"
)

// firstTarget returns the index of the alliance's preferred first target, or -1.
func (s *Sequencer) firstTarget() int {
	for i, t := range s.targets {
		if t.Color == s.alliance && slices.Contains(s.cfg.Routine.FirstTargets, t.Name) {
			return i
		}
	}
	return -1
}

// closestTarget returns the index of the nearest alliance target by vision distance, or -1.
func (s *Sequencer) closestTarget() int {
	index, best := -1, math.Inf(1)
	for i, t := range s.targets {
		if t.Color != s.alliance {
			continue
		}
		if d := s.hw.Vision.DistanceTo(t.Adjusted()); d < best {
			index, best = i, d
		}
	}
	return index
}

// destination is a point short of the target so the final approach can realign.
func (s *Sequencer) destination(index int) nav.Point {
	t := s.targets[index]
	p := t.Adjusted()
	if t.Color == model.Blue {
		p.X -= s.cfg.Routine.DestinationOffset
	} else {
		p.Y -= s.cfg.Routine.DestinationOffset
	}
	return p
}

func (s *Sequencer) targetName() string {
	if s.target < 0 || s.target >= len(s.targets) {
		return ""
	}
	return s.targets[s.target].Name
}

// allianceSign mirrors turns for the red side of the field.
func (s *Sequencer) allianceSign() float64 {
	if s.alliance == model.Red {
		return -1
	}
	return 1
}

func (s *Sequencer) wallBearing() float64 {
	if s.alliance == model.Blue {
		return *s.cfg.Routine.WallBearingBlue
	}
	return *s.cfg.Routine.WallBearingRed
}
