// Package vision keeps the robot's latest vision fix and answers field
// geometry questions against it.
package vision

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"BeaconBot/internal/auto"
	"BeaconBot/internal/model"
	"BeaconBot/internal/nav"
	"BeaconBot/internal/util"
)

var _ auto.Vision = (*Tracker)(nil)

// fixStore holds the newest fix from the feed. Writers are the listener
// goroutine; the control loop only reads snapshots.
type fixStore struct {
	mu   sync.RWMutex
	last model.VisionFix
	seq  uint64
}

// Update stores the latest fix and advances the sequence counter.
func (s *fixStore) Update(f model.VisionFix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = f
	s.seq++
}

// Snapshot returns the most recent fix and its sequence number.
func (s *fixStore) Snapshot() (model.VisionFix, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.seq
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker turns the fix feed into a per-tick view. Feed may be called from
// any goroutine; every other method belongs to the control loop.
type Tracker struct {
	targets []model.Target
	stale   time.Duration
	now     func() time.Time
	log     hclog.Logger
	store   fixStore

	current model.VisionFix
	seq     uint64
}

// NewTracker builds a tracker for the given field targets. A fix older than
// stale is not trusted.
func NewTracker(targets []model.Target, stale time.Duration, opts ...Option) *Tracker {
	t := &Tracker{
		targets: targets,
		stale:   stale,
		now:     time.Now,
		log:     util.Logger("vision"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Feed records a new fix. Fixes without a timestamp are stamped on arrival.
func (t *Tracker) Feed(f model.VisionFix) {
	if f.Time.IsZero() {
		f.Time = t.now()
	}
	t.store.Update(f)
}

// TrackOneTick latches the newest fix for this tick.
func (t *Tracker) TrackOneTick() {
	f, seq := t.store.Snapshot()
	if seq == t.seq {
		return
	}
	t.current, t.seq = f, seq
}

// IsStale reports whether the latched fix is missing or too old.
func (t *Tracker) IsStale() bool {
	return t.current.Time.IsZero() || t.now().Sub(t.current.Time) > t.stale
}

// Heading is the robot heading from the latched fix.
func (t *Tracker) Heading() float64 { return nav.Normalize(t.current.Heading) }

// Position is the robot position from the latched fix.
func (t *Tracker) Position() nav.Point { return t.current.Position() }

// Bearing is the absolute bearing to a target's adjusted location.
func (t *Tracker) Bearing(target int) float64 {
	p, ok := t.target(target)
	if !ok {
		return t.Heading()
	}
	return t.BearingTo(p)
}

// BearingTo is the absolute bearing to a field point.
func (t *Tracker) BearingTo(p nav.Point) float64 {
	return nav.Bearing(t.current.Position(), p)
}

// Distance is the distance in millimeters to a target's adjusted location.
func (t *Tracker) Distance(target int) float64 {
	p, ok := t.target(target)
	if !ok {
		return 0
	}
	return t.DistanceTo(p)
}

// DistanceTo is the distance in millimeters to a field point.
func (t *Tracker) DistanceTo(p nav.Point) float64 {
	return nav.Distance(t.current.Position(), p)
}

// IsVisible reports whether the named target is in the latched fix.
func (t *Tracker) IsVisible(name string) bool {
	if t.IsStale() {
		return false
	}
	_, ok := t.current.Visible[name]
	return ok
}

// TargetAngle is the angle between the robot and the named target's plane.
func (t *Tracker) TargetAngle(name string) float64 {
	return t.current.Visible[name]
}

func (t *Tracker) target(i int) (nav.Point, bool) {
	if i < 0 || i >= len(t.targets) {
		t.log.Warn("unknown target index", "index", i)
		return nav.Point{}, false
	}
	return t.targets[i].Adjusted(), true
}
