package driveto

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout is the budget given to conditions that do not set their own.
const DefaultTimeout = 2500 * time.Millisecond

var (
	// ErrNoConditions is returned when a request is built without conditions.
	ErrNoConditions = errors.New("driveto: request needs at least one condition")
	// ErrUnboundChannel is returned when a condition's channel has no sensing binding.
	ErrUnboundChannel = errors.New("driveto: channel has no binding")
)

// Actuator is the capability triple a caller supplies for one channel.
// Sense is required. Run and Stop may be nil for passive channels.
type Actuator struct {
	Sense func(c *Condition) float64
	Run   func(c *Condition)
	Stop  func(c *Condition)
}

// Bindings maps each channel used by a request to its capabilities.
type Bindings map[Channel]Actuator

// Policy decides when a multi-condition request resolves.
type Policy int

const (
	// AnySatisfied resolves on the first satisfied condition, or when all have timed out.
	AnySatisfied Policy = iota
	// AllSatisfied resolves once every condition is either satisfied or timed out.
	AllSatisfied
)

// Outcome describes how a request resolved.
type Outcome int

const (
	Pending Outcome = iota
	Satisfied
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "PENDING"
	case Satisfied:
		return "SATISFIED"
	case TimedOut:
		return "TIMED_OUT"
	case Cancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Option configures a Request.
type Option func(*Request)

// WithPolicy overrides the resolution policy.
func WithPolicy(p Policy) Option {
	return func(r *Request) { r.policy = p }
}

// WithTimeout sets the budget for conditions without their own timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Request) { r.timeout = d }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Request) { r.now = now }
}

// Request drives a set of conditions sharing one lifecycle.
// It is not safe for concurrent use; one control loop owns it.
type Request struct {
	conds   []*Condition
	binds   Bindings
	policy  Policy
	timeout time.Duration
	now     func() time.Time

	started bool
	done    bool
	outcome Outcome
	stopped map[Channel]bool
}

// New validates the conditions against the bindings and builds a request.
func New(binds Bindings, conds []Condition, opts ...Option) (*Request, error) {
	if len(conds) == 0 {
		return nil, ErrNoConditions
	}
	r := &Request{
		binds:   binds,
		policy:  AnySatisfied,
		timeout: DefaultTimeout,
		now:     time.Now,
		stopped: make(map[Channel]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range conds {
		b, ok := binds[conds[i].Channel]
		if !ok || b.Sense == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnboundChannel, conds[i].Channel)
		}
		c := conds[i]
		r.conds = append(r.conds, &c)
	}
	return r, nil
}

// IsStarted reports whether Drive has been called at least once.
func (r *Request) IsStarted() bool { return r.started }

// IsDone reports whether the request has resolved. Once true it stays true.
func (r *Request) IsDone() bool { return r.done }

// Outcome returns how the request resolved, or Pending.
func (r *Request) Outcome() Outcome { return r.outcome }

// Conditions returns copies of the conditions for display and diagnostics.
func (r *Request) Conditions() []Condition {
	out := make([]Condition, len(r.conds))
	for i, c := range r.conds {
		out[i] = *c
	}
	return out
}

// Drive advances the request by one control-loop tick.
func (r *Request) Drive() {
	if r.done {
		return
	}
	now := r.now()
	if !r.started {
		r.started = true
		for _, c := range r.conds {
			budget := c.Timeout
			if budget <= 0 {
				budget = r.timeout
			}
			c.Deadline = now.Add(budget)
		}
	}

	var first *Condition
	for _, c := range r.conds {
		if !c.Pending() {
			continue
		}
		live := r.binds[c.Channel].Sense(c)
		if c.evaluate(live) {
			c.Satisfied = true
			if first == nil {
				first = c
			}
			r.release(c)
			continue
		}
		if !now.Before(c.Deadline) {
			c.TimedOut = true
			r.release(c)
		}
	}

	if outcome, resolved := r.resolve(first); resolved {
		r.finish(outcome, first)
		return
	}

	for _, c := range r.conds {
		if c.Pending() {
			if run := r.binds[c.Channel].Run; run != nil {
				run(c)
			}
		}
	}
}

// Cancel stops every actuated channel and marks the request done.
// It is a no-op on a request that already resolved.
func (r *Request) Cancel() {
	if r.done {
		return
	}
	r.finish(Cancelled, nil)
}

func (r *Request) resolve(first *Condition) (Outcome, bool) {
	pending, satisfied := 0, 0
	for _, c := range r.conds {
		if c.Pending() {
			pending++
		}
		if c.Satisfied {
			satisfied++
		}
	}
	switch r.policy {
	case AllSatisfied:
		if pending > 0 {
			return Pending, false
		}
		if satisfied == len(r.conds) {
			return Satisfied, true
		}
		return TimedOut, true
	default:
		if first != nil {
			return Satisfied, true
		}
		if pending == 0 {
			return TimedOut, true
		}
		return Pending, false
	}
}

// release stops c's channel once no pending condition still drives it.
func (r *Request) release(c *Condition) {
	for _, other := range r.conds {
		if other.Channel == c.Channel && other.Pending() {
			return
		}
	}
	r.stop(c)
}

// stop calls the channel's Stop at most once per request.
func (r *Request) stop(c *Condition) {
	if r.stopped[c.Channel] {
		return
	}
	r.stopped[c.Channel] = true
	if stop := r.binds[c.Channel].Stop; stop != nil {
		stop(c)
	}
}

// finish stops each distinct channel once, the resolving condition's first.
func (r *Request) finish(outcome Outcome, first *Condition) {
	r.done = true
	r.outcome = outcome
	if first != nil {
		r.stop(first)
	}
	for _, c := range r.conds {
		r.stop(c)
	}
}
