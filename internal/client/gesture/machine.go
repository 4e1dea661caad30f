// Package gesture disambiguates presses on the like button. A release
// before the hold threshold is a tap and toggles the like; holding past
// the threshold opens the likers list instead, and the following release
// does nothing. Exactly one of the two actions fires per press.
package gesture

import (
	"context"
	"sync"
	"time"

	"github.com/dkravets/kitafeed/internal/logging"
)

// DefaultHold is how long a press must last to count as a hold.
const DefaultHold = 600 * time.Millisecond

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real implementation delegates to
// time.AfterFunc; tests substitute a manual one.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Actions receives the resolved gesture.
type Actions interface {
	ToggleLike(ctx context.Context, postID string)
	ShowLikers(ctx context.Context, postID string)
}

type state int

const (
	stateIdle state = iota
	statePressed
)

// Machine is the press state machine. One instance serves the whole feed:
// the post id travels with each event, and a press on a new post silently
// cancels the one still in flight.
type Machine struct {
	actions Actions
	clock   Clock
	hold    time.Duration
	log     logging.Logger

	mu        sync.Mutex
	state     state
	target    string
	ctx       context.Context
	timer     Timer
	gen       uint64
	holdFired bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock substitutes the scheduling clock.
func WithClock(c Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithHold overrides the hold threshold.
func WithHold(d time.Duration) Option {
	return func(m *Machine) { m.hold = d }
}

func NewMachine(actions Actions, log logging.Logger, opts ...Option) *Machine {
	m := &Machine{
		actions: actions,
		clock:   realClock{},
		hold:    DefaultHold,
		log:     log,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// PressStart begins a press on a post. A press already in flight on another
// post is cancelled without firing its action.
func (m *Machine) PressStart(ctx context.Context, postID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == statePressed {
		m.resetLocked()
	}

	m.state = statePressed
	m.target = postID
	m.ctx = ctx
	m.holdFired = false
	m.gen++

	gen := m.gen
	m.timer = m.clock.AfterFunc(m.hold, func() { m.holdElapsed(gen) })
}

// PressEnd finishes a press. A release before the hold threshold toggles
// the like; after the threshold the likers list is already showing and the
// release is inert.
func (m *Machine) PressEnd(postID string) {
	m.mu.Lock()
	if m.state != statePressed || m.target != postID {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	tap := !m.holdFired
	m.resetLocked()
	m.mu.Unlock()

	if tap {
		m.actions.ToggleLike(ctx, postID)
	}
}

// PressCancel abandons the press in flight, firing nothing. The pointer
// leaving the button or a scroll starting both land here.
func (m *Machine) PressCancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// holdElapsed runs on the timer goroutine. The generation check discards
// timers that lost a race with Stop.
func (m *Machine) holdElapsed(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != statePressed {
		m.mu.Unlock()
		return
	}
	m.holdFired = true
	ctx, postID := m.ctx, m.target
	m.mu.Unlock()

	m.log.Debug(ctx, "hold threshold reached", "post", postID)
	m.actions.ShowLikers(ctx, postID)
}

func (m *Machine) resetLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.state = stateIdle
	m.target = ""
	m.ctx = nil
	m.holdFired = false
	m.gen++
}
