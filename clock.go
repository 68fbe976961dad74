package glowmap

import (
	"math"
	"time"
)

// Animation constants.
const (
	// FadeDuration is how long a cell keeps its alert color after its
	// counts increased. Measured in wall time.
	FadeDuration = 10 * time.Second

	// PhaseStep is the phase advance per clock tick.
	PhaseStep = 1.0

	// RipplePeriod is the phase length of one ripple cycle.
	RipplePeriod = 150.0

	// PulsePeriod is the phase length of one epicenter pulse.
	PulsePeriod = 40.0

	// PhaseWrap bounds the phase counter. It is a multiple of both
	// RipplePeriod and PulsePeriod, so wrapping is invisible.
	PhaseWrap = 600000.0
)

// AnimationClock is the single shared animation driver. It advances the
// phase counter and prunes expired fades on every Tick. It is a binary
// running/stopped state machine: starting a running clock is a no-op.
//
// The clock does not own a timer. Hosts call Tick at their frame rate
// while Running reports true.
type AnimationClock struct {
	phase   float64
	fades   map[CellKey]time.Time
	running bool
}

// NewAnimationClock returns a stopped clock with no fades.
func NewAnimationClock() *AnimationClock {
	return &AnimationClock{fades: make(map[CellKey]time.Time)}
}

// Phase returns the current animation phase in [0, PhaseWrap).
func (c *AnimationClock) Phase() float64 { return c.phase }

// Running reports whether the clock is ticking.
func (c *AnimationClock) Running() bool { return c.running }

// Start marks the clock as running. It returns true if the clock was
// stopped before the call.
func (c *AnimationClock) Start() bool {
	if c.running {
		return false
	}
	c.running = true
	return true
}

// Stop marks the clock as stopped. Stop is idempotent.
func (c *AnimationClock) Stop() {
	c.running = false
}

// Touch registers or refreshes the fade of k at time at.
func (c *AnimationClock) Touch(k CellKey, at time.Time) {
	c.fades[k] = at
}

// FadeCount returns the number of live fades.
func (c *AnimationClock) FadeCount() int { return len(c.fades) }

// Fading reports whether k has a live fade entry.
func (c *AnimationClock) Fading(k CellKey) bool {
	_, ok := c.fades[k]
	return ok
}

// FadeProgress returns how far the fade of k has progressed at now, in
// [0, 1], and whether k is fading at all.
func (c *AnimationClock) FadeProgress(k CellKey, now time.Time) (float64, bool) {
	at, ok := c.fades[k]
	if !ok {
		return 0, false
	}
	p := float64(now.Sub(at)) / float64(FadeDuration)
	return math.Max(0, math.Min(1, p)), true
}

// Prune removes fades older than FadeDuration at now.
func (c *AnimationClock) Prune(now time.Time) {
	for k, at := range c.fades {
		if now.Sub(at) > FadeDuration {
			delete(c.fades, k)
		}
	}
}

// Tick advances the phase, prunes expired fades and stops the clock when
// there is neither an active cell nor a live fade. The tick that stops
// the clock still counts as a frame: callers redraw after every Tick so
// the final steady state is drawn.
//
// Tick returns whether the clock is still running.
func (c *AnimationClock) Tick(now time.Time, active bool) bool {
	c.phase = math.Mod(c.phase+PhaseStep, PhaseWrap)
	c.Prune(now)
	if !active && len(c.fades) == 0 {
		c.running = false
	}
	return c.running
}

// NeedsRunning reports whether the start condition holds.
func (c *AnimationClock) NeedsRunning(active bool) bool {
	return active || len(c.fades) > 0
}
