// Package host runs a glowmap Engine on a single goroutine, feeding it
// snapshots, pointer events and clock ticks from channels and emitting
// encoded frames.
package host

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/glowmap"
)

// DefaultTickInterval is the animation frame interval (about 60 fps).
const DefaultTickInterval = 16 * time.Millisecond

// ErrStopped is returned when sending to a loop that has exited.
var ErrStopped = errors.New("host: loop stopped")

// Frame is one rendered frame.
type Frame struct {
	Seq    uint64
	Width  int
	Height int
	PNG    []byte
}

// FrameSink receives the loop's output. Methods are called from the
// loop goroutine and must not block for long.
type FrameSink interface {
	Frame(f Frame)
	Tooltip(text string, visible bool)
}

// Pointer is a pointer event in host coordinates.
type Pointer struct {
	X, Y  float64
	Scale float64 // surface pixels per host unit
	Leave bool
}

// Selection selects a cell, or clears the selection.
type Selection struct {
	Period, Tier int
	Clear        bool
}

// Touch notifies that a cell's counts changed.
type Touch struct {
	Period, Tier int
}

// Size is a surface size in pixels.
type Size struct {
	Width, Height int
}

// Config configures a Loop.
type Config struct {
	Width, Height int
	TickInterval  time.Duration
	Options       []glowmap.Option
}

// Loop owns an Engine and its drawing context. Every engine call
// happens on the goroutine running Run; other goroutines talk to the
// loop through its send methods.
type Loop struct {
	cfg  Config
	sink FrameSink

	snapshots chan *glowmap.Snapshot
	touches   chan Touch
	pointer   chan Pointer
	selects   chan Selection
	resizes   chan Size
	loading   chan bool
	done      chan struct{}

	// Owned by the Run goroutine.
	engine *glowmap.Engine
	dc     *gg.Context
	ticker *time.Ticker
	tick   <-chan time.Time
	dirty  bool
	seq    uint64
}

// New creates a loop. It does nothing until Run is called.
func New(cfg Config, sink FrameSink) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Loop{
		cfg:       cfg,
		sink:      sink,
		snapshots: make(chan *glowmap.Snapshot, 1),
		touches:   make(chan Touch, 64),
		pointer:   make(chan Pointer, 64),
		selects:   make(chan Selection, 8),
		resizes:   make(chan Size, 8),
		loading:   make(chan bool, 4),
		done:      make(chan struct{}),
	}
}

// SetSnapshot queues a snapshot.
func (l *Loop) SetSnapshot(s *glowmap.Snapshot) error { return send(l, l.snapshots, s) }

// Touch queues a cell-touched notification.
func (l *Loop) Touch(t Touch) error { return send(l, l.touches, t) }

// Pointer queues a pointer event.
func (l *Loop) Pointer(p Pointer) error { return send(l, l.pointer, p) }

// Select queues a selection change.
func (l *Loop) Select(s Selection) error { return send(l, l.selects, s) }

// Resize queues a surface resize.
func (l *Loop) Resize(s Size) error { return send(l, l.resizes, s) }

// SetLoading queues a loading state change.
func (l *Loop) SetLoading(loading bool) error { return send(l, l.loading, loading) }

func send[T any](l *Loop, ch chan T, v T) error {
	// A stopped loop may still have buffer space; refuse first.
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case ch <- v:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Run processes events until ctx is canceled. It renders an initial
// frame, then one frame after every event that changed the picture and
// on every animation tick.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.stopTicker()

	opts := append(slices.Clone(l.cfg.Options),
		glowmap.WithRedrawFunc(func() { l.dirty = true }),
		glowmap.WithAnimationFunc(l.animate),
		glowmap.WithTooltipFunc(l.sink.Tooltip),
	)
	l.engine = glowmap.New(l.cfg.Width, l.cfg.Height, opts...)
	l.dc = gg.NewContext(l.cfg.Width, l.cfg.Height)
	l.dirty = true

	log := glowmap.Logger()
	for {
		if l.dirty {
			l.dirty = false
			l.render()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case s := <-l.snapshots:
			l.engine.SetSnapshot(s)

		case t := <-l.touches:
			if err := l.engine.NotifyCellTouched(t.Period, t.Tier); err != nil {
				log.Debug("host: ignoring touch", "period", t.Period, "tier", t.Tier, "err", err)
			}

		case p := <-l.pointer:
			if p.Leave {
				l.engine.PointerLeave()
			} else {
				l.engine.PointerMove(p.X, p.Y, p.Scale)
			}

		case s := <-l.selects:
			if s.Clear {
				l.engine.ClearActiveCell()
			} else if err := l.engine.SetActiveCell(s.Period, s.Tier); err != nil {
				log.Debug("host: invalid selection", "period", s.Period, "tier", s.Tier, "err", err)
			}

		case s := <-l.resizes:
			l.resize(s)

		case b := <-l.loading:
			l.engine.SetLoading(b)

		case <-l.tick:
			l.engine.Tick()
		}
	}
}

// animate starts and stops the frame ticker with the engine clock.
func (l *Loop) animate(running bool) {
	if running {
		if l.ticker == nil {
			l.ticker = time.NewTicker(l.cfg.TickInterval)
			l.tick = l.ticker.C
		}
		return
	}
	l.stopTicker()
}

func (l *Loop) stopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
		l.tick = nil
	}
}

func (l *Loop) resize(s Size) {
	if s.Width <= 0 || s.Height <= 0 {
		glowmap.Logger().Debug("host: ignoring resize", "width", s.Width, "height", s.Height)
		return
	}
	if s.Width == l.dc.Width() && s.Height == l.dc.Height() {
		return
	}
	if err := l.dc.Resize(s.Width, s.Height); err != nil {
		glowmap.Logger().Warn("host: resize failed", "err", err)
		return
	}
	l.engine.Resize(s.Width, s.Height)
	l.dirty = true
}

func (l *Loop) render() {
	l.engine.Render(l.dc)

	var buf bytes.Buffer
	if err := l.dc.EncodePNG(&buf); err != nil {
		glowmap.Logger().Warn("host: encoding frame", "err", err)
		return
	}
	l.seq++
	l.sink.Frame(Frame{
		Seq:    l.seq,
		Width:  l.dc.Width(),
		Height: l.dc.Height(),
		PNG:    buf.Bytes(),
	})
}
