package glowmap

import (
	"fmt"

	"github.com/gogpu/gg"
)

// pointerState is the last pointer position reported by the host.
type pointerState struct {
	x, y, scale float64
	inside      bool
}

// Engine renders and animates a coverage heatmap.
//
// Engine is not safe for concurrent use. A single goroutine feeds it
// snapshots, pointer events and clock ticks and calls Render; callbacks
// run on that goroutine.
type Engine struct {
	opts options

	width, height int
	grid          *Grid
	loading       bool

	detector UpdateDetector
	clock    *AnimationClock

	active    CellKey
	hasActive bool
	hover     CellKey
	hasHover  bool
	pointer   pointerState

	tooltip        string
	tooltipVisible bool

	compositor *Compositor
	overlay    *SelectionOverlay
	axis       *AxisRenderer

	rendering     bool
	redrawPending bool
}

// New creates an engine for a width x height surface (in surface pixels).
func New(width, height int, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.printer == nil {
		o.printer = defaultPrinter()
	}
	if !o.faceSet {
		face, err := DefaultFace(DefaultLabelSize)
		if err != nil {
			Logger().Warn("glowmap: labels disabled", "err", err)
		}
		o.face = face
	}

	return &Engine{
		opts:       o,
		width:      width,
		height:     height,
		grid:       NewGrid(nil),
		clock:      NewAnimationClock(),
		compositor: NewCompositor(o.palette, o.maxPixels),
		overlay:    NewSelectionOverlay(o.palette),
		axis:       NewAxisRenderer(o.palette, o.face, o.stride),
	}
}

// Size returns the surface size.
func (e *Engine) Size() (width, height int) { return e.width, e.height }

// Grid returns the current grid. It is never nil.
func (e *Engine) Grid() *Grid { return e.grid }

// Clock returns the animation clock.
func (e *Engine) Clock() *AnimationClock { return e.clock }

// Animating reports whether the animation clock is running.
func (e *Engine) Animating() bool { return e.clock.Running() }

// ActiveCell returns the selected cell, if any.
func (e *Engine) ActiveCell() (CellKey, bool) { return e.active, e.hasActive }

// HoverCell returns the hovered cell, if any.
func (e *Engine) HoverCell() (CellKey, bool) { return e.hover, e.hasHover }

// Tooltip returns the current tooltip text and whether it is shown.
func (e *Engine) Tooltip() (string, bool) { return e.tooltip, e.tooltipVisible }

// Layout returns the layout for the current grid and surface size.
func (e *Engine) Layout() Layout {
	if !e.grid.Ready() {
		return Layout{}
	}
	return NewLayout(e.width, e.height, e.grid.Columns(), e.grid.MinPeriod(),
		e.opts.insets, e.opts.padding)
}

// SetSnapshot replaces the grid. Cells whose counts increased since the
// previous snapshot start fading. A nil or empty snapshot shows the
// no-data placeholder.
func (e *Engine) SetSnapshot(s *Snapshot) {
	g := NewGrid(s)
	now := e.opts.now()
	for _, k := range e.detector.Detect(g) {
		e.clock.Touch(k, now)
	}
	e.grid = g

	if e.hasActive && !g.Contains(e.active) {
		e.hasActive = false
	}
	e.refreshHover()
	e.updateClock()
	e.requestRedraw()
}

// SetLoading switches the loading placeholder on or off. While loading,
// nothing else is drawn.
func (e *Engine) SetLoading(loading bool) {
	if e.loading == loading {
		return
	}
	e.loading = loading
	e.requestRedraw()
}

// Loading reports whether the loading placeholder is shown.
func (e *Engine) Loading() bool { return e.loading }

// SetActiveCell selects a cell and starts its ripple. A cell outside the
// grid clears the selection and returns ErrInvalidCell (ErrNotReady
// before any data arrived).
func (e *Engine) SetActiveCell(period, tier int) error {
	k := CellKey{Period: period, Tier: tier}
	if err := e.checkCell(k); err != nil {
		e.ClearActiveCell()
		return err
	}
	if e.hasActive && e.active == k {
		return nil
	}
	e.active, e.hasActive = k, true
	e.updateClock()
	e.requestRedraw()
	return nil
}

// ClearActiveCell removes the selection. The clock keeps running until
// its next tick so the ripple-free frame is drawn.
func (e *Engine) ClearActiveCell() {
	if !e.hasActive {
		return
	}
	e.hasActive = false
	e.requestRedraw()
}

// NotifyCellTouched restarts the fade of a cell whose counts may have
// changed without a full snapshot refresh. Displayed counts are left
// unchanged until the next snapshot, so a cell without data has no
// blob to fade and is ignored.
func (e *Engine) NotifyCellTouched(period, tier int) error {
	k := CellKey{Period: period, Tier: tier}
	if err := e.checkCell(k); err != nil {
		return err
	}
	if _, ok := e.grid.Cell(period, tier); !ok {
		Logger().Debug("glowmap: touched cell has no data", "cell", k)
		return nil
	}
	e.clock.Touch(k, e.opts.now())
	e.updateClock()
	e.requestRedraw()
	return nil
}

// PointerMove updates the hover state from a pointer position in host
// coordinates. scale is the surface pixels per host unit.
func (e *Engine) PointerMove(x, y, scale float64) {
	e.pointer = pointerState{x: x, y: y, scale: scale, inside: true}
	e.refreshHover()
}

// PointerLeave clears the hover state.
func (e *Engine) PointerLeave() {
	e.pointer.inside = false
	e.refreshHover()
}

// HitTest maps a pointer position to a cell using the current layout.
func (e *Engine) HitTest(x, y, scale float64) (CellKey, bool) {
	return e.Layout().HitTest(x, y, scale)
}

// Resize changes the surface size and re-evaluates the hover cell
// against the new layout.
func (e *Engine) Resize(width, height int) {
	if e.width == width && e.height == height {
		return
	}
	e.width, e.height = width, height
	e.refreshHover()
	e.requestRedraw()
}

// Tick advances the animation clock by one frame and requests a redraw.
// It returns whether the clock is still running; the tick that stops the
// clock still redraws so the final frame is the settled one.
func (e *Engine) Tick() bool {
	if !e.clock.Running() {
		return false
	}
	running := e.clock.Tick(e.opts.now(), e.hasActive)
	e.requestRedraw()
	if !running {
		e.notifyAnimation(false)
	}
	return running
}

// Blobs returns the blobs the next frame would draw.
func (e *Engine) Blobs() []Blob {
	return e.compositor.Blobs(e.grid, e.Layout(), fadeAt(e.clock, e.opts.now()))
}

// Render draws one frame onto dc. dc should match the engine size.
func (e *Engine) Render(dc *gg.Context) {
	if e.rendering {
		return
	}
	e.rendering = true
	defer e.finishRender()

	dc.ClearWithColor(e.opts.palette.Background)

	switch {
	case e.loading:
		e.axis.DrawPlaceholder(dc, LoadingMessage)
		return
	case !e.grid.Ready():
		e.axis.DrawPlaceholder(dc, NoDataMessage)
		return
	}

	l := e.Layout()
	if !l.Valid() {
		return
	}

	if err := e.compositor.Render(dc, e.Blobs(), l); err != nil {
		Logger().Warn("glowmap: skipping blob pass", "err", err,
			"width", e.width, "height", e.height)
	}

	var active, hover *CellKey
	if e.hasActive {
		active = &e.active
	}
	if e.hasHover {
		hover = &e.hover
	}
	e.overlay.Draw(dc, l, active, hover, e.clock.Phase())
	e.axis.Draw(dc, l)
}

// finishRender issues a redraw requested while Render was running.
func (e *Engine) finishRender() {
	e.rendering = false
	if e.redrawPending {
		e.redrawPending = false
		e.requestRedraw()
	}
}

func (e *Engine) checkCell(k CellKey) error {
	if !e.grid.Ready() {
		return ErrNotReady
	}
	if !e.grid.Contains(k) {
		return fmt.Errorf("%w: %v (periods %d-%d, tiers %d-%d)", ErrInvalidCell, k,
			e.grid.MinPeriod(), e.grid.MaxPeriod(), MinTier, MaxTier)
	}
	return nil
}

// refreshHover re-runs the hit test on the last pointer position and
// updates the tooltip.
func (e *Engine) refreshHover() {
	var k CellKey
	ok := false
	if e.pointer.inside {
		k, ok = e.HitTest(e.pointer.x, e.pointer.y, e.pointer.scale)
	}
	if ok != e.hasHover || k != e.hover {
		e.hover, e.hasHover = k, ok
		e.requestRedraw()
	}

	text := ""
	if ok {
		c, found := e.grid.Cell(k.Period, k.Tier)
		text = Tooltip(e.opts.printer, k, c, found)
	}
	e.setTooltip(text, ok)
}

func (e *Engine) setTooltip(text string, visible bool) {
	if text == e.tooltip && visible == e.tooltipVisible {
		return
	}
	e.tooltip, e.tooltipVisible = text, visible
	if e.opts.onTooltip != nil {
		e.opts.onTooltip(text, visible)
	}
}

// updateClock starts the clock if an active cell or a fade needs it.
// Stopping happens only in Tick.
func (e *Engine) updateClock() {
	if e.clock.NeedsRunning(e.hasActive) && e.clock.Start() {
		e.notifyAnimation(true)
	}
}

func (e *Engine) notifyAnimation(running bool) {
	if e.opts.onAnimate != nil {
		e.opts.onAnimate(running)
	}
}

func (e *Engine) requestRedraw() {
	if e.rendering {
		e.redrawPending = true
		return
	}
	if e.opts.onRedraw != nil {
		e.opts.onRedraw()
	}
}
