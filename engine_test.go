package glowmap

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gg"
)

// fakeClock is a settable wall clock for fades.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// recorder captures engine callbacks.
type recorder struct {
	redraws  int
	tooltips []string
	visible  bool
	animate  []bool
}

func (r *recorder) options() []Option {
	return []Option{
		WithRedrawFunc(func() { r.redraws++ }),
		WithTooltipFunc(func(text string, visible bool) {
			r.tooltips = append(r.tooltips, text)
			r.visible = visible
		}),
		WithAnimationFunc(func(running bool) { r.animate = append(r.animate, running) }),
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeClock, *recorder) {
	t.Helper()
	clk := &fakeClock{t: epoch}
	rec := &recorder{}
	all := append([]Option{WithFace(nil), WithNow(clk.now)}, rec.options()...)
	return New(400, 300, append(all, opts...)...), clk, rec
}

func snapshotWith(count int64) *Snapshot {
	return &Snapshot{Cells: []Cell{
		{Period: 2020, Tier: 1, TrackedRecords: 50, UntrackedRecords: 20},
		{Period: 2024, Tier: 5, TrackedRecords: count, UntrackedRecords: 4},
	}}
}

func blobFor(t *testing.T, e *Engine, k CellKey) Blob {
	t.Helper()
	for _, b := range e.Blobs() {
		if b.Key == k && !b.Phantom {
			return b
		}
	}
	t.Fatalf("no blob for %v", k)
	return Blob{}
}

func TestEngineRenderScenario(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(scenarioSnapshot())

	b := blobFor(t, e, CellKey{2022, 7})
	if math.Abs(b.Intensity-math.Sqrt(0.5)) > 1e-4 {
		t.Errorf("Intensity = %v, want ~0.7071", b.Intensity)
	}
	if e.Animating() {
		t.Error("clock running with no selection and no fades")
	}

	dc := gg.NewContext(400, 300)
	e.Render(dc)
	x, y := e.Layout().CellCenter(b.Key)
	_, g0, _, _ := dc.Image().At(1, 1).RGBA()
	_, g1, _, _ := dc.Image().At(int(x), int(y)).RGBA()
	if g1 <= g0 {
		t.Error("no glow drawn at (2022, 7)")
	}
}

func TestEngineFadeTrigger(t *testing.T) {
	e, clk, rec := newTestEngine(t)
	k := CellKey{2024, 5}

	e.SetSnapshot(snapshotWith(10))
	if e.Clock().FadeCount() != 0 || e.Animating() {
		t.Fatal("first snapshot started a fade")
	}

	e.SetSnapshot(snapshotWith(15))
	if !e.Clock().Fading(k) {
		t.Fatal("increase did not start a fade")
	}
	if e.Clock().FadeCount() != 1 {
		t.Errorf("FadeCount() = %d, want 1", e.Clock().FadeCount())
	}
	if !e.Animating() || len(rec.animate) != 1 || !rec.animate[0] {
		t.Fatalf("animation callbacks = %v, want [true]", rec.animate)
	}
	if got := blobFor(t, e, k).Color; got != DefaultPalette().Alert {
		t.Errorf("fresh fade color = %v, want alert", got)
	}

	clk.advance(FadeDuration / 2)
	e.Tick()
	mid := blobFor(t, e, k).Color
	want := DefaultPalette().Alert.Lerp(DefaultPalette().Steady, 0.5)
	if math.Abs(mid.R-want.R) > 1e-9 || math.Abs(mid.G-want.G) > 1e-9 {
		t.Errorf("half-way color = %v, want %v", mid, want)
	}

	clk.advance(FadeDuration/2 + time.Millisecond)
	if e.Tick() {
		t.Error("clock still running after the fade expired")
	}
	if e.Clock().Fading(k) {
		t.Error("fade entry survived expiry")
	}
	if got := blobFor(t, e, k).Color; got != DefaultPalette().Steady {
		t.Errorf("settled color = %v, want steady", got)
	}
	if len(rec.animate) != 2 || rec.animate[1] {
		t.Errorf("animation callbacks = %v, want [true false]", rec.animate)
	}
	if e.Tick() {
		t.Error("Tick on a stopped clock reported running")
	}
}

func TestEngineIdempotentSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(snapshotWith(10))
	before := e.Blobs()
	e.SetSnapshot(snapshotWith(10))
	if e.Clock().FadeCount() != 0 {
		t.Error("identical snapshot started a fade")
	}
	after := e.Blobs()
	if len(before) != len(after) {
		t.Fatalf("blob count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("blob %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestEngineActiveCellLifecycle(t *testing.T) {
	e, _, rec := newTestEngine(t)
	e.SetSnapshot(snapshotWith(10))

	if err := e.SetActiveCell(2022, 3); err != nil {
		t.Fatalf("SetActiveCell: %v", err)
	}
	if !e.Animating() {
		t.Fatal("selection did not start the clock")
	}
	if err := e.SetActiveCell(2023, 4); err != nil {
		t.Fatal(err)
	}
	if len(rec.animate) != 1 {
		t.Errorf("animation started %d times, want once", len(rec.animate))
	}

	for i := 0; i < 5; i++ {
		if !e.Tick() {
			t.Fatal("clock stopped with an active cell")
		}
	}
	if e.Clock().Phase() != 5*PhaseStep {
		t.Errorf("Phase() = %v, want %v", e.Clock().Phase(), 5*PhaseStep)
	}

	e.ClearActiveCell()
	if !e.Animating() {
		t.Error("clock stopped before the next tick")
	}
	redraws := rec.redraws
	if e.Tick() {
		t.Error("clock still running without selection or fades")
	}
	if rec.redraws != redraws+1 {
		t.Error("stopping tick did not request the final redraw")
	}
}

func TestEngineInvalidActiveCell(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.SetActiveCell(2020, 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("before data: err = %v, want ErrNotReady", err)
	}

	e.SetSnapshot(snapshotWith(10))
	if err := e.SetActiveCell(2022, 3); err != nil {
		t.Fatal(err)
	}
	tests := []struct{ period, tier int }{
		{2019, 5}, {2025, 5}, {2022, 0}, {2022, 11},
	}
	for _, tt := range tests {
		err := e.SetActiveCell(tt.period, tt.tier)
		if !errors.Is(err, ErrInvalidCell) {
			t.Errorf("SetActiveCell(%d, %d) = %v, want ErrInvalidCell", tt.period, tt.tier, err)
		}
		if _, ok := e.ActiveCell(); ok {
			t.Errorf("SetActiveCell(%d, %d) left a selection", tt.period, tt.tier)
		}
	}
}

func TestEngineSnapshotDropsStaleSelection(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(snapshotWith(10))
	if err := e.SetActiveCell(2024, 5); err != nil {
		t.Fatal(err)
	}
	e.SetSnapshot(&Snapshot{Cells: []Cell{{Period: 2020, Tier: 1, TrackedRecords: 1}}})
	if _, ok := e.ActiveCell(); ok {
		t.Error("selection outside the new grid survived")
	}
}

func TestEngineNotifyCellTouched(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.NotifyCellTouched(2024, 5); !errors.Is(err, ErrNotReady) {
		t.Errorf("before data: err = %v, want ErrNotReady", err)
	}

	e.SetSnapshot(snapshotWith(10))
	if err := e.NotifyCellTouched(2024, 5); err != nil {
		t.Fatal(err)
	}
	if !e.Clock().Fading(CellKey{2024, 5}) || !e.Animating() {
		t.Error("touch did not start a fade")
	}
	if c, _ := e.Grid().Cell(2024, 5); c.TrackedRecords != 10 {
		t.Errorf("touch changed counts: %d", c.TrackedRecords)
	}
	if err := e.NotifyCellTouched(2030, 5); !errors.Is(err, ErrInvalidCell) {
		t.Errorf("out of range: err = %v, want ErrInvalidCell", err)
	}
}

func TestEngineNotifyCellTouchedWithoutData(t *testing.T) {
	e, _, rec := newTestEngine(t)
	e.SetSnapshot(snapshotWith(10))
	redraws := rec.redraws

	// (2022, 3) lies inside the axes but the snapshot has no cell there.
	if err := e.NotifyCellTouched(2022, 3); err != nil {
		t.Fatal(err)
	}
	if e.Clock().Fading(CellKey{2022, 3}) {
		t.Error("empty cell started a fade")
	}
	if e.Animating() {
		t.Error("clock running with nothing to animate")
	}
	if rec.redraws != redraws {
		t.Errorf("redraws = %d, want %d", rec.redraws, redraws)
	}
}

func TestEngineHoverTooltip(t *testing.T) {
	e, _, rec := newTestEngine(t)
	e.SetSnapshot(snapshotWith(10))

	x, y := e.Layout().CellCenter(CellKey{2024, 5})
	e.PointerMove(x, y, 1)
	text, visible := e.Tooltip()
	if !visible || !strings.HasPrefix(text, "2024 · Tier 5\n") {
		t.Fatalf("tooltip = %q, %v", text, visible)
	}
	if k, ok := e.HoverCell(); !ok || k != (CellKey{2024, 5}) {
		t.Errorf("HoverCell() = %v, %v", k, ok)
	}

	n := len(rec.tooltips)
	e.PointerMove(x+1, y, 1)
	if len(rec.tooltips) != n {
		t.Error("tooltip callback fired for an unchanged cell")
	}

	ex, ey := e.Layout().CellCenter(CellKey{2022, 2})
	e.PointerMove(ex, ey, 1)
	if text, _ := e.Tooltip(); !strings.HasSuffix(text, "No data") {
		t.Errorf("empty cell tooltip = %q", text)
	}

	e.PointerLeave()
	if _, visible := e.Tooltip(); visible || rec.visible {
		t.Error("tooltip visible after pointer left")
	}
	if _, ok := e.HoverCell(); ok {
		t.Error("hover survived pointer leave")
	}
}

func TestEngineResizeRefreshesHover(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(snapshotWith(10))

	x, y := e.Layout().CellCenter(CellKey{2024, 1})
	e.PointerMove(x, y, 1)
	if _, ok := e.HoverCell(); !ok {
		t.Fatal("no hover before resize")
	}

	e.Resize(200, 150)
	if w, h := e.Size(); w != 200 || h != 150 {
		t.Errorf("Size() = %dx%d", w, h)
	}
	if k, ok := e.HitTest(x, y, 1); ok {
		t.Fatalf("test point still inside grid after resize: %v", k)
	}
	if _, ok := e.HoverCell(); ok {
		t.Error("hover kept the pre-resize cell")
	}
	if _, visible := e.Tooltip(); visible {
		t.Error("tooltip visible after the pointer fell outside the grid")
	}
}

func TestEnginePlaceholders(t *testing.T) {
	face, err := DefaultFace(DefaultLabelSize)
	if err != nil {
		t.Skipf("no default face: %v", err)
	}
	e := New(400, 300, WithFace(face))
	dc := gg.NewContext(400, 300)

	e.SetLoading(true)
	if !e.Loading() {
		t.Fatal("Loading() = false")
	}
	e.Render(dc)
	if !hasNonBackground(dc, DefaultPalette().Background) {
		t.Error("loading placeholder not drawn")
	}

	e.SetLoading(false)
	e.Render(dc)
	if !hasNonBackground(dc, DefaultPalette().Background) {
		t.Error("no-data placeholder not drawn")
	}
	if len(e.Blobs()) != 0 {
		t.Error("blobs without data")
	}
}

func TestEngineLoadingHidesGrid(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(scenarioSnapshot())
	e.SetLoading(true)

	dc := gg.NewContext(400, 300)
	e.Render(dc)
	if hasNonBackground(dc, DefaultPalette().Background) {
		t.Error("grid drawn while loading (labels disabled, so nothing should show)")
	}
}

func TestEngineBufferFailureIsSoft(t *testing.T) {
	var logs bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer SetLogger(nil)

	e, _, _ := newTestEngine(t, WithMaxBufferPixels(100))
	e.SetSnapshot(scenarioSnapshot())
	if err := e.SetActiveCell(2022, 7); err != nil {
		t.Fatal(err)
	}

	dc := gg.NewContext(400, 300)
	e.Render(dc)
	if !strings.Contains(logs.String(), "skipping blob pass") {
		t.Errorf("no warning logged: %q", logs.String())
	}
	// Overlay and axes still render.
	if !hasNonBackground(dc, DefaultPalette().Background) {
		t.Error("nothing drawn after buffer failure")
	}
}

func TestEngineRedrawDuringRender(t *testing.T) {
	var e *Engine
	renders := 0
	dc := gg.NewContext(400, 300)
	e = New(400, 300, WithFace(nil), WithRedrawFunc(func() {
		renders++
		if renders < 5 {
			e.Render(dc)
		}
	}))
	e.SetSnapshot(scenarioSnapshot())
	if renders == 0 {
		t.Error("redraw callback never fired")
	}
}

func TestEngineNotReadyRender(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(&Snapshot{})
	dc := gg.NewContext(400, 300)
	e.Render(dc)
	if e.Layout().Valid() {
		t.Error("layout valid without data")
	}
	if _, ok := e.HitTest(100, 100, 1); ok {
		t.Error("hit test succeeded without data")
	}
}

// hasNonBackground reports whether any pixel of dc differs from bg.
func hasNonBackground(dc *gg.Context, bg gg.RGBA) bool {
	img := dc.Image()
	want := gg.NewContext(1, 1)
	want.ClearWithColor(bg)
	r0, g0, b0, _ := want.Image().At(0, 0).RGBA()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != r0 || g != g0 || bl != b0 {
				return true
			}
		}
	}
	return false
}
