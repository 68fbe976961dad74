package glowmap

import (
	"fmt"
	"strconv"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// Axis and legend constants.
const (
	// PeriodLabelStride labels every n-th period.
	PeriodLabelStride = 5

	// DefaultLabelSize is the label font size in points.
	DefaultLabelSize = 11

	legendGap   = 18.0
	legendWidth = 12.0
	labelGap    = 6.0
)

// Placeholder messages.
const (
	LoadingMessage = "Loading…"
	NoDataMessage  = "No coverage data"
)

// DefaultFace returns a Go Regular face of the given size.
func DefaultFace(size float64) (text.Face, error) {
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("glowmap: loading default font: %w", err)
	}
	return source.Face(size), nil
}

// AxisRenderer draws the static decoration: period and tier labels, the
// grid border and the coverage legend. It never animates.
type AxisRenderer struct {
	palette Palette
	face    text.Face
	stride  int
}

// NewAxisRenderer returns a renderer labelling every stride-th period.
// A nil face disables text but still draws the border and legend bar.
func NewAxisRenderer(palette Palette, face text.Face, stride int) *AxisRenderer {
	if stride <= 0 {
		stride = PeriodLabelStride
	}
	return &AxisRenderer{palette: palette, face: face, stride: stride}
}

// PeriodLabels returns the periods of [minPeriod, maxPeriod] that get a
// label: those divisible by stride, or minPeriod if there are none.
func PeriodLabels(minPeriod, maxPeriod, stride int) []int {
	if stride <= 0 {
		stride = PeriodLabelStride
	}
	var out []int
	for p := minPeriod; p <= maxPeriod; p++ {
		if p%stride == 0 {
			out = append(out, p)
		}
	}
	if len(out) == 0 && maxPeriod >= minPeriod {
		out = append(out, minPeriod)
	}
	return out
}

// Draw renders axes and legend for layout l.
func (a *AxisRenderer) Draw(dc *gg.Context, l Layout) {
	if !l.Valid() {
		return
	}
	g := l.Grid

	border := a.palette.GridLine
	dc.SetRGBA(border.R, border.G, border.B, border.A)
	dc.SetLineWidth(1)
	dc.DrawRectangle(g.X, g.Y, g.W, g.H)
	_ = dc.Stroke()

	a.drawLegend(dc, l)

	if a.face == nil {
		return
	}
	dc.SetFont(a.face)
	a.setLabelColor(dc)

	maxPeriod := l.MinPeriod + l.Columns - 1
	for _, p := range PeriodLabels(l.MinPeriod, maxPeriod, a.stride) {
		x, _ := l.CellCenter(CellKey{Period: p, Tier: MinTier})
		dc.DrawStringAnchored(strconv.Itoa(p), x, g.Y+g.H+labelGap, 0.5, 1)
	}
	for tier := MinTier; tier <= MaxTier; tier++ {
		_, y := l.CellCenter(CellKey{Period: l.MinPeriod, Tier: tier})
		dc.DrawStringAnchored(strconv.Itoa(tier), g.X-labelGap, y, 1, 0.5)
	}
}

// drawLegend draws the vertical coverage scale: no coverage at the
// bottom, full coverage at the top.
func (a *AxisRenderer) drawLegend(dc *gg.Context, l Layout) {
	g := l.Grid
	x := g.X + g.W + legendGap

	ramp := gg.NewLinearGradientBrush(x, g.Y+g.H, x, g.Y)
	for i := 0; i <= 4; i++ {
		t := float64(i) / 4
		ramp.AddColorStop(t, a.palette.Background.Lerp(a.palette.Steady, t))
	}
	dc.SetFillBrush(ramp)
	dc.DrawRectangle(x, g.Y, legendWidth, g.H)
	_ = dc.Fill()

	if a.face == nil {
		return
	}
	dc.SetFont(a.face)
	a.setLabelColor(dc)
	dc.DrawStringAnchored("Full", x+legendWidth+labelGap, g.Y, 0, 1)
	dc.DrawStringAnchored("None", x+legendWidth+labelGap, g.Y+g.H, 0, 0)
}

// DrawPlaceholder centers msg on the surface.
func (a *AxisRenderer) DrawPlaceholder(dc *gg.Context, msg string) {
	if a.face == nil {
		return
	}
	dc.SetFont(a.face)
	a.setLabelColor(dc)
	dc.DrawStringAnchored(msg, float64(dc.Width())/2, float64(dc.Height())/2, 0.5, 0.5)
}

func (a *AxisRenderer) setLabelColor(dc *gg.Context) {
	c := a.palette.Label
	dc.SetRGBA(c.R, c.G, c.B, c.A)
}
