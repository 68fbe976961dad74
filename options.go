package glowmap

import (
	"time"

	"github.com/gogpu/gg/text"
	"golang.org/x/text/message"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e := glowmap.New(800, 480,
//	    glowmap.WithRedrawFunc(scheduleFrame),
//	    glowmap.WithTooltipFunc(showTooltip),
//	)
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	now       func() time.Time
	palette   Palette
	insets    Insets
	padding   float64
	face      text.Face
	faceSet   bool
	stride    int
	maxPixels int
	printer   *message.Printer

	onRedraw  func()
	onTooltip func(text string, visible bool)
	onAnimate func(running bool)
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{
		now:     time.Now,
		palette: DefaultPalette(),
		insets:  DefaultInsets(),
		padding: 2,
		stride:  PeriodLabelStride,
	}
}

// WithNow sets the wall clock used for fades. Tests use it to simulate
// the passage of time.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPalette sets the engine colors.
func WithPalette(p Palette) Option {
	return func(o *options) {
		o.palette = p
	}
}

// WithInsets sets the margins around the grid, in surface pixels.
func WithInsets(in Insets) Option {
	return func(o *options) {
		o.insets = in
	}
}

// WithPadding sets the gap between cells, in surface pixels.
func WithPadding(px float64) Option {
	return func(o *options) {
		o.padding = px
	}
}

// WithFace sets the label font face. A nil face disables labels.
// Without this option the engine uses Go Regular at DefaultLabelSize.
func WithFace(face text.Face) Option {
	return func(o *options) {
		o.face = face
		o.faceSet = true
	}
}

// WithLabelStride labels every n-th period on the x axis.
func WithLabelStride(n int) Option {
	return func(o *options) {
		o.stride = n
	}
}

// WithMaxBufferPixels bounds the off-screen blob buffer. Frames that
// would need a larger buffer skip the blob pass.
func WithMaxBufferPixels(n int) Option {
	return func(o *options) {
		o.maxPixels = n
	}
}

// WithPrinter sets the printer used to format tooltip numbers.
func WithPrinter(p *message.Printer) Option {
	return func(o *options) {
		o.printer = p
	}
}

// WithRedrawFunc sets the callback invoked when the engine needs a new
// frame. It is never invoked from inside Render.
func WithRedrawFunc(fn func()) Option {
	return func(o *options) {
		o.onRedraw = fn
	}
}

// WithTooltipFunc sets the callback invoked when the tooltip text
// changes. visible is false when the tooltip should be hidden.
func WithTooltipFunc(fn func(text string, visible bool)) Option {
	return func(o *options) {
		o.onTooltip = fn
	}
}

// WithAnimationFunc sets the callback invoked when the animation clock
// starts (true) or stops (false). Hosts use it to run their frame timer
// only while something animates.
func WithAnimationFunc(fn func(running bool)) Option {
	return func(o *options) {
		o.onAnimate = fn
	}
}
