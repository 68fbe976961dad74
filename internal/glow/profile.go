package glow

import "github.com/gogpu/gg"

// DefaultProfileSamples is the number of radial samples taken from a
// gradient brush when building a Profile.
const DefaultProfileSamples = 64

// Profile is a radial color ramp sampled from center (index 0) to rim
// (last index). Colors are premultiplied.
type Profile []premul

type premul struct {
	r, g, b, a float32
}

// NewProfile samples brush along its radius. The brush is evaluated on
// the horizontal ray from its center, so only its color stops and radii
// matter. samples < 2 selects DefaultProfileSamples.
func NewProfile(brush *gg.RadialGradientBrush, samples int) Profile {
	if samples < 2 {
		samples = DefaultProfileSamples
	}
	p := make(Profile, samples)
	cx, cy := brush.Center.X, brush.Center.Y
	for i := range p {
		t := float64(i) / float64(samples-1)
		c := brush.ColorAt(cx+t*brush.EndRadius, cy).Premultiply()
		p[i] = premul{r: float32(c.R), g: float32(c.G), b: float32(c.B), a: float32(c.A)}
	}
	return p
}

// at linearly interpolates the profile at normalized distance d in [0, 1).
func (p Profile) at(d float64) (r, g, b, a float32) {
	pos := d * float64(len(p)-1)
	i := int(pos)
	if i >= len(p)-1 {
		last := p[len(p)-1]
		return last.r, last.g, last.b, last.a
	}
	f := float32(pos - float64(i))
	c0, c1 := p[i], p[i+1]
	return c0.r + (c1.r-c0.r)*f,
		c0.g + (c1.g-c0.g)*f,
		c0.b + (c1.b-c0.b)*f,
		c0.a + (c1.a-c0.a)*f
}

// Center returns the premultiplied alpha at the profile's center.
func (p Profile) Center() float32 {
	if len(p) == 0 {
		return 0
	}
	return p[0].a
}
