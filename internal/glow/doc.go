// Package glow provides the off-screen compositing buffer used by the
// glowmap blob pass.
//
// The buffer stores premultiplied RGBA as float32 so that hundreds of
// faint, overlapping blobs can be accumulated with the screen blend mode
// without 8-bit banding. It is converted to an image.NRGBA only once per
// frame, after blurring.
package glow
