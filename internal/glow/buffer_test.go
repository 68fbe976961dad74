package glow

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gg"
)

func testProfile(alpha float64) Profile {
	brush := gg.NewRadialGradientBrush(0, 0, 0, 10).
		AddColorStop(0, gg.RGBA2(1, 1, 1, alpha)).
		AddColorStop(1, gg.RGBA2(1, 1, 1, 0))
	return NewProfile(brush, 32)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		wantErr   error
	}{
		{"ok", 10, 10, 0, nil},
		{"zero width", 0, 10, 0, ErrInvalidDimensions},
		{"negative height", 10, -1, 0, ErrInvalidDimensions},
		{"over budget", 100, 100, 9999, ErrBufferTooLarge},
		{"exact budget", 100, 100, 10000, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := New(tt.w, tt.h, tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && !buf.SameSize(tt.w, tt.h) {
				t.Errorf("buffer size = %dx%d, want %dx%d", buf.Width(), buf.Height(), tt.w, tt.h)
			}
		})
	}
}

func TestStampScreenCenterAndRim(t *testing.T) {
	buf, _ := New(40, 40, 0)
	buf.StampScreen(20, 20, 10, testProfile(1))

	_, _, _, center := buf.At(19, 19)
	if center < 0.9 {
		t.Errorf("center alpha = %v, want >= 0.9", center)
	}
	_, _, _, outside := buf.At(20, 5)
	if outside != 0 {
		t.Errorf("alpha outside radius = %v, want 0", outside)
	}
}

func TestStampScreenNeverDarkens(t *testing.T) {
	buf, _ := New(40, 40, 0)
	p := testProfile(0.5)
	buf.StampScreen(20, 20, 10, p)
	_, _, _, once := buf.At(20, 20)
	buf.StampScreen(20, 20, 10, p)
	_, _, _, twice := buf.At(20, 20)

	if twice <= once {
		t.Errorf("second stamp alpha = %v, want > %v", twice, once)
	}
	if twice > 1 {
		t.Errorf("screen blend overflowed: %v", twice)
	}
	// 1 - (1-0.5)^2 = 0.75
	if twice < 0.7 || twice > 0.76 {
		t.Errorf("double stamp alpha = %v, want ~0.75", twice)
	}
}

func TestStampOutsideBufferIsClipped(t *testing.T) {
	buf, _ := New(10, 10, 0)
	buf.StampScreen(-50, -50, 10, testProfile(1)) // must not panic
	if e := buf.Energy(); e != 0 {
		t.Errorf("energy = %v, want 0", e)
	}
	buf.StampScreen(0, 0, 5, testProfile(1))
	if e := buf.Energy(); e <= 0 {
		t.Error("partially visible stamp left no energy")
	}
}

func TestNRGBAUnpremultiplies(t *testing.T) {
	buf, _ := New(4, 4, 0)
	pix := buf.Pix()
	i := (1*4 + 2) * 4
	pix[i], pix[i+1], pix[i+2], pix[i+3] = 0.25, 0, 0.5, 0.5

	img := buf.NRGBA(image.Rect(1, 0, 4, 3))
	if img.Bounds() != image.Rect(0, 0, 3, 3) {
		t.Fatalf("bounds = %v, want 3x3 at origin", img.Bounds())
	}
	c := img.NRGBAAt(1, 1)
	if c.R != 128 || c.G != 0 || c.B != 255 || c.A != 128 {
		t.Errorf("pixel = %+v, want {128 0 255 128}", c)
	}
	if c := img.NRGBAAt(0, 0); c.A != 0 {
		t.Errorf("empty pixel alpha = %d, want 0", c.A)
	}
}

func TestClear(t *testing.T) {
	buf, _ := New(8, 8, 0)
	buf.StampScreen(4, 4, 4, testProfile(1))
	buf.Clear()
	if e := buf.Energy(); e != 0 {
		t.Errorf("energy after Clear = %v, want 0", e)
	}
}
