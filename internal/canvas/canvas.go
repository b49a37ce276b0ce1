// Package canvas defines the grayscale drawing surface the eye renderer writes into.
package canvas

import "image"

// Gray values used when no explicit palette is configured
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// Canvas is a mutable 8-bit grayscale surface with fixed dimensions.
// Out-of-range reads return 0 and out-of-range writes are ignored.
type Canvas interface {
	Width() int
	Height() int
	Pixel(x, y int) uint8
	SetPixel(x, y int, v uint8)
}

// Filler is implemented by canvases that can clear themselves faster than
// pixel-by-pixel writes.
type Filler interface {
	Fill(v uint8)
}

// Frame is the default Canvas, backed by an image.Gray so it can be handed
// straight to image encoders.
type Frame struct {
	*image.Gray
}

// New allocates a frame filled with the background value.
func New(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{Gray: image.NewGray(image.Rect(0, 0, width, height))}
}

// FromGray wraps an existing image. The image bounds must start at the origin.
func FromGray(img *image.Gray) *Frame {
	return &Frame{Gray: img}
}

func (f *Frame) Width() int  { return f.Rect.Dx() }
func (f *Frame) Height() int { return f.Rect.Dy() }

func (f *Frame) Pixel(x, y int) uint8 {
	if !f.inBounds(x, y) {
		return 0
	}
	return f.Pix[f.offset(x, y)]
}

func (f *Frame) SetPixel(x, y int, v uint8) {
	if !f.inBounds(x, y) {
		return
	}
	f.Pix[f.offset(x, y)] = v
}

// Fill sets every pixel to v.
func (f *Frame) Fill(v uint8) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cp := image.NewGray(f.Rect)
	copy(cp.Pix, f.Pix)
	return &Frame{Gray: cp}
}

// Bytes returns the pixel rows packed without stride padding.
func (f *Frame) Bytes() []byte {
	w, h := f.Width(), f.Height()
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		off := f.PixOffset(f.Rect.Min.X, f.Rect.Min.Y+y)
		out = append(out, f.Pix[off:off+w]...)
	}
	return out
}

// Count returns how many pixels equal v.
func (f *Frame) Count(v uint8) int {
	n := 0
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			if f.Pixel(x, y) == v {
				n++
			}
		}
	}
	return n
}

func (f *Frame) offset(x, y int) int {
	return f.PixOffset(f.Rect.Min.X+x, f.Rect.Min.Y+y)
}

func (f *Frame) inBounds(x, y int) bool {
	return image.Pt(f.Rect.Min.X+x, f.Rect.Min.Y+y).In(f.Rect)
}

// Clear fills c with v, using Filler when the canvas supports it.
func Clear(c Canvas, v uint8) {
	if fl, ok := c.(Filler); ok {
		fl.Fill(v)
		return
	}
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			c.SetPixel(x, y, v)
		}
	}
}

// Equal reports whether two canvases have the same size and pixels.
func Equal(a, b Canvas) bool {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return false
	}
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < a.Width(); x++ {
			if a.Pixel(x, y) != b.Pixel(x, y) {
				return false
			}
		}
	}
	return true
}
