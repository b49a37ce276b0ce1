// Package export writes rendered frames to PNG, animated GIF and the raw
// wire format used by the stream server.
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/normanking/roboeyes/internal/canvas"
)

// RawHeaderSize is the size of the width/height prefix of a raw frame.
const RawHeaderSize = 4

var ErrShortFrame = errors.New("raw frame too short")

// Scale returns img enlarged by an integer factor with hard pixel edges.
// A factor of 1 or less returns img unchanged.
func Scale(img *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WritePNG encodes f, upscaled by scale, as a grayscale PNG.
func WritePNG(w io.Writer, f *canvas.Frame, scale int) error {
	if err := png.Encode(w, Scale(f.Gray, scale)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG writes f to path, creating parent directories.
func SavePNG(path string, f *canvas.Frame, scale int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return WritePNG(out, f, scale)
}

var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// WriteGIF encodes frames as a looping animation with a fixed delay.
func WriteGIF(w io.Writer, frames []*canvas.Frame, delay time.Duration, scale int) error {
	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}
	cs := max(int(delay/(10*time.Millisecond)), 1)

	anim := &gif.GIF{}
	for _, f := range frames {
		src := Scale(f.Gray, scale)
		pal := image.NewPaletted(src.Bounds(), grayPalette)
		draw.Draw(pal, pal.Bounds(), src, src.Bounds().Min, draw.Src)
		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, cs)
	}
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("failed to encode gif: %w", err)
	}
	return nil
}

// SaveGIF writes an animation to path, creating parent directories.
func SaveGIF(path string, frames []*canvas.Frame, delay time.Duration, scale int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return WriteGIF(out, frames, delay, scale)
}

// MarshalRaw encodes f as a big-endian uint16 width and height followed by
// one byte per pixel, row-major.
func MarshalRaw(f *canvas.Frame) []byte {
	w, h := f.Width(), f.Height()
	buf := make([]byte, RawHeaderSize, RawHeaderSize+w*h)
	binary.BigEndian.PutUint16(buf[0:2], uint16(w))
	binary.BigEndian.PutUint16(buf[2:4], uint16(h))
	return append(buf, f.Bytes()...)
}

// UnmarshalRaw decodes a frame produced by MarshalRaw.
func UnmarshalRaw(data []byte) (*canvas.Frame, error) {
	if len(data) < RawHeaderSize {
		return nil, fmt.Errorf("%d bytes: %w", len(data), ErrShortFrame)
	}
	w := int(binary.BigEndian.Uint16(data[0:2]))
	h := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data)-RawHeaderSize < w*h {
		return nil, fmt.Errorf("%dx%d needs %d pixel bytes, got %d: %w", w, h, w*h, len(data)-RawHeaderSize, ErrShortFrame)
	}
	f := canvas.New(w, h)
	copy(f.Pix, data[RawHeaderSize:RawHeaderSize+w*h])
	return f, nil
}
