package export

import (
	"bytes"
	"errors"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/eyes"
)

func checker() *canvas.Frame {
	f := canvas.New(3, 2)
	f.SetPixel(0, 0, 255)
	f.SetPixel(2, 1, 128)
	return f
}

func TestScale(t *testing.T) {
	src := checker()
	dst := Scale(src.Gray, 4)
	require.Equal(t, 12, dst.Bounds().Dx())
	require.Equal(t, 8, dst.Bounds().Dy())

	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			assert.Equal(t, src.Pixel(x/4, y/4), dst.GrayAt(x, y).Y, "(%d,%d)", x, y)
		}
	}
	assert.Same(t, src.Gray, Scale(src.Gray, 1))
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, checker(), 2))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	r, _, _, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "eyes.png")
	f := eyes.New(128, 64).DrawEyes(0)
	require.NoError(t, SavePNG(path, f, 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestWriteGIF(t *testing.T) {
	e := eyes.New(64, 32, eyes.WithConfig(eyes.Config{EyeWidth: 16, EyeHeight: 16, BorderRadius: 4, SpaceBetween: 4}))
	var frames []*canvas.Frame
	e.Blink()
	for i := 0; i < 5; i++ {
		frames = append(frames, e.DrawEyes(time.Duration(i)*33*time.Millisecond))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGIF(&buf, frames, 33*time.Millisecond, 2))
	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Len(t, g.Image, 5)
	assert.Equal(t, 3, g.Delay[0])
	assert.Equal(t, 128, g.Image[0].Bounds().Dx())

	assert.Error(t, WriteGIF(&buf, nil, time.Second, 1))
}

func TestRawRoundTrip(t *testing.T) {
	f := eyes.New(128, 64).DrawEyes(0)
	data := MarshalRaw(f)
	require.Len(t, data, RawHeaderSize+128*64)
	assert.Equal(t, []byte{0, 128, 0, 64}, data[:4])

	got, err := UnmarshalRaw(data)
	require.NoError(t, err)
	assert.True(t, canvas.Equal(f, got))
}

func TestUnmarshalRaw_Short(t *testing.T) {
	_, err := UnmarshalRaw([]byte{0, 1})
	assert.True(t, errors.Is(err, ErrShortFrame))

	_, err = UnmarshalRaw([]byte{0, 2, 0, 2, 1, 2, 3})
	assert.True(t, errors.Is(err, ErrShortFrame))
}
