package display

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/koios/paperweather/pkg/models"
)

type fakeSink struct {
	name    string
	initErr error
	showErr error
	calls   []string
}

func (f *fakeSink) Name() string { return f.name }
func (f *fakeSink) Init() error  { f.calls = append(f.calls, "init"); return f.initErr }
func (f *fakeSink) Clear() error { f.calls = append(f.calls, "clear"); return nil }
func (f *fakeSink) Sleep() error { f.calls = append(f.calls, "sleep"); return nil }
func (f *fakeSink) Display(*models.RenderedFrame) error {
	f.calls = append(f.calls, "display")
	return f.showErr
}

func testFrame() *models.RenderedFrame {
	f := models.NewFrame(16, 2)
	f.Black.Ink(0, 0, true)
	f.Red.Ink(1, 0, true)
	f.Red.Ink(9, 1, true)
	return f
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestSimulation_WritesThreeArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewSimulation(dir, zap.NewNop())
	require.NoError(t, s.Init())
	require.NoError(t, s.Display(testFrame()))

	black := decode(t, filepath.Join(dir, BlackFile))
	r, _, _, _ := black.At(0, 0).RGBA()
	assert.Zero(t, r, "inked black pixel is 0")
	r, _, _, _ = black.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	red := decode(t, filepath.Join(dir, RedFile))
	r, _, _, _ = red.At(1, 0).RGBA()
	assert.Zero(t, r)

	preview := decode(t, filepath.Join(dir, PreviewFile))
	assert.Equal(t, image.Rect(0, 0, 16, 2), preview.Bounds())
	for _, tc := range []struct {
		x, y    int
		r, g, b uint32
	}{
		{0, 0, 0, 0, 0},
		{1, 0, 0xffff, 0, 0},
		{2, 0, 0xffff, 0xffff, 0xffff},
		{9, 1, 0xffff, 0, 0},
	} {
		r, g, b, _ := preview.At(tc.x, tc.y).RGBA()
		assert.Equal(t, []uint32{tc.r, tc.g, tc.b}, []uint32{r, g, b}, "pixel (%d,%d)", tc.x, tc.y)
	}
}

func TestSimulation_RejectsDoubleInk(t *testing.T) {
	s := NewSimulation(t.TempDir(), zap.NewNop())
	f := models.NewFrame(2, 2)
	f.Black.Ink(0, 0, true)
	f.Red.Ink(0, 0, true)
	assert.Error(t, s.Display(f))
}

func TestSelect_FallsBack(t *testing.T) {
	hw := &fakeSink{name: "epd", initErr: errors.New("no SPI")}
	sim := &fakeSink{name: "simulation"}

	active, err := Select([]Sink{hw, sim}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, sim, active)
	assert.Equal(t, []string{"init"}, hw.calls)
}

func TestSelect_AllFail(t *testing.T) {
	_, err := Select([]Sink{&fakeSink{name: "a", initErr: errors.New("x")}}, zap.NewNop())
	assert.Error(t, err)

	_, err = Select(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestFanout(t *testing.T) {
	primary := &fakeSink{name: "simulation"}
	mirror := &fakeSink{name: "redis", showErr: errors.New("connection refused")}
	f := NewFanout(primary, []Sink{mirror}, zap.NewNop())

	assert.Equal(t, "simulation", f.Name())
	require.NoError(t, f.Init())
	require.NoError(t, f.Display(testFrame()), "secondary failures are not fatal")
	require.NoError(t, f.Sleep())

	assert.Equal(t, []string{"init", "display", "sleep"}, primary.calls)
	assert.Equal(t, []string{"init", "display", "sleep"}, mirror.calls)

	primary.showErr = errors.New("panel busy")
	assert.Error(t, f.Display(testFrame()))
}

func TestPack(t *testing.T) {
	p := models.NewBitPlane(10, 1)
	p.Ink(0, 0, true)
	p.Ink(9, 0, true)

	// 1 means white on the black RAM; padding bits stay white.
	assert.Equal(t, []byte{0x7f, 0xbf}, Pack(p, false))
	// 1 means ink on the red RAM; padding bits carry no ink.
	assert.Equal(t, []byte{0x80, 0x40}, Pack(p, true))
}
