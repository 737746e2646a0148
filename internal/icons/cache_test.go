package icons

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/eink"
)

func iconPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	draw.Draw(img, image.Rect(10, 10, 30, 30), &image.Uniform{color.RGBA{255, 0, 0, 255}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, 10, 40), &image.Uniform{color.Black}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type iconServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newIconServer(t *testing.T, status int) *iconServer {
	t.Helper()
	body := iconPNG(t)
	s := &iconServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != "/10d@4x.png" || status != http.StatusOK {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestCache(t *testing.T, baseURL string, pipeline Pipeline) *Cache {
	t.Helper()
	return NewCache(t.TempDir(), NewHTTPSource(baseURL, 0), eink.NewConverter(eink.DefaultOptions()), pipeline, zap.NewNop())
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResolve_CachesPermanently(t *testing.T) {
	srv := newIconServer(t, http.StatusOK)
	cache := newTestCache(t, srv.URL, PipelinePalette)
	ctx := context.Background()

	first, err := cache.Resolve(ctx, "10d", 60)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, image.Rect(0, 0, 60, 60), first.Bounds())
	assert.FileExists(t, cache.Path("10d", 60))
	assert.FileExists(t, cache.RawPath("10d"))

	second, err := cache.Resolve(ctx, "10d", 60)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load(), "second resolve must not hit the network")
	assert.Equal(t, encode(t, first), encode(t, second))

	onDisk, err := os.ReadFile(cache.Path("10d", 60))
	require.NoError(t, err)
	assert.Equal(t, encode(t, first), encode(t, mustDecode(t, onDisk)))
}

func TestResolve_NewSizeReusesRawArtwork(t *testing.T) {
	srv := newIconServer(t, http.StatusOK)
	cache := newTestCache(t, srv.URL, PipelinePalette)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, "10d", 150)
	require.NoError(t, err)
	_, err = cache.Resolve(ctx, "10d", 60)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestResolve_SourceFailures(t *testing.T) {
	srv := newIconServer(t, http.StatusNotFound)
	cache := newTestCache(t, srv.URL, PipelinePalette)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, "10d", 60)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.NoFileExists(t, cache.Path("10d", 60))

	// Failures are not cached; the next cycle tries again.
	_, err = cache.Resolve(ctx, "10d", 60)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, int32(2), srv.hits.Load())

	srv.Close()
	_, err = cache.Resolve(ctx, "10d", 60)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestResolve_InvalidCode(t *testing.T) {
	srv := newIconServer(t, http.StatusOK)
	cache := newTestCache(t, srv.URL, PipelinePalette)

	for _, code := range []string{"", "../etc", "a/b"} {
		_, err := cache.Resolve(context.Background(), code, 60)
		assert.True(t, errors.Is(err, ErrUnavailable), "code %q", code)
	}
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestResolve_ThresholdPipeline(t *testing.T) {
	srv := newIconServer(t, http.StatusOK)
	cache := newTestCache(t, srv.URL, PipelineThreshold)

	img, err := cache.Resolve(context.Background(), "10d", 40)
	require.NoError(t, err)
	assert.Contains(t, cache.Path("10d", 40), ".mono.png")

	gray, ok := img.(*image.Gray)
	require.True(t, ok, "threshold output is grayscale, got %T", img)
	for _, v := range gray.Pix {
		assert.Contains(t, []uint8{0, 255}, v)
	}
	// Black left bar stays black, transparent background becomes white.
	assert.Equal(t, uint8(0), gray.GrayAt(2, 20).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(35, 2).Y)
}

func TestThreshold(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{10, 10, 10, 255})
	src.SetNRGBA(1, 0, color.NRGBA{200, 200, 200, 255})
	src.SetNRGBA(2, 0, color.NRGBA{0, 0, 0, 0})

	out := Threshold(src, 128)
	assert.Equal(t, []uint8{0, 255, 255}, out.Pix)
}

func TestHTTPSource_URL(t *testing.T) {
	s := NewHTTPSource("https://openweathermap.org/img/wn/", 1)
	assert.Equal(t, "https://openweathermap.org/img/wn/01d@4x.png", s.URL("01d"))
}

func mustDecode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}
