package pixlet

import (
	"fmt"
	"image"
	"strings"

	"go.starlark.net/starlark"

	"github.com/koios/paperweather/internal/render"
)

// Placement is an image passed to the document through the applet config.
type Placement struct {
	Key  string
	At   image.Point
	Size int
}

var fontFor = map[render.Role]string{
	render.Small:  "terminus-16",
	render.Medium: "terminus-24",
	render.Large:  "terminus-32",
	render.Huge:   "terminus-32",
}

const (
	colorBlack = "#000000"
	colorRed   = "#ff0000"
	colorWhite = "#ffffff"
)

// Script generates the Starlark document for content. Every element is
// absolutely positioned on a white canvas of the layout's size.
func Script(content render.Content, l render.Layout, images []Placement) []byte {
	var els []string

	text := func(s string, role render.Role, at image.Point, color string) {
		if s == "" {
			return
		}
		els = append(els, fmt.Sprintf(
			"render.Padding(pad = (%d, %d, 0, 0), child = render.Text(content = %s, font = %s, color = %s))",
			at.X, at.Y, quote(s), quote(fontFor[role]), quote(color)))
	}

	text(content.Date, render.Medium, l.Date(), colorBlack)
	text(content.Time, render.Large, l.Time(), colorBlack)
	text(content.Temperature, render.Huge, l.Temperature(), colorBlack)
	text(content.Description, render.Medium, l.Description(), colorBlack)

	text(content.SunriseLabel, render.Small, l.SunriseLabel(), colorBlack)
	text(content.Sunrise, render.Medium, l.Sunrise(), colorBlack)
	text(content.SunsetLabel, render.Small, l.SunsetLabel(), colorBlack)
	text(content.Sunset, render.Medium, l.Sunset(), colorBlack)
	text(content.MoonLabel, render.Small, l.MoonLabel(), colorBlack)

	for i, line := range content.Stats {
		text(line, render.Medium, l.Stat(i), colorBlack)
	}

	from, to, width := l.Separator()
	thickness := max(1, int(width+0.5))
	els = append(els, fmt.Sprintf(
		"render.Padding(pad = (%d, %d, 0, 0), child = render.Box(width = %d, height = %d, color = %s))",
		from.X, from.Y-thickness/2, to.X-from.X, thickness, quote(colorBlack)))

	for i, col := range content.Forecast {
		text(col.Day, render.Medium, l.ForecastDay(i), colorBlack)
		text(col.Max, render.Medium, l.ForecastMax(i), colorRed)
		text(col.Min, render.Medium, l.ForecastMin(i), colorBlack)
	}

	for _, img := range images {
		els = append(els, fmt.Sprintf(
			"render.Padding(pad = (%d, %d, 0, 0), child = render.Image(src = base64.decode(config.get(%s)), width = %d, height = %d))",
			img.At.X, img.At.Y, quote(img.Key), img.Size, img.Size))
	}

	var b strings.Builder
	b.WriteString("load(\"render.star\", \"render\")\n")
	b.WriteString("load(\"encoding/base64.star\", \"base64\")\n\n")
	b.WriteString("def main(config):\n")
	b.WriteString("    return render.Root(\n")
	b.WriteString("        child = render.Stack(children = [\n")
	fmt.Fprintf(&b, "            render.Box(width = %d, height = %d, color = %s),\n", l.Width, l.Height, quote(colorWhite))
	for _, el := range els {
		b.WriteString("            ")
		b.WriteString(el)
		b.WriteString(",\n")
	}
	b.WriteString("        ]),\n")
	b.WriteString("    )\n")
	return []byte(b.String())
}

// quote renders s as a Starlark string literal.
func quote(s string) string {
	return starlark.String(s).String()
}
