package main

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/eink"
)

func main() {
	app := cli.NewApp()

	app.Name = "paperweather"
	app.Usage = "Weather dashboard for black/red e-paper panels"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"PAPERWEATHER_CONFIG"},
			Value:   "config.yaml",
			Usage:   "path to the YAML configuration file",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "Fetch weather data, render a frame and show it",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "loop",
					Usage: "keep refreshing every refresh interval",
				},
			},
			Action: runAction,
		},
		{
			Name:      "convert",
			Usage:     "Convert images to the black/red/white palette",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: "red-hue-min", Value: 0, Usage: "lower bound of the red hue range in degrees"},
				&cli.Float64Flag{Name: "red-hue-max", Value: 30, Usage: "upper bound of the red hue range in degrees, may exceed 360"},
				&cli.Float64Flag{Name: "red-sat", Value: 50, Usage: "minimum saturation (0-255) for red"},
				&cli.IntFlag{Name: "dark-threshold", Value: 128, Usage: "luminance below which pixels become black"},
				&cli.IntFlag{Name: "outline-width", Value: 2, Usage: "outline width around light content in pixels"},
				&cli.BoolFlag{Name: "no-anti-alias", Usage: "classify at the original resolution"},
				&cli.StringFlag{Name: "out-dir", Value: "converted", Usage: "directory for converted images"},
				&cli.StringFlag{Name: "preview", Usage: "write a preview grid of the results to this file"},
			},
			Action: convertAction,
		},
		{
			Name:  "moon",
			Usage: "Draw the moon disc for a given age",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: "age", Required: true, Usage: "days since new moon"},
				&cli.IntFlag{Name: "size", Value: 100, Usage: "output side in pixels"},
				&cli.StringFlag{Name: "out", Value: "moon.png", Usage: "output file"},
			},
			Action: moonAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func convertAction(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger, err := newLogger("info")
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()

	opts := eink.DefaultOptions()
	opts.RedHueMin = c.Float64("red-hue-min")
	opts.RedHueMax = c.Float64("red-hue-max")
	opts.RedSaturationMin = c.Float64("red-sat")
	opts.DarkThreshold = c.Int("dark-threshold")
	opts.OutlineWidth = c.Int("outline-width")
	opts.AntiAlias = !c.Bool("no-anti-alias")
	converter := eink.NewConverter(opts)

	outDir := c.String("out-dir")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return cli.Exit(fmt.Errorf("failed to create output dir: %w", err), 1)
	}

	var results []image.Image
	failed := 0
	for _, in := range c.Args().Slice() {
		name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out := filepath.Join(outDir, name+"_eink.png")

		img, err := converter.ConvertFile(in, out)
		if err != nil {
			logger.Error("Failed to convert image", zap.String("input", in), zap.Error(err))
			failed++
			continue
		}
		logger.Info("Converted image", zap.String("input", in), zap.String("output", out))
		results = append(results, img)
	}

	if preview := c.String("preview"); preview != "" && len(results) > 0 {
		if err := eink.WritePNG(preview, eink.PreviewGrid(results)); err != nil {
			return cli.Exit(err, 1)
		}
		logger.Info("Wrote preview grid", zap.String("path", preview), zap.Int("images", len(results)))
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d images failed", failed, c.NArg()), 1)
	}
	return nil
}

func moonAction(c *cli.Context) error {
	logger, err := newLogger("info")
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()

	disc := eink.MoonDisc(c.Float64("age"), c.Int("size"))
	if err := eink.WritePNG(c.String("out"), disc); err != nil {
		return cli.Exit(err, 1)
	}
	logger.Info("Wrote moon disc",
		zap.String("path", c.String("out")),
		zap.Float64("age", c.Float64("age")),
		zap.Float64("illumination", eink.Illumination(disc)))
	return nil
}
