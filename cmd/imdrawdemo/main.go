// Command imdrawdemo renders a YAML scene with imdraw on the CPU device and
// writes the frame as a PNG.
//
//	imdrawdemo --scene scene.yaml --out frame.png --capture frame.imdc
package main

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/imdraw"
	"github.com/gogpu/imdraw/capture"
	"github.com/gogpu/imdraw/command"
	"github.com/gogpu/imdraw/device/soft"
)

const (
	defaultWidth  = 640
	defaultHeight = 480
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		scenePath   string
		outPath     string
		capturePath string
		logFile     string
		logLevel    string
		width       int
		height      int
		dump        bool
		showHelp    bool
	)
	pflag.StringVarP(&scenePath, "scene", "s", "", "Scene description (YAML)")
	pflag.StringVarP(&outPath, "out", "o", "frame.png", "Output PNG file")
	pflag.IntVarP(&width, "width", "w", defaultWidth, "Frame width in pixels (overrides the scene)")
	pflag.IntVarP(&height, "height", "H", defaultHeight, "Frame height in pixels (overrides the scene)")
	pflag.StringVarP(&capturePath, "capture", "c", "", "Also write the recorded command stream to this file")
	pflag.BoolVar(&dump, "dump", false, "Print a listing of the recorded commands")
	pflag.StringVar(&logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	pflag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show help message")
	pflag.Parse()

	if showHelp {
		printHelp(os.Stdout)
		return 0
	}
	if scenePath == "" || pflag.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Error: --scene is required and no arguments are accepted")
		printHelp(os.Stderr)
		return 2
	}

	logger, closeLog, err := newLogger(logFile, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer closeLog()
	imdraw.SetLogger(logger)

	scene, err := LoadScene(scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		return 1
	}
	if !pflag.CommandLine.Changed("width") && scene.Width > 0 {
		width = scene.Width
	}
	if !pflag.CommandLine.Changed("height") && scene.Height > 0 {
		height = scene.Height
	}
	if width <= 0 || height <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid frame size %dx%d\n", width, height)
		return 2
	}

	res, err := render(scene, width, height, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		return 1
	}

	if err := writePNG(outPath, res.image); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		return 1
	}
	if capturePath != "" {
		if err := writeCapture(capturePath, res.frame); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing capture: %v\n", err)
			return 1
		}
	}
	if dump {
		if err := res.frame.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	fmt.Printf("%s: %dx%d, %s\n", outPath, width, height, res.stats)
	fmt.Printf("pool: %+v\n", res.pool)
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: imdrawdemo --scene scene.yaml [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	pflag.CommandLine.SetOutput(w)
	pflag.PrintDefaults()
}

// newLogger returns a text logger at level writing to stderr, or to a
// rotating file when path is set.
func newLogger(path, level string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", level)
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    32, // MB
			MaxBackups: 1,
		}
		w = lj
		closeFn = func() { lj.Close() }
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h), closeFn, nil
}

type result struct {
	image *image.RGBA
	frame *capture.Frame
	stats command.Stats
	pool  imdraw.PoolStats
}

// render draws scene into a width x height frame on the CPU device.
func render(scene *Scene, width, height int, logger *slog.Logger) (*result, error) {
	bg, err := parseColor(scene.Background)
	if err != nil {
		return nil, err
	}
	if scene.Background == "" {
		bg = imdraw.Transparent
	}
	dev := soft.New(soft.WithSize(width, height), soft.WithLogger(logger))
	draw.Draw(dev.Image(), dev.Image().Bounds(), image.NewUniform(bg.NRGBA()), image.Point{}, draw.Src)

	opts := []imdraw.Option{
		imdraw.WithViewport(float32(width), float32(height)),
		imdraw.WithWhiteTexture(dev.WhiteTexture(), imdraw.Vec2{}),
		imdraw.WithLogger(logger),
	}
	if aa := scene.AntiAliasing; aa != nil {
		opts = append(opts, imdraw.WithAntiAliasing(aa.Lines, aa.Fill))
	}
	dc, err := imdraw.NewDrawContext(dev, opts...)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	textures, err := scene.loadTextures(dev)
	if err != nil {
		return nil, err
	}
	scene.Draw(dc, textures)

	st, err := dc.Render(dev)
	if err != nil {
		return nil, err
	}
	frame, err := capture.Record(dc.Stream())
	if err != nil {
		return nil, err
	}
	return &result{image: dev.Image(), frame: frame, stats: st, pool: dc.PoolStats()}, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCapture(path string, frame *capture.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := capture.Write(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
