package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-gl/demo"
	"github.com/wippyai/wasm-gl/engine"
	"github.com/wippyai/wasm-gl/frame"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/gl/soft"
	"github.com/wippyai/wasm-gl/present"
	"github.com/wippyai/wasm-gl/runtime"
)

type config struct {
	wasmFile    string
	demo        bool
	frames      uint64
	framesSet   bool
	tps         int
	window      bool
	interactive bool
	pngOut      string
	width       int
	height      int
	logLevel    string
	wasi        bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.wasmFile, "wasm", "", "Path to core wasm module")
	flag.BoolVar(&cfg.demo, "demo", false, "Run the built-in triangle module")
	flag.Uint64Var(&cfg.frames, "frames", 60, "Frames to run (0 runs until interrupted)")
	flag.IntVar(&cfg.tps, "tps", frame.DefaultTPS, "Ticks per second")
	flag.BoolVar(&cfg.window, "window", false, "Present frames in a window")
	flag.BoolVar(&cfg.interactive, "i", false, "Interactive mode with TUI")
	flag.StringVar(&cfg.pngOut, "png", "", "Write the last frame to a PNG file")
	flag.IntVar(&cfg.width, "width", 300, "Framebuffer width")
	flag.IntVar(&cfg.height, "height", 150, "Framebuffer height")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.wasi, "wasi", false, "Provide wasi_snapshot_preview1 imports")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "frames" {
			cfg.framesSet = true
		}
	})

	if cfg.wasmFile == "" && !cfg.demo {
		fmt.Fprintln(os.Stderr, "Usage: glrun -wasm <file.wasm> [-frames n] [-tps n] [-png out.png]")
		fmt.Fprintln(os.Stderr, "       glrun -demo [-window | -i]")
		os.Exit(1)
	}

	var err error
	switch {
	case cfg.interactive:
		err = runInteractive(cfg)
	case cfg.window:
		err = runWindow(cfg)
	default:
		err = runHeadless(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

// session is a started guest on a software backend.
type session struct {
	name    string
	rt      *runtime.Runtime
	inst    *runtime.Instance
	backend *soft.Context
}

func (c config) source() (string, []byte, error) {
	if c.demo {
		return "demo:triangle", demo.DefaultTriangle().Build(), nil
	}
	data, err := os.ReadFile(c.wasmFile)
	if err != nil {
		return "", nil, fmt.Errorf("read file: %w", err)
	}
	return filepath.Base(c.wasmFile), data, nil
}

func openSession(ctx context.Context, cfg config, log *zap.Logger, sink func(string)) (*session, error) {
	name, wasm, err := cfg.source()
	if err != nil {
		return nil, err
	}
	s := &session{name: name}
	var stdout, stderr io.Writer = os.Stdout, os.Stderr
	if cfg.interactive {
		stdout, stderr = nil, nil
	}
	rt, err := runtime.New(ctx, runtime.Options{
		Backend: func() gl.Backend {
			s.backend = soft.New(soft.Config{Width: cfg.width, Height: cfg.height})
			return s.backend
		},
		Logger:  log,
		LogSink: sink,
		Engine:  engine.Config{WASI: cfg.wasi},
		Stdout:  stdout,
		Stderr:  stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	s.rt = rt

	inst, err := rt.Load(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("load: %w", err)
	}
	s.inst = inst

	if err := inst.Start(ctx); err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("start: %w", err)
	}
	if _, ok := inst.Entry(); !ok {
		log.Warn("guest returned without entering its frame loop")
	}
	return s, nil
}

func (s *session) close(ctx context.Context) {
	s.inst.Close(ctx)
	s.rt.Close(ctx)
}

func runHeadless(cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log, err := newLogger(cfg.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := openSession(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if _, ok := s.inst.Entry(); ok {
		ticker := &frame.Ticker{TPS: cfg.tps, MaxFrames: cfg.frames, Logger: log}
		if err := ticker.Run(ctx, s.inst); err != nil && ctx.Err() == nil {
			return fmt.Errorf("frame %d: %w", s.inst.Frames()+1, err)
		}
	}

	st := s.inst.GL().Stats()
	fmt.Printf("Module: %s\n", s.name)
	fmt.Printf("Frames: %d\n", s.inst.Frames())
	fmt.Printf("Draws: %d\n", st.Draws)
	fmt.Printf("Shaders: %d live, %d issued\n", st.Shaders.Live, st.Shaders.Next)
	fmt.Printf("Programs: %d live, %d issued\n", st.Programs.Live, st.Programs.Next)
	fmt.Printf("Buffers: %d live, %d issued\n", st.Buffers.Live, st.Buffers.Next)

	if cfg.pngOut != "" {
		return writePNG(cfg.pngOut, s.backend)
	}
	return nil
}

func writePNG(path string, b *soft.Context) error {
	img := b.Image()
	if img == nil {
		return fmt.Errorf("no framebuffer: the module never called init-context")
	}
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

func runWindow(cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log, err := newLogger(cfg.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := openSession(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer s.close(context.Background())

	if _, ok := s.inst.Entry(); !ok {
		return fmt.Errorf("module did not call run; nothing to present")
	}
	var maxFrames uint64
	if cfg.framesSet {
		maxFrames = cfg.frames
	}
	err = present.Run(ctx, present.Window{
		Title:     "glrun: " + s.name,
		TPS:       cfg.tps,
		MaxFrames: maxFrames,
	}, s.inst, s.backend)
	if err != nil {
		return err
	}
	if cfg.pngOut != "" {
		return writePNG(cfg.pngOut, s.backend)
	}
	return nil
}
