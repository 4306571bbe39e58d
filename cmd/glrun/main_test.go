package main

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestPreview(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	out := preview(img, 4)
	if n := strings.Count(out, "▀"); n != 4 {
		t.Errorf("cells = %d, want 4", n)
	}
	if strings.Contains(out, "\n") {
		t.Error("single row preview has a line break")
	}
}

func TestHeadlessDemo(t *testing.T) {
	ctx := context.Background()
	cfg := config{demo: true, width: 32, height: 32, tps: 1000}
	s, err := openSession(ctx, cfg, zap.NewNop(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.close(ctx)

	if _, ok := s.inst.Entry(); !ok {
		t.Fatal("demo did not register a frame entry")
	}
	if err := s.inst.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := writePNG(path, s.backend); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("png not written: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Error(err)
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("unknown level accepted")
	}
}
