// Package present shows a software framebuffer in a desktop window.
//
// The window is an ebiten game: Update runs one guest tick, Draw uploads
// the framebuffer and scales it to the window.
package present

import (
	"context"
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/wippyai/wasm-gl/frame"
)

// Source provides the image to present. *soft.Context implements it; it
// returns nil until the guest has called init-context.
type Source interface {
	Image() *image.RGBA
}

// Window configures Run.
type Window struct {
	Title string
	// Scale multiplies the framebuffer size for the initial window size.
	// Zero selects 2.
	Scale int
	// TPS is the tick rate. Zero selects frame.DefaultTPS.
	TPS int
	// MaxFrames closes the window after that many frames. Zero runs until
	// the window is closed.
	MaxFrames uint64
	// OnError is called with a failed tick. Returning true keeps the
	// window open. Nil closes it with the error.
	OnError func(err error) bool
}

// Default window size for a source without an image.
const (
	DefaultWidth  = 300
	DefaultHeight = 150
)

// Game is the ebiten game driving a target.
type Game struct {
	ctx    context.Context
	target frame.Target
	source Source
	cfg    Window
	frames uint64
	img    *ebiten.Image
}

// NewGame creates a game that ticks target and presents source.
func NewGame(ctx context.Context, cfg Window, target frame.Target, source Source) *Game {
	return &Game{ctx: ctx, target: target, source: source, cfg: cfg}
}

// Frames returns the number of completed ticks.
func (g *Game) Frames() uint64 {
	return g.frames
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if g.cfg.MaxFrames != 0 && g.frames >= g.cfg.MaxFrames {
		return ebiten.Termination
	}
	if err := g.target.Tick(g.ctx); err != nil {
		if g.cfg.OnError != nil && g.cfg.OnError(err) {
			return nil
		}
		return err
	}
	g.frames++
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	src := g.source.Image()
	if src == nil {
		return
	}
	b := src.Bounds()
	if g.img == nil || g.img.Bounds().Dx() != b.Dx() || g.img.Bounds().Dy() != b.Dy() {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(b.Dx(), b.Dy())
	}
	g.img.WritePixels(src.Pix)
	screen.DrawImage(g.img, nil)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.size()
}

func (g *Game) size() (int, int) {
	if src := g.source.Image(); src != nil {
		return src.Bounds().Dx(), src.Bounds().Dy()
	}
	return DefaultWidth, DefaultHeight
}

// Run opens a window and ticks target until the window is closed, ctx is
// done, MaxFrames is reached or a tick fails. It blocks and must be
// called from the main goroutine.
func Run(ctx context.Context, cfg Window, target frame.Target, source Source) error {
	g := NewGame(ctx, cfg, target, source)
	scale := cfg.Scale
	if scale <= 0 {
		scale = 2
	}
	tps := cfg.TPS
	if tps <= 0 {
		tps = frame.DefaultTPS
	}
	title := cfg.Title
	if title == "" {
		title = "wasm-gl"
	}

	w, h := g.size()
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(w*scale, h*scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(tps)

	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
