package montage

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// RunConfig configures Run.
type RunConfig struct {
	Title string
	// Width and Height set the window size. Zero uses the movie size.
	Width, Height int
	// ShowFPS draws an FPS/TPS overlay in the top-left corner.
	ShowFPS bool
	// ScreenshotDir is where Player.Screenshot writes PNGs. Defaults to
	// "screenshots".
	ScreenshotDir string
}

// Player is an ebiten.Game that hosts a movie: it is the movie's
// FrameScheduler, running the pending tick from Update, and it presents the
// movie canvas in Draw.
type Player struct {
	Movie         *Movie
	ShowFPS       bool
	ScreenshotDir string

	pending         []func()
	script          *Script
	screenshotQueue []string
	fps             fpsOverlay
	drawOp          ebiten.DrawImageOptions
}

// NewPlayer creates a player for m and installs it as m's scheduler.
func NewPlayer(m *Movie) *Player {
	p := &Player{Movie: m, ScreenshotDir: "screenshots"}
	m.Scheduler = p
	return p
}

// Run opens a window and plays m until the window is closed.
func Run(m *Movie, cfg RunConfig) error {
	p := NewPlayer(m)
	p.ShowFPS = cfg.ShowFPS
	if cfg.ScreenshotDir != "" {
		p.ScreenshotDir = cfg.ScreenshotDir
	}
	w, h := cfg.Width, cfg.Height
	if w == 0 || h == 0 {
		w, h = p.movieSize()
	}
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := m.Play(); err != nil {
		return err
	}
	return ebiten.RunGame(p)
}

// RequestFrame queues fn for the next Update.
func (p *Player) RequestFrame(fn func()) {
	p.pending = append(p.pending, fn)
}

// SetScript attaches a playback script, stepped once per Update.
func (p *Player) SetScript(s *Script) {
	p.script = s
}

// Update implements ebiten.Game.
func (p *Player) Update() error {
	if p.script != nil {
		p.script.step(p)
	}
	fns := p.pending
	p.pending = nil
	for _, fn := range fns {
		fn()
	}
	if p.ShowFPS {
		p.fps.update(1 / float64(ebiten.TPS()))
	}
	return nil
}

// Draw implements ebiten.Game.
func (p *Player) Draw(screen *ebiten.Image) {
	if canvas := p.Movie.Canvas(); canvas != nil {
		p.drawOp.GeoM.Reset()
		sb, cb := screen.Bounds(), canvas.Bounds()
		scale := min(float64(sb.Dx())/float64(cb.Dx()), float64(sb.Dy())/float64(cb.Dy()))
		p.drawOp.GeoM.Scale(scale, scale)
		p.drawOp.GeoM.Translate(
			(float64(sb.Dx())-float64(cb.Dx())*scale)/2,
			(float64(sb.Dy())-float64(cb.Dy())*scale)/2,
		)
		p.drawOp.Filter = ebiten.FilterLinear
		screen.DrawImage(canvas, &p.drawOp)
	}
	if p.ShowFPS {
		p.fps.draw(screen)
	}
	p.flushScreenshots(screen)
}

// Layout implements ebiten.Game. The logical screen is the movie size.
func (p *Player) Layout(_, _ int) (int, int) {
	return p.movieSize()
}

func (p *Player) movieSize() (int, int) {
	if c := p.Movie.Canvas(); c != nil {
		return c.Bounds().Dx(), c.Bounds().Dy()
	}
	t := p.Movie.currentTime
	w, errW := Float(p.Movie, "width", t)
	h, errH := Float(p.Movie, "height", t)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 640, 360
	}
	return int(w), int(h)
}

// --- FPS overlay ---

// fpsOverlay shows the current FPS and TPS, refreshed every ~0.5 seconds.
// It uses its own image and ebitenutil.DebugPrint for rendering.
type fpsOverlay struct {
	img        *ebiten.Image
	lastUpdate float64
	op         ebiten.DrawImageOptions
}

func (f *fpsOverlay) update(dt float64) {
	if f.img == nil {
		// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
		f.img = ebiten.NewImage(100, 32)
		f.lastUpdate = 0.5
	}
	f.lastUpdate += dt
	if f.lastUpdate < 0.5 {
		return
	}
	f.lastUpdate = 0

	f.img.Clear()
	// Semi-transparent background for readability.
	f.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(f.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
}

func (f *fpsOverlay) draw(screen *ebiten.Image) {
	if f.img == nil {
		return
	}
	screen.DrawImage(f.img, &f.op)
}
