// Package ui runs an emulation core inside an ebiten window: keyboard
// input mapped through the core's keymap, the framebuffer scaled onto
// the screen and a tone player driven by the core's audio request.
package ui

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
)

// Hotkeys next to the machine's own pad: P pauses, Tab fast-forwards
// while held, R resets, F12 takes a screenshot, Escape quits.

type binding struct {
	key   ebiten.Key
	index int
}

// App drives one machine under the ebiten game loop.
type App struct {
	cfg     Config
	logger  *log.Logger
	machine emu.Machine

	bindings []binding
	pressed  []bool

	width  int
	height int
	steps  int

	tex    *ebiten.Image
	rgba   []byte
	digest uint64

	paused   bool
	fast     bool
	runErr   error
	lastTick time.Time

	audioOn *atomic.Bool
	player  *audio.Player
}

// NewApp sets up the window for the machine's resolution and resolves
// its keymap against the host keyboard. Pad labels with no host key
// are logged and skipped.
func NewApp(cfg Config, m emu.Machine, logger *log.Logger) *App {
	cfg.Defaults()
	w, h := m.Resolution()
	scale := cfg.Scale
	if scale <= 0 {
		// Aim for a window around 640 pixels wide.
		scale = 640 / w
		if scale < 1 {
			scale = 1
		}
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		machine:  m,
		width:    w,
		height:   h,
		steps:    cfg.Speed * baseSteps(m.System()),
		tex:      ebiten.NewImage(w, h),
		rgba:     make([]byte, w*h*4),
		lastTick: time.Now(),
		audioOn:  &atomic.Bool{},
	}

	maxIndex := 0
	for _, k := range m.Keymap() {
		if k.Index > maxIndex {
			maxIndex = k.Index
		}
	}
	a.pressed = make([]bool, maxIndex+1)
	for _, k := range m.Keymap() {
		ek, ok := keyForLabel(k.Label)
		if !ok {
			logger.Warn("no host key for pad label", log.String("label", k.Label))
			continue
		}
		a.bindings = append(a.bindings, binding{key: ek, index: k.Index})
	}

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(w*scale, h*scale)
	if !cfg.Mute {
		a.startAudio()
	}
	return a
}

// baseSteps is the instructions per frame at 1x speed, roughly
// matching each core's native instruction rate at 60 fps.
func baseSteps(sys emu.System) int {
	if sys == emu.GameBoy {
		return 17500
	}
	return 12
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	now := time.Now()
	delta := now.Sub(a.lastTick)
	a.lastTick = now
	// A host suspend must not fast-forward the timers on resume.
	if delta > time.Second {
		delta = time.Second
	}

	for i := range a.pressed {
		a.pressed[i] = false
	}
	for _, b := range a.bindings {
		if ebiten.IsKeyPressed(b.key) {
			a.pressed[b.index] = true
		}
	}
	a.machine.SetInputState(a.pressed)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.machine.Reset()
		a.runErr = nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if err := a.saveScreenshot(); err != nil {
			a.logger.Error("screenshot failed", log.Err(err))
		}
	}

	if a.paused || a.runErr != nil {
		a.audioOn.Store(false)
		return nil
	}

	a.machine.TickTimers(delta)
	steps := a.steps
	if a.fast {
		steps *= 5
	}
	for i := 0; i < steps; i++ {
		if err := a.machine.Step(); err != nil {
			// Keep the window open so the fault can be read; R resets.
			a.runErr = err
			a.logger.Error("execution fault", log.Err(err))
			a.logger.Info("machine state", log.String("dump", a.machine.Metadata().String()))
			break
		}
	}
	a.audioOn.Store(!a.cfg.Mute && a.machine.AudioActive())
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	fb := a.machine.Framebuffer()
	for i, px := range fb {
		j := i * 4
		a.rgba[j] = byte(px >> 16)
		a.rgba[j+1] = byte(px >> 8)
		a.rgba[j+2] = byte(px)
		a.rgba[j+3] = byte(px >> 24)
	}
	// Only upload the texture when the frame actually changed.
	if digest := xxhash.Sum64(a.rgba); digest != a.digest {
		a.digest = digest
		a.tex.WritePixels(a.rgba)
	}
	screen.DrawImage(a.tex, nil)

	switch {
	case a.runErr != nil:
		ebitenutil.DebugPrintAt(screen, "fault: "+a.runErr.Error()+"\npress R to reset", 4, 4)
	case a.paused:
		ebitenutil.DebugPrintAt(screen, "paused", 4, 4)
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return a.width, a.height }

func (a *App) saveScreenshot() error {
	img := &image.RGBA{
		Pix:    make([]byte, len(a.rgba)),
		Stride: 4 * a.width,
		Rect:   image.Rect(0, 0, a.width, a.height),
	}
	copy(img.Pix, a.rgba)
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// keyForLabel resolves a keymap label to the host key. Single letters
// and digits map directly, the rest by name.
func keyForLabel(label string) (ebiten.Key, bool) {
	if len(label) == 1 {
		switch c := label[0]; {
		case c >= 'A' && c <= 'Z':
			return ebiten.KeyA + ebiten.Key(c-'A'), true
		case c >= '0' && c <= '9':
			return ebiten.KeyDigit0 + ebiten.Key(c-'0'), true
		}
	}
	switch label {
	case "Up":
		return ebiten.KeyArrowUp, true
	case "Down":
		return ebiten.KeyArrowDown, true
	case "Left":
		return ebiten.KeyArrowLeft, true
	case "Right":
		return ebiten.KeyArrowRight, true
	case "Return":
		return ebiten.KeyEnter, true
	case "Space":
		return ebiten.KeySpace, true
	case "RShift":
		return ebiten.KeyShiftRight, true
	case "LShift":
		return ebiten.KeyShiftLeft, true
	}
	return 0, false
}
