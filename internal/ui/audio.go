package ui

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/retroenv/retrogolib/log"
)

const (
	sampleRate = 48000
	toneHz     = 440
	toneAmp    = 6000
)

// toneStream synthesizes a square wave while the active flag is set
// and silence otherwise. Ebiten reads it on its own goroutine, so the
// flag is an atomic shared with the update loop.
type toneStream struct {
	active *atomic.Bool
	phase  int
}

// Read fills p with stereo int16 little-endian frames.
func (s *toneStream) Read(p []byte) (int, error) {
	const halfPeriod = sampleRate / (2 * toneHz)
	n := len(p) - len(p)%4
	for i := 0; i < n; i += 4 {
		var sample int16
		if s.active.Load() {
			sample = toneAmp
			if (s.phase/halfPeriod)%2 == 1 {
				sample = -toneAmp
			}
			s.phase++
		} else {
			s.phase = 0
		}
		binary.LittleEndian.PutUint16(p[i:], uint16(sample))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(sample))
	}
	return n, nil
}

// startAudio wires the tone stream into an ebiten audio player. A
// small buffer keeps the beep close to the machine's sound timer.
func (a *App) startAudio() {
	ctx := audio.NewContext(sampleRate)
	player, err := ctx.NewPlayer(&toneStream{active: a.audioOn})
	if err != nil {
		a.logger.Error("audio unavailable", log.Err(err))
		return
	}
	player.SetBufferSize(40 * time.Millisecond)
	player.Play()
	a.player = player
}
