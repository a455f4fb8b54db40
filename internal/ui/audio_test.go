package ui

import (
	"encoding/binary"
	"sync/atomic"
	"testing"
)

func TestToneStreamSilentWhenInactive(t *testing.T) {
	s := &toneStream{active: &atomic.Bool{}}

	// Two trailing bytes do not make a full frame and stay unread.
	buf := make([]byte, 4*8+2)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 4*8 {
		t.Fatalf("n = %d, want %d", n, 4*8)
	}
	for i := range buf[:n] {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %#02x, want 0", i, buf[i])
		}
	}
	if s.phase != 0 {
		t.Errorf("phase = %d, want 0", s.phase)
	}
}

func TestToneStreamSquareWave(t *testing.T) {
	active := &atomic.Bool{}
	active.Store(true)
	s := &toneStream{active: active}

	const halfPeriod = sampleRate / (2 * toneHz)
	buf := make([]byte, 4*2*halfPeriod)
	if _, err := s.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	for frame := 0; frame < 2*halfPeriod; frame++ {
		left := int16(binary.LittleEndian.Uint16(buf[frame*4:]))
		right := int16(binary.LittleEndian.Uint16(buf[frame*4+2:]))
		if left != right {
			t.Fatalf("frame %d: left %d != right %d", frame, left, right)
		}
		want := int16(toneAmp)
		if frame >= halfPeriod {
			want = -toneAmp
		}
		if left != want {
			t.Fatalf("frame %d: sample %d, want %d", frame, left, want)
		}
	}

	// Dropping the flag resets the wave phase.
	active.Store(false)
	if _, err := s.Read(make([]byte, 4)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.phase != 0 {
		t.Errorf("phase = %d, want 0 after silence", s.phase)
	}
}
