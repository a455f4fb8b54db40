// Package main implements a headless runner for the emulation cores.
// It executes a fixed instruction budget and reports a digest of the
// final framebuffer, which makes regression runs comparable in CI.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
	"github.com/Saphereye/multiemu/internal/multiemu"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type optionFlags struct {
	rom    string
	system string
	steps  int
	hz     int
	trace  bool
	quiet  bool
	debug  bool
}

func main() {
	ctx := app.Context()
	opts := readArguments()
	logger := createLogger(opts)
	if !opts.quiet {
		logger.Info("cpurunner", log.String("version", buildinfo.Version(version, commit, date)))
	}

	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal(err.Error())
	}
}

func readArguments() optionFlags {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	opts := optionFlags{}

	flags.StringVar(&opts.rom, "rom", "", "path of the ROM image to run")
	flags.StringVar(&opts.system, "system", "chip8", "system to emulate: chip8 or gameboy")
	flags.IntVar(&opts.steps, "steps", 5_000_000, "instruction budget")
	flags.IntVar(&opts.hz, "hz", 720, "simulated instruction rate for timer ticking, 0 freezes timers")
	flags.BoolVar(&opts.trace, "trace", false, "print every executed instruction")
	flags.BoolVar(&opts.quiet, "quiet", false, "only log errors")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	err := flags.Parse(os.Args[1:])
	if err != nil || opts.rom == "" {
		fmt.Printf("usage: cpurunner -rom <file> [options]\n\n")
		flags.PrintDefaults()
		os.Exit(1)
	}
	return opts
}

func createLogger(opts optionFlags) *log.Logger {
	cfg := log.DefaultConfig()
	if opts.debug {
		cfg.Level = log.DebugLevel
	} else if opts.quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func run(ctx context.Context, opts optionFlags, logger *log.Logger) error {
	sys, err := emu.ParseSystem(opts.system)
	if err != nil {
		return err
	}
	m, err := multiemu.New(sys, logger)
	if err != nil {
		return err
	}
	if err := multiemu.LoadFile(m, opts.rom); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	// Each step stands for 1/hz seconds of guest time, so timers run
	// at the same pace regardless of host speed.
	var perStep time.Duration
	if opts.hz > 0 {
		perStep = time.Second / time.Duration(opts.hz)
	}

	executed := 0
	start := time.Now()
loop:
	for executed < opts.steps {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			break loop
		default:
		}

		var pc uint16
		if opts.trace {
			pc = m.Metadata().ProgramCounter()
		}
		if err := m.Step(); err != nil {
			logger.Error("execution fault", log.Err(err))
			fmt.Println(m.Metadata().String())
			os.Exit(1)
		}
		executed++
		if opts.trace {
			meta := m.Metadata()
			fmt.Printf("PC=%04X OP=%04X  %s\n", pc, meta.CurrentOpcode(), meta.Disassembly())
		}
		if perStep > 0 {
			m.TickTimers(perStep)
		}
	}
	elapsed := time.Since(start)

	logger.Info("run complete",
		log.Int("steps", executed),
		log.String("digest", fmt.Sprintf("%016x", framebufferDigest(m))),
		log.String("elapsed", elapsed.Truncate(time.Millisecond).String()),
	)
	return nil
}

// framebufferDigest hashes the packed framebuffer so two runs of the
// same ROM and budget can be compared with a single value.
func framebufferDigest(m emu.Machine) uint64 {
	fb := m.Framebuffer()
	buf := make([]byte, len(fb)*4)
	for i, px := range fb {
		binary.LittleEndian.PutUint32(buf[i*4:], px)
	}
	return xxhash.Sum64(buf)
}
