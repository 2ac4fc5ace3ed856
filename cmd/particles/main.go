package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cometengine/ecs"
)

const (
	headlessWidth  = 80
	headlessHeight = 24
)

type options struct {
	particles int
	ticks     int
	headless  bool
	stats     bool
	profile   bool
	seed      int64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "particles",
		Short: "Run a terminal particle simulation on the comet ECS",
		Long: "Runs emitter, movement and aging systems at a fixed step and draws the " +
			"result to the terminal. Configuration is read from COMET_* environment variables.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.profile {
				defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
			}
			return run(cmd, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.particles, "particles", "n", 200, "number of live particles to maintain")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 600, "ticks to simulate in headless mode")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "simulate without a terminal")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print world stats as JSON on exit")
	cmd.Flags().BoolVar(&opts.profile, "profile", false, "write an allocation profile to the working directory")
	cmd.Flags().Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	cfg, err := ecs.LoadConfig()
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

	worldOpts := []ecs.Option{ecs.WithConfig(cfg), ecs.WithLogger(logger)}
	if cfg.StatsdAddress != "" {
		client, err := ecs.NewStatsdClient(cfg.StatsdAddress, []string{"app:particles"})
		if err != nil {
			return err
		}
		worldOpts = append(worldOpts, ecs.WithMetrics(client))
	}
	world := ecs.Factory.NewWorld(worldOpts...)

	if opts.headless {
		err = runHeadless(world, opts)
	} else {
		err = runTerminal(world, opts)
	}
	if err != nil {
		return err
	}

	if opts.stats {
		bz, err := world.Stats().JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	}
	return nil
}

func runHeadless(world *ecs.World, opts options) error {
	sim, err := newSimulation(world, opts.particles, headlessWidth, headlessHeight, opts.seed)
	if err != nil {
		return err
	}
	step := sim.scheduler.Step()
	for range opts.ticks {
		if err := sim.scheduler.Tick(step); err != nil {
			return err
		}
	}
	return nil
}

func runTerminal(world *ecs.World, opts options) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return eris.Wrap(err, "failed to create screen")
	}
	if err := screen.Init(); err != nil {
		return eris.Wrap(err, "failed to initialize screen")
	}
	defer screen.Fini()

	width, height := screen.Size()
	sim, err := newSimulation(world, opts.particles, width, height, opts.seed)
	if err != nil {
		return err
	}

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- screen.PollEvent()
		}
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return nil
				}
			case *tcell.EventResize:
				sim.resize(screen.Size())
				screen.Sync()
			}

		case now := <-ticker.C:
			if _, err := sim.scheduler.Advance(now.Sub(last)); err != nil {
				return err
			}
			last = now
			if err := sim.draw(screen); err != nil {
				return err
			}
		}
	}
}
