package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"kronologic/schedule"
)

type options struct {
	part        int
	information int
	times       int
	seed        int64
	solution    bool
	debug       bool
	asJSON      bool
	topology    string
	maxRestarts int
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("kronologic", pflag.ContinueOnError)
	flags.IntVar(&opts.part, "part", 0, "part of the game: 1 poisoning, 2 ghost, 3 reserved (default 1, or derived from --seed)")
	flags.IntVar(&opts.information, "nb-information", -1, "number of characters whose starting room is given (default every character)")
	flags.IntVar(&opts.times, "times", schedule.DefaultTimes, "number of time slots")
	flags.Int64Var(&opts.seed, "seed", 0, "seed of the game; its part is seed / 10000000, 0 draws a fresh one")
	flags.BoolVar(&opts.solution, "solution", false, "show the solution of the problem")
	flags.BoolVar(&opts.debug, "debug", false, "print the starting information and room occupancy")
	flags.BoolVar(&opts.asJSON, "json", false, "print the full puzzle as JSON")
	flags.StringVar(&opts.topology, "topology", "", "YAML file describing rooms and characters")
	flags.IntVar(&opts.maxRestarts, "max-restarts", schedule.DefaultMaxRestarts, "give up after this many fresh problem instances")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, opts, flags.Changed("seed")); err != nil {
		logger.Error("generation failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, opts options, seeded bool) error {
	top := schedule.DefaultTopology()
	if opts.topology != "" {
		f, err := os.Open(opts.topology)
		if err != nil {
			return err
		}
		top, err = schedule.LoadTopology(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	g, err := schedule.NewGraph(top)
	if err != nil {
		return err
	}

	cfg := schedule.DefaultConfig(top)
	cfg.Part = schedule.Part(opts.part)
	if opts.information >= 0 {
		cfg.Information = opts.information
	}
	cfg.Times = opts.times
	cfg.MaxRestarts = opts.maxRestarts
	if seeded && opts.seed != 0 {
		cfg.Seed = &opts.seed
	}
	rc, err := cfg.Resolve(top, g)
	if err != nil {
		return err
	}

	if !opts.asJSON {
		fmt.Fprintf(w, "\nCreation of a problem :\n\tPart : %d\n\tSeed : %d\n\tNumber of information given at start : %d\n\n\n",
			rc.Part, rc.Seed, rc.Information)
	}

	p, err := schedule.GenerateResolved(ctx, g, top, rc)
	if err != nil {
		return err
	}
	v := p.View()

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if opts.solution {
		if err := schedule.WriteMatrix(w, v); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if opts.debug {
		if err := schedule.WriteInformation(w, v); err != nil {
			return err
		}
		fmt.Fprintln(w)
		if err := schedule.WriteRoomOccupants(w, v); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "Your seed is : ", p.Seed)
	return nil
}
