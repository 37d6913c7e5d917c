package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"kronologic/schedule"
)

type runResult struct {
	restarts   int
	attempts   int
	backtracks int
	elapsed    time.Duration
	exhausted  bool
}

func printStats(w io.Writer, label string, results []runResult, runs int) {
	restarts := map[int]int{}
	var totalTime time.Duration
	var totalAttempts, totalBacktracks, exhausted int

	for _, r := range results {
		totalTime += r.elapsed
		if r.exhausted {
			exhausted++
			continue
		}
		restarts[r.restarts]++
		totalAttempts += r.attempts
		totalBacktracks += r.backtracks
	}

	fmt.Fprintf(w, "--- %s ---\n", label)
	fmt.Fprintf(w, "  avg time: %v\n", totalTime/time.Duration(runs))
	fmt.Fprintf(w, "  exhausted: %d/%d runs\n", exhausted, runs)

	solved := runs - exhausted
	if solved > 0 {
		fmt.Fprintf(w, "  avg attempts: %.1f\n", float64(totalAttempts)/float64(solved))
		fmt.Fprintf(w, "  avg backtracks: %.1f\n", float64(totalBacktracks)/float64(solved))
	}

	var counts []int
	for n := range restarts {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	fmt.Fprintf(w, "  restart distribution:\n")
	for _, n := range counts {
		fmt.Fprintf(w, "    %d restarts: %d/%d runs (%.0f%%)\n", n, restarts[n], runs, float64(restarts[n])/float64(runs)*100)
	}
	fmt.Fprintln(w)
}

func main() {
	runs := pflag.Int("runs", 20, "number of generations per budget")
	part := pflag.Int("part", 1, "rule set: 1 poisoning, 2 ghost, 3 reserved")
	budgets := pflag.String("budget", "5000", "comma-separated per-time-slot attempt budgets")
	information := pflag.Int("information", 0, "characters whose starting room is given")
	times := pflag.Int("times", schedule.DefaultTimes, "number of time slots")
	maxRestarts := pflag.Int("max-restarts", schedule.DefaultMaxRestarts, "restart limit per generation")
	topology := pflag.String("topology", "", "YAML topology file (default: built-in board)")
	pflag.Parse()

	top := schedule.DefaultTopology()
	if *topology != "" {
		f, err := os.Open(*topology)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading topology: %v\n", err)
			os.Exit(1)
		}
		top, err = schedule.LoadTopology(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	g, err := schedule.NewGraph(top)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rooms: %d, Characters: %d, Times: %d, Part: %s\n", g.NumRooms(), len(top.Characters), *times, schedule.Part(*part))
	fmt.Printf("Runs per config: %d\n\n", *runs)

	for _, budget := range parseIntList(*budgets) {
		var results []runResult
		for run := range *runs {
			seed := int64(*part)*schedule.SeedSpan + int64(run*31337)%schedule.SeedSpan
			cfg := schedule.Config{
				Part:        schedule.Part(*part),
				Times:       *times,
				Information: *information,
				Seed:        &seed,
				Budget:      budget,
				MaxRestarts: *maxRestarts,
			}
			r, err := measure(context.Background(), g, top, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "seed %d: %v\n", seed, err)
				os.Exit(1)
			}
			results = append(results, r)
		}
		printStats(os.Stdout, fmt.Sprintf("budget=%d max-restarts=%d", budget, *maxRestarts), results, *runs)
	}
}

func measure(ctx context.Context, g *schedule.Graph, top schedule.Topology, cfg schedule.Config) (runResult, error) {
	start := time.Now()
	p, err := schedule.Generate(ctx, g, top, cfg)
	elapsed := time.Since(start)
	if errors.Is(err, schedule.ErrGenerationExhausted) {
		return runResult{elapsed: elapsed, exhausted: true}, nil
	}
	if err != nil {
		return runResult{}, err
	}
	r := runResult{restarts: p.Restarts, backtracks: p.Stats.Backtracks, elapsed: elapsed}
	for _, n := range p.Stats.Attempts {
		r.attempts += n
	}
	return r, nil
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	var result []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			result = append(result, v)
		}
	}
	return result
}
