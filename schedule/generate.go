package schedule

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrGenerationExhausted  = errors.New("no schedule found within the restart limit")
)

// SeedSpan is the width of the seed range owned by each part: a seed
// encodes its part as seed / SeedSpan.
const SeedSpan = 10_000_000

const (
	DefaultTimes       = 6
	MaxTimes           = 64
	DefaultMaxRestarts = 1000
	DefaultDesignated  = "Detective"
)

type Config struct {
	// Part selects the rule set. Zero means "derive from Seed, or poisoning".
	Part Part
	// Times is the number of time slots. Zero means DefaultTimes.
	Times int
	// Information is the number of characters whose starting room is given
	// away to the players.
	Information int
	// Seed makes a run reproducible. Nil draws a fresh one.
	Seed *int64
	// Designated names the poisoning victim.
	Designated  string
	Budget      int
	MaxRestarts int
}

// DefaultConfig gives away the starting room of every character in top.
func DefaultConfig(top Topology) Config {
	return Config{
		Part:        PartPoisoning,
		Times:       DefaultTimes,
		Information: len(top.Characters),
		Designated:  DefaultDesignated,
		Budget:      DefaultBudget,
		MaxRestarts: DefaultMaxRestarts,
	}
}

// Resolved is a validated Config with every default and the seed filled in.
type Resolved struct {
	Part        Part
	Times       int
	Information int
	Seed        int64
	Designated  CharacterID
	Budget      int
	MaxRestarts int
}

func (cfg Config) Resolve(top Topology, g *Graph) (Resolved, error) {
	n := len(top.Characters)
	if n == 0 {
		return Resolved{}, fmt.Errorf("no characters: %w", ErrInvalidConfiguration)
	}
	rc := Resolved{
		Part:        cfg.Part,
		Times:       cfg.Times,
		Information: cfg.Information,
		Budget:      cfg.Budget,
		MaxRestarts: cfg.MaxRestarts,
		Designated:  -1,
	}
	if cfg.Seed != nil {
		derived := Part(*cfg.Seed / SeedSpan)
		if *cfg.Seed < 0 || !derived.Valid() {
			return Resolved{}, fmt.Errorf("seed %d does not encode a part: %w", *cfg.Seed, ErrInvalidConfiguration)
		}
		if rc.Part != 0 && rc.Part != derived {
			return Resolved{}, fmt.Errorf("seed %d is for part %d, not %d: %w", *cfg.Seed, int(derived), int(rc.Part), ErrInvalidConfiguration)
		}
		rc.Part = derived
		rc.Seed = *cfg.Seed
	} else {
		if rc.Part == 0 {
			rc.Part = PartPoisoning
		}
		if !rc.Part.Valid() {
			return Resolved{}, fmt.Errorf("part %d: %w", int(rc.Part), ErrInvalidConfiguration)
		}
		rc.Seed = NewSeed(rc.Part, rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	switch {
	case rc.Times == 0:
		rc.Times = DefaultTimes
	case rc.Times < 0, rc.Times > MaxTimes:
		return Resolved{}, fmt.Errorf("times must be between 1 and %d, got %d: %w", MaxTimes, rc.Times, ErrInvalidConfiguration)
	}
	if rc.Information < 0 || rc.Information > n {
		return Resolved{}, fmt.Errorf("information must be between 0 and %d, got %d: %w", n, rc.Information, ErrInvalidConfiguration)
	}
	if rc.Budget <= 0 {
		rc.Budget = DefaultBudget
	}
	if rc.MaxRestarts <= 0 {
		rc.MaxRestarts = DefaultMaxRestarts
	}
	if rc.Part == PartPoisoning {
		name := cfg.Designated
		if name == "" {
			name = DefaultDesignated
		}
		id, ok := top.CharacterIndex(name)
		if !ok {
			return Resolved{}, fmt.Errorf("poisoning victim %q is not in the roster: %w", name, ErrInvalidConfiguration)
		}
		rc.Designated = id
	}
	if n > g.NumRooms()*rc.Part.StartingCapacity() {
		return Resolved{}, fmt.Errorf("%d characters do not fit in %d starting rooms: %w", n, g.NumRooms(), ErrInvalidConfiguration)
	}
	return rc, nil
}

// NewSeed draws a seed in the range owned by part.
func NewSeed(part Part, rng *rand.Rand) int64 {
	return rng.Int63n(SeedSpan) + SeedSpan*int64(part)
}

// Generate builds problem instances from scratch until one of them can be
// solved. Every instance gets a new starting placement, new informed
// characters and, for the ghost part, a new ghost; all randomness comes from
// the resolved seed. It gives up with ErrGenerationExhausted after
// MaxRestarts instances.
func Generate(ctx context.Context, g *Graph, top Topology, cfg Config) (*Puzzle, error) {
	rc, err := cfg.Resolve(top, g)
	if err != nil {
		return nil, err
	}
	return GenerateResolved(ctx, g, top, rc)
}

func GenerateResolved(ctx context.Context, g *Graph, top Topology, rc Resolved) (*Puzzle, error) {
	rng := rand.New(rand.NewSource(rc.Seed))
	for restart := range rc.MaxRestarts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inst, err := newInstance(g, top, rc, rng)
		if err != nil {
			return nil, err
		}
		sv := NewSolver(g, inst.rules.List, rc.Budget, rng)
		solved, err := sv.Solve(ctx, inst.state)
		if err != nil {
			return nil, err
		}
		if solved {
			return &Puzzle{
				Seed:       rc.Seed,
				Part:       rc.Part,
				Informed:   inst.informed,
				Designated: inst.rules.Designated,
				Ghost:      inst.rules.Ghost,
				Restarts:   restart,
				Stats:      sv.Stats(),
				graph:      g,
				characters: slices.Clone(top.Characters),
				state:      inst.state,
			}, nil
		}
	}
	return nil, fmt.Errorf("seed %d after %d restarts: %w", rc.Seed, rc.MaxRestarts, ErrGenerationExhausted)
}

type instance struct {
	state    *State
	informed []CharacterID
	rules    Rules
}

func newInstance(g *Graph, top Topology, rc Resolved, rng *rand.Rand) (*instance, error) {
	n := len(top.Characters)
	s := NewState(n, g.NumRooms(), rc.Times)
	if err := placeStart(s, rc.Part.StartingCapacity(), rng); err != nil {
		return nil, err
	}
	// Informed characters come from a forked source so that changing
	// Information does not change the schedule drawn from rng.
	fork := rand.New(rand.NewSource(rng.Int63()))
	informed := fork.Perm(n)[:rc.Information]
	ids := make([]CharacterID, len(informed))
	for i, c := range informed {
		ids[i] = CharacterID(c)
	}
	slices.Sort(ids)

	rules, err := NewRules(rc.Part, n, rc.Designated, rng)
	if err != nil {
		return nil, err
	}
	return &instance{state: s, informed: ids, rules: rules}, nil
}

// placeStart puts every character in a random room at time 1, with no room
// holding more than capacity characters.
func placeStart(s *State, capacity int, rng *rand.Rand) error {
	type slot struct {
		room RoomID
		left int
	}
	var open []slot
	for r := range s.NumRooms() {
		open = append(open, slot{RoomID(r), capacity})
	}
	for c := range s.NumCharacters() {
		if len(open) == 0 {
			return fmt.Errorf("no starting room left for character %d: %w", c, ErrInvalidConfiguration)
		}
		i := rng.Intn(len(open))
		if err := s.Assign(CharacterID(c), 1, open[i].room); err != nil {
			return err
		}
		open[i].left--
		if open[i].left == 0 {
			open = slices.Delete(open, i, i+1)
		}
	}
	return nil
}
