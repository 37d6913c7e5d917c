package schedule

import (
	"context"
	"fmt"
	"math/rand"
)

// DefaultBudget is the number of attempts made at one time slot before
// giving the failure back to the previous slot.
const DefaultBudget = 5000

// Stats counts the work done by a Solver.
type Stats struct {
	// Attempts[t] is the number of time-step attempts started at slot t.
	Attempts   []int
	Moves      int
	Backtracks int
}

// Solver extends every character's path one adjacent room at a time,
// undoing a whole time slot when it cannot be completed.
type Solver struct {
	graph  *Graph
	rules  []Rule
	rng    *rand.Rand
	budget int
	state  *State
	stats  Stats
}

func NewSolver(g *Graph, rules []Rule, budget int, rng *rand.Rand) *Solver {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Solver{graph: g, rules: rules, rng: rng, budget: budget}
}

func (sv *Solver) Stats() Stats { return sv.stats }

// Solve fills slots 2..Times() of s, whose slot 1 must already hold every
// character. It reports whether a schedule satisfying all rules was found;
// on success s holds it, on failure slots 2..Times() are empty again.
// The search stops with ctx.Err() once ctx is done.
func (sv *Solver) Solve(ctx context.Context, s *State) (bool, error) {
	if s.NumRooms() != sv.graph.NumRooms() {
		return false, fmt.Errorf("state has %d rooms, graph has %d: %w", s.NumRooms(), sv.graph.NumRooms(), ErrOutOfRange)
	}
	sv.state = s
	sv.stats = Stats{Attempts: make([]int, s.Times()+1)}
	if sv.solveFrom(ctx, 1) {
		return true, nil
	}
	return false, ctx.Err()
}

func (sv *Solver) solveFrom(ctx context.Context, t int) bool {
	s := sv.state
	if t >= s.Times() {
		return AllSatisfied(sv.rules, PhaseEnd, s)
	}
	cleared := s.SnapshotTime(t + 1)
	for range sv.budget {
		if ctx.Err() != nil {
			return false
		}
		sv.stats.Attempts[t]++
		if sv.moveAll(t) && AllSatisfied(sv.rules, PhaseAfterTime, s) && sv.solveFrom(ctx, t+1) {
			return true
		}
		sv.stats.Backtracks++
		if err := s.RestoreTime(t+1, cleared); err != nil {
			// The snapshot was taken from s itself.
			panic(err)
		}
	}
	return false
}

// moveAll gives each character, in roster order, a room at t+1 adjacent to
// its room at t. It stops at the first character left without a move.
func (sv *Solver) moveAll(t int) bool {
	s := sv.state
	for c := range s.NumCharacters() {
		if !sv.move(CharacterID(c), t) {
			return false
		}
	}
	return true
}

func (sv *Solver) move(c CharacterID, t int) bool {
	s := sv.state
	candidates := sv.graph.Neighbors(s.RoomOf(c, t))
	sv.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, r := range candidates {
		sv.stats.Moves++
		if err := s.Assign(c, t+1, r); err != nil {
			return false
		}
		if AllSatisfied(sv.rules, PhaseMovement, s) {
			return true
		}
		s.Unassign(c, t+1)
	}
	return false
}
