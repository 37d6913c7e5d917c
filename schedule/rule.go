package schedule

import (
	"fmt"
	"math/rand"
	"slices"
)

// Phase says at which point of the search a rule is checked.
type Phase int

const (
	// PhaseMovement rules are checked after every tentative move.
	PhaseMovement Phase = iota + 1
	// PhaseAfterTime rules are checked once every character moved into the
	// next time slot.
	PhaseAfterTime
	// PhaseEnd rules are checked once the last time slot is filled.
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseMovement:
		return "MOVEMENT"
	case PhaseAfterTime:
		return "AFTER_A_TIME"
	case PhaseEnd:
		return "END"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

type RuleKind int

const (
	// RoomCapacity: no room visited by a scoped character ever holds more
	// than Limit characters.
	RoomCapacity RuleKind = iota + 1
	// ExactlyOneMeeting: Character shares its room with exactly one other
	// character in exactly one time slot.
	ExactlyOneMeeting
	// AtMostOneMeeting is the running form of ExactlyOneMeeting.
	AtMostOneMeeting
	// AlwaysAlone: Character never shares a room.
	AlwaysAlone
	// EachMeetsSomeone: every scoped character shares a room at least once.
	EachMeetsSomeone
)

func (k RuleKind) String() string {
	switch k {
	case RoomCapacity:
		return "room-capacity"
	case ExactlyOneMeeting:
		return "exactly-one-meeting"
	case AtMostOneMeeting:
		return "at-most-one-meeting"
	case AlwaysAlone:
		return "always-alone"
	case EachMeetsSomeone:
		return "each-meets-someone"
	}
	return fmt.Sprintf("RuleKind(%d)", int(k))
}

// Rule is a predicate over a State. It carries only its scope; evaluation
// reads everything else from the State passed to Satisfied.
type Rule struct {
	Kind       RuleKind
	Phase      Phase
	Character  CharacterID
	Characters []CharacterID
	Limit      int
}

func (r Rule) String() string {
	switch r.Kind {
	case RoomCapacity:
		return fmt.Sprintf("%s(%d)@%s", r.Kind, r.Limit, r.Phase)
	case EachMeetsSomeone:
		return fmt.Sprintf("%s%v@%s", r.Kind, r.Characters, r.Phase)
	}
	return fmt.Sprintf("%s(%d)@%s", r.Kind, r.Character, r.Phase)
}

// Satisfied evaluates r against s. It never mutates s.
func Satisfied(r Rule, s *State) bool {
	switch r.Kind {
	case RoomCapacity:
		return roomsWithin(s, r.Characters, r.Limit)
	case ExactlyOneMeeting:
		return meetings(s, r.Character) == 1
	case AtMostOneMeeting:
		return meetings(s, r.Character) <= 1
	case AlwaysAlone:
		for t := 1; t <= s.Times(); t++ {
			if s.Company(r.Character, t) > 1 {
				return false
			}
		}
		return true
	case EachMeetsSomeone:
		for _, c := range r.Characters {
			if !metSomeone(s, c) {
				return false
			}
		}
		return true
	}
	return false
}

// AllSatisfied reports whether every rule tagged with phase holds,
// stopping at the first one that does not.
func AllSatisfied(rules []Rule, phase Phase, s *State) bool {
	for _, r := range rules {
		if r.Phase != phase {
			continue
		}
		if !Satisfied(r, s) {
			return false
		}
	}
	return true
}

func meetings(s *State, c CharacterID) int {
	n := 0
	for t := 1; t <= s.Times(); t++ {
		if s.Company(c, t) == 2 {
			n++
		}
	}
	return n
}

func metSomeone(s *State, c CharacterID) bool {
	for t := 1; t <= s.Times(); t++ {
		if s.Company(c, t) > 1 {
			return true
		}
	}
	return false
}

// roomsWithin checks every room any of chars occupies at any time, over
// every time slot, so a move is judged against the whole roster it touches.
func roomsWithin(s *State, chars []CharacterID, limit int) bool {
	checked := make([]bool, s.NumRooms())
	for _, c := range chars {
		for t := 1; t <= s.Times(); t++ {
			r := s.RoomOf(c, t)
			if r == NullRoom || checked[r] {
				continue
			}
			checked[r] = true
			for u := 1; u <= s.Times(); u++ {
				if s.OccupantCount(r, u) > limit {
					return false
				}
			}
		}
	}
	return true
}

// Part selects one of the rule set variants.
type Part int

const (
	PartPoisoning Part = 1
	PartGhost     Part = 2
	// PartReserved has no rules of its own yet.
	PartReserved Part = 3
)

func (p Part) Valid() bool { return p >= PartPoisoning && p <= PartReserved }

func (p Part) String() string {
	switch p {
	case PartPoisoning:
		return "poisoning"
	case PartGhost:
		return "ghost"
	case PartReserved:
		return "reserved"
	}
	return fmt.Sprintf("Part(%d)", int(p))
}

// StartingCapacity is the number of characters a room may hold at time 1.
func (p Part) StartingCapacity() int {
	if p == PartGhost {
		return 1
	}
	return 2
}

// RoomLimit is the occupancy cap every variant enforces.
const RoomLimit = 3

// Rules holds a built rule set and the characters it singles out.
type Rules struct {
	Part       Part
	List       []Rule
	Designated CharacterID
	Ghost      CharacterID
}

// NewRules builds the rule set for part. The ghost variant draws its ghost
// from rng; designated is the poisoning victim.
func NewRules(part Part, characters int, designated CharacterID, rng *rand.Rand) (Rules, error) {
	all := make([]CharacterID, characters)
	for i := range all {
		all[i] = CharacterID(i)
	}
	capacity := Rule{Kind: RoomCapacity, Phase: PhaseMovement, Characters: all, Limit: RoomLimit}

	switch part {
	case PartPoisoning:
		if designated < 0 || int(designated) >= characters {
			return Rules{}, fmt.Errorf("poisoning victim %d: %w", designated, ErrInvalidConfiguration)
		}
		return Rules{
			Part:       part,
			Designated: designated,
			Ghost:      -1,
			List: []Rule{
				{Kind: AtMostOneMeeting, Phase: PhaseAfterTime, Character: designated},
				{Kind: ExactlyOneMeeting, Phase: PhaseEnd, Character: designated},
				capacity,
			},
		}, nil
	case PartGhost:
		ghost := CharacterID(rng.Intn(characters))
		others := slices.DeleteFunc(slices.Clone(all), func(c CharacterID) bool { return c == ghost })
		return Rules{
			Part:       part,
			Designated: -1,
			Ghost:      ghost,
			List: []Rule{
				{Kind: AlwaysAlone, Phase: PhaseMovement, Character: ghost},
				capacity,
				{Kind: EachMeetsSomeone, Phase: PhaseEnd, Characters: others},
			},
		}, nil
	case PartReserved:
		return Rules{Part: part, Designated: -1, Ghost: -1}, nil
	}
	return Rules{}, fmt.Errorf("part %d: %w", int(part), ErrInvalidConfiguration)
}
