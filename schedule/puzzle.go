package schedule

import (
	"slices"
)

// Puzzle is a solved problem instance: the full schedule plus what the
// players are told about it.
type Puzzle struct {
	Seed int64
	Part Part
	// Informed characters have their starting room revealed.
	Informed   []CharacterID
	Designated CharacterID
	Ghost      CharacterID
	Restarts   int
	Stats      Stats

	graph      *Graph
	characters []string
	state      *State
}

func (p *Puzzle) Times() int           { return p.state.Times() }
func (p *Puzzle) Characters() []string { return slices.Clone(p.characters) }
func (p *Puzzle) Graph() *Graph        { return p.graph }

// State returns a copy of the solved schedule.
func (p *Puzzle) State() *State { return p.state.Clone() }

func (p *Puzzle) RoomOf(c CharacterID, t int) RoomID { return p.state.RoomOf(c, t) }

// Occupants lists the characters in r at t in roster order.
func (p *Puzzle) Occupants(r RoomID, t int) []CharacterID {
	var out []CharacterID
	p.state.Occupants(r, t).Each(func(c CharacterID) {
		out = append(out, c)
	})
	slices.Sort(out)
	return out
}

func (p *Puzzle) IsInformed(c CharacterID) bool {
	return slices.Contains(p.Informed, c)
}

func (p *Puzzle) CharacterName(c CharacterID) string {
	if c < 0 || int(c) >= len(p.characters) {
		return ""
	}
	return p.characters[c]
}

type CharacterView struct {
	Name     string `json:"name"`
	Informed bool   `json:"informed"`
	// Rooms[i] is the room at time i+1.
	Rooms []string `json:"rooms"`
}

type RoomView struct {
	Name string `json:"name"`
	// Occupants[i] lists the characters in the room at time i+1.
	Occupants [][]string `json:"occupants"`
}

// PuzzleView is the serialized form of a solved puzzle, consumed by the
// text renderer, the store and the HTTP API.
type PuzzleView struct {
	Seed       int64           `json:"seed"`
	Part       Part            `json:"part"`
	Times      int             `json:"times"`
	Designated string          `json:"designated,omitempty"`
	Ghost      string          `json:"ghost,omitempty"`
	Characters []CharacterView `json:"characters"`
	Rooms      []RoomView      `json:"rooms"`
}

type StartHint struct {
	Character string `json:"character"`
	Room      string `json:"room"`
}

// HintView is what players see before solving: the starting rooms of the
// informed characters.
type HintView struct {
	Seed   int64       `json:"seed"`
	Part   Part        `json:"part"`
	Times  int         `json:"times"`
	Starts []StartHint `json:"starts"`
}

func (p *Puzzle) View() PuzzleView {
	v := PuzzleView{
		Seed:       p.Seed,
		Part:       p.Part,
		Times:      p.Times(),
		Designated: p.CharacterName(p.Designated),
		Ghost:      p.CharacterName(p.Ghost),
	}
	for c, name := range p.characters {
		cv := CharacterView{Name: name, Informed: p.IsInformed(CharacterID(c))}
		for t := 1; t <= p.Times(); t++ {
			cv.Rooms = append(cv.Rooms, p.graph.Name(p.RoomOf(CharacterID(c), t)))
		}
		v.Characters = append(v.Characters, cv)
	}
	for r := range p.graph.NumRooms() {
		rv := RoomView{Name: p.graph.Name(RoomID(r))}
		for t := 1; t <= p.Times(); t++ {
			names := []string{}
			for _, c := range p.Occupants(RoomID(r), t) {
				names = append(names, p.characters[c])
			}
			rv.Occupants = append(rv.Occupants, names)
		}
		v.Rooms = append(v.Rooms, rv)
	}
	return v
}

// Hints derives the player view from a full view.
func (v PuzzleView) Hints() HintView {
	h := HintView{Seed: v.Seed, Part: v.Part, Times: v.Times, Starts: []StartHint{}}
	for _, c := range v.Characters {
		if c.Informed && len(c.Rooms) > 0 {
			h.Starts = append(h.Starts, StartHint{Character: c.Name, Room: c.Rooms[0]})
		}
	}
	return h
}
