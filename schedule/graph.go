package schedule

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type RoomID int

type CharacterID int

// NullRoom marks a (character, time) slot with no room yet.
const NullRoom RoomID = -1

type RoomSpec struct {
	Name     string   `yaml:"name"`
	Adjacent []string `yaml:"adjacent"`
}

// Topology is the static description of a game board: the rooms with their
// doors and the roster of characters walking through them.
type Topology struct {
	Rooms      []RoomSpec `yaml:"rooms"`
	Characters []string   `yaml:"characters"`
}

func DefaultTopology() Topology {
	return Topology{
		Rooms: []RoomSpec{
			{Name: "Sing Room", Adjacent: []string{"Dance Room", "Scene"}},
			{Name: "Dance Room", Adjacent: []string{"Sing Room", "Scene"}},
			{Name: "Scene", Adjacent: []string{"Sing Room", "Dance Room", "Room"}},
			{Name: "Stairs", Adjacent: []string{"Room", "Hallway"}},
			{Name: "Room", Adjacent: []string{"Scene", "Stairs", "Hallway"}},
			{Name: "Hallway", Adjacent: []string{"Stairs", "Room"}},
		},
		Characters: []string{"Aventuriere", "Baronne", "Chauffeur", "Detective", "Journaliste", "Servante"},
	}
}

func LoadTopology(r io.Reader) (Topology, error) {
	var t Topology
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Topology{}, fmt.Errorf("topology: empty document")
		}
		return Topology{}, fmt.Errorf("topology: %w", err)
	}
	if len(t.Characters) == 0 {
		return Topology{}, fmt.Errorf("topology: no characters")
	}
	seen := map[string]bool{}
	for _, c := range t.Characters {
		if c == "" || seen[c] {
			return Topology{}, fmt.Errorf("topology: invalid or duplicate character %q", c)
		}
		seen[c] = true
	}
	return t, nil
}

// CharacterIndex returns the position of name in the roster.
func (t Topology) CharacterIndex(name string) (CharacterID, bool) {
	for i, c := range t.Characters {
		if c == name {
			return CharacterID(i), true
		}
	}
	return 0, false
}

// Graph is the read-only adjacency of a Topology. It is shared by every
// problem instance built from the same topology.
type Graph struct {
	names     []string
	adjacency [][]RoomID
	byName    map[string]RoomID
}

func NewGraph(t Topology) (*Graph, error) {
	if len(t.Rooms) == 0 {
		return nil, fmt.Errorf("graph: no rooms")
	}
	g := &Graph{
		names:     make([]string, len(t.Rooms)),
		adjacency: make([][]RoomID, len(t.Rooms)),
		byName:    map[string]RoomID{},
	}
	for i, r := range t.Rooms {
		if r.Name == "" {
			return nil, fmt.Errorf("graph: room %d has no name", i)
		}
		if _, dup := g.byName[r.Name]; dup {
			return nil, fmt.Errorf("graph: duplicate room %q", r.Name)
		}
		g.names[i] = r.Name
		g.byName[r.Name] = RoomID(i)
	}
	for i, r := range t.Rooms {
		seen := map[RoomID]bool{}
		for _, adj := range r.Adjacent {
			id, ok := g.byName[adj]
			if !ok {
				return nil, fmt.Errorf("graph: room %q lists unknown neighbor %q", r.Name, adj)
			}
			if id == RoomID(i) {
				return nil, fmt.Errorf("graph: room %q lists itself as neighbor", r.Name)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			g.adjacency[i] = append(g.adjacency[i], id)
		}
	}
	return g, nil
}

func (g *Graph) NumRooms() int { return len(g.names) }

// Neighbors returns a fresh copy of the rooms reachable from r in one move.
// The null room has no neighbors.
func (g *Graph) Neighbors(r RoomID) []RoomID {
	if !g.valid(r) {
		return nil
	}
	return append([]RoomID(nil), g.adjacency[r]...)
}

func (g *Graph) Adjacent(from, to RoomID) bool {
	if !g.valid(from) {
		return false
	}
	for _, r := range g.adjacency[from] {
		if r == to {
			return true
		}
	}
	return false
}

func (g *Graph) Name(r RoomID) string {
	if !g.valid(r) {
		return "Null Room"
	}
	return g.names[r]
}

func (g *Graph) Room(name string) (RoomID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

func (g *Graph) valid(r RoomID) bool {
	return r >= 0 && int(r) < len(g.names)
}
