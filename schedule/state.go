package schedule

import (
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

var (
	ErrAlreadyAssigned = errors.New("character already assigned at this time")
	ErrOutOfRange      = errors.New("character, room or time out of range")
)

// State is the (character, time) -> room table of a problem instance with
// its inverse (room, time) -> occupants index. Time slots run from 1 to
// Times(); index 0 is unused.
type State struct {
	times     int
	rooms     int
	forward   [][]RoomID
	occupants [][]mapset.Set[CharacterID]
}

// TimeSnapshot records every character's room at one time slot.
type TimeSnapshot []RoomID

func NewState(characters, rooms, times int) *State {
	s := &State{
		times:     times,
		rooms:     rooms,
		forward:   make([][]RoomID, characters),
		occupants: make([][]mapset.Set[CharacterID], rooms),
	}
	for c := range s.forward {
		s.forward[c] = make([]RoomID, times+1)
		for t := range s.forward[c] {
			s.forward[c][t] = NullRoom
		}
	}
	for r := range s.occupants {
		s.occupants[r] = make([]mapset.Set[CharacterID], times+1)
		for t := range s.occupants[r] {
			s.occupants[r][t] = mapset.New[CharacterID]()
		}
	}
	return s
}

func (s *State) Times() int         { return s.times }
func (s *State) NumCharacters() int { return len(s.forward) }
func (s *State) NumRooms() int      { return s.rooms }

func (s *State) Assign(c CharacterID, t int, r RoomID) error {
	if !s.validSlot(c, t) || r < 0 || int(r) >= s.rooms {
		return fmt.Errorf("assign character %d at time %d to room %d: %w", c, t, r, ErrOutOfRange)
	}
	if cur := s.forward[c][t]; cur != NullRoom {
		return fmt.Errorf("assign character %d at time %d: %w (room %d)", c, t, ErrAlreadyAssigned, cur)
	}
	s.forward[c][t] = r
	s.occupants[r][t].Put(c)
	return nil
}

// Unassign clears the room of c at t. Unassigned or out of range slots are
// left alone.
func (s *State) Unassign(c CharacterID, t int) {
	if !s.validSlot(c, t) {
		return
	}
	r := s.forward[c][t]
	if r == NullRoom {
		return
	}
	s.occupants[r][t].Remove(c)
	s.forward[c][t] = NullRoom
}

func (s *State) RoomOf(c CharacterID, t int) RoomID {
	if !s.validSlot(c, t) {
		return NullRoom
	}
	return s.forward[c][t]
}

// Occupants returns the live occupant set of r at t. Callers must not
// mutate it.
func (s *State) Occupants(r RoomID, t int) mapset.Set[CharacterID] {
	if r < 0 || int(r) >= s.rooms || t < 1 || t > s.times {
		return mapset.New[CharacterID]()
	}
	return s.occupants[r][t]
}

func (s *State) OccupantCount(r RoomID, t int) int {
	if r < 0 || int(r) >= s.rooms || t < 1 || t > s.times {
		return 0
	}
	return s.occupants[r][t].Size()
}

// Company is the number of characters sharing c's room at t, c included.
// It is zero when c has no room at t.
func (s *State) Company(c CharacterID, t int) int {
	return s.OccupantCount(s.RoomOf(c, t), t)
}

func (s *State) SnapshotTime(t int) TimeSnapshot {
	snap := make(TimeSnapshot, len(s.forward))
	for c := range s.forward {
		snap[c] = s.RoomOf(CharacterID(c), t)
	}
	return snap
}

// RestoreTime resets time slot t to snap. The slot is cleared first, so
// the result never double-books a character.
func (s *State) RestoreTime(t int, snap TimeSnapshot) error {
	if t < 1 || t > s.times || len(snap) != len(s.forward) {
		return fmt.Errorf("restore time %d: %w", t, ErrOutOfRange)
	}
	for c := range s.forward {
		s.Unassign(CharacterID(c), t)
	}
	for c, r := range snap {
		if r == NullRoom {
			continue
		}
		if err := s.Assign(CharacterID(c), t, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) Clone() *State {
	out := NewState(len(s.forward), s.rooms, s.times)
	for c := range s.forward {
		for t := 1; t <= s.times; t++ {
			if r := s.forward[c][t]; r != NullRoom {
				out.forward[c][t] = r
				out.occupants[r][t].Put(CharacterID(c))
			}
		}
	}
	return out
}

// Check verifies that the forward table and the occupant index agree.
func (s *State) Check() error {
	for c := range s.forward {
		for t := 1; t <= s.times; t++ {
			r := s.forward[c][t]
			if r != NullRoom && !s.occupants[r][t].Has(CharacterID(c)) {
				return fmt.Errorf("character %d at time %d missing from room %d", c, t, r)
			}
		}
	}
	for r := range s.occupants {
		for t := 1; t <= s.times; t++ {
			var err error
			s.occupants[r][t].Each(func(c CharacterID) {
				if err == nil && s.forward[c][t] != RoomID(r) {
					err = fmt.Errorf("room %d at time %d lists character %d assigned to %d", r, t, c, s.forward[c][t])
				}
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *State) validSlot(c CharacterID, t int) bool {
	return c >= 0 && int(c) < len(s.forward) && t >= 1 && t <= s.times
}
