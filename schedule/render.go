package schedule

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteMatrix prints the schedule as one row per time slot and one column
// per character.
func WriteMatrix(w io.Writer, v PuzzleView) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	header := []string{""}
	for _, c := range v.Characters {
		header = append(header, c.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for t := range v.Times {
		row := []string{fmt.Sprintf("Time %d:", t+1)}
		for _, c := range v.Characters {
			room := ""
			if t < len(c.Rooms) {
				room = c.Rooms[t]
			}
			row = append(row, room)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func WriteInformation(w io.Writer, v PuzzleView) error {
	for _, s := range v.Hints().Starts {
		if _, err := fmt.Fprintf(w, "%s starts in %s in time 1\n", s.Character, s.Room); err != nil {
			return err
		}
	}
	return nil
}

// WriteRoomOccupants prints, for every room, who is in it at each time.
func WriteRoomOccupants(w io.Writer, v PuzzleView) error {
	for _, r := range v.Rooms {
		if _, err := fmt.Fprintln(w, r.Name); err != nil {
			return err
		}
		for t, occ := range r.Occupants {
			if _, err := fmt.Fprintf(w, "  Time %d: [%s]\n", t+1, strings.Join(occ, ", ")); err != nil {
				return err
			}
		}
	}
	return nil
}
