package tracker

import (
	"fmt"
	"io"
	"strconv"
)

// Summary counts detections per class over all processed frames.
type Summary struct {
	Frames int

	names  []string
	counts map[int]int
	order  []int // Class IDs in the order they were first seen.
}

// NewSummary returns an empty summary that resolves class IDs through names.
func NewSummary(names []string) *Summary {
	return &Summary{names: names, counts: make(map[int]int)}
}

// Add records the detections of one frame.
func (s *Summary) Add(detections []Detection) {
	s.Frames++
	for _, d := range detections {
		if _, seen := s.counts[d.ClassID]; !seen {
			s.order = append(s.order, d.ClassID)
		}
		s.counts[d.ClassID]++
	}
}

// Count returns the number of detections of class id.
func (s *Summary) Count(id int) int {
	return s.counts[id]
}

// Total returns the number of detections over all classes.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Name returns the class name for id, falling back to the numeric ID.
func (s *Summary) Name(id int) string {
	if id >= 0 && id < len(s.names) {
		return s.names[id]
	}
	return strconv.Itoa(id)
}

// Print writes the per-class counts to w.
func (s *Summary) Print(w io.Writer) error {
	if _, err := fmt.Fprint(w, "\n[TRACKING SUMMARY]\n"); err != nil {
		return err
	}
	if len(s.order) == 0 {
		_, err := fmt.Fprintln(w, " - No objects detected.")
		return err
	}
	for _, id := range s.order {
		if _, err := fmt.Fprintf(w, " - %s: %d detected\n", s.Name(id), s.counts[id]); err != nil {
			return err
		}
	}
	return nil
}
