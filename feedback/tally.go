package feedback

import "sort"

// Tally is the cumulative number of frames observed for each action label
// across a session.  Counts only ever increase.
type Tally struct {
	counts map[string]int
}

// NewTally returns an empty tally
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add increases the frame count of the label.  Negative counts are ignored.
func (t *Tally) Add(label string, frames int) {

	if frames <= 0 {
		return
	}

	t.counts[label] += frames
}

// Count returns the frame count for the label
func (t *Tally) Count(label string) int {
	return t.counts[label]
}

// Total returns the frame count across all labels
func (t *Tally) Total() int {

	total := 0

	for _, n := range t.counts {
		total += n
	}

	return total
}

// Labels returns the tallied labels in alphabetical order
func (t *Tally) Labels() []string {

	labels := make([]string, 0, len(t.counts))

	for label := range t.counts {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	return labels
}

// Counts returns a copy of the label counts
func (t *Tally) Counts() map[string]int {

	out := make(map[string]int, len(t.counts))

	for label, n := range t.counts {
		out[label] = n
	}

	return out
}
