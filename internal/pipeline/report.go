package pipeline

import "github.com/phrazzld/scry-tagger/internal/task"

// PartitionResult summarizes the work done on one deck.
type PartitionResult struct {
	Deck   string
	Status task.TaskStatus

	// Cards is the size of the partition; Pending excludes cards that
	// already carried the processed marker.
	Cards   int
	Pending int

	// Updated counts card updates applied by reconciled windows, summed over
	// task kinds.
	Updated    int
	Windows    int
	Mismatches int

	// Marked counts cards that received the processed marker.
	Marked int

	// Err is the service, cancellation or write-back failure that stopped
	// the deck, if any.
	Err error
}

// Report summarizes a run, one entry per non-empty partition in input order.
type Report struct {
	Workers    int
	Partitions []PartitionResult

	// Unstarted counts decks no worker picked up before the run was
	// cancelled.
	Unstarted int
}

// Updated returns the total number of card updates.
func (r Report) Updated() int {
	n := 0
	for _, p := range r.Partitions {
		n += p.Updated
	}
	return n
}

// Mismatches returns the total number of mismatched windows.
func (r Report) Mismatches() int {
	n := 0
	for _, p := range r.Partitions {
		n += p.Mismatches
	}
	return n
}

// Failed returns the decks that ended with an error.
func (r Report) Failed() []PartitionResult {
	var failed []PartitionResult
	for _, p := range r.Partitions {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}
