package pipeline

// RunStats tracks aggregate counters across a folder run.
type RunStats struct {
	Total        int
	Kept         int
	Deleted      int // In a dry run: clips that would have been deleted.
	Unreadable   int // Kept because they could not be decoded.
	DeleteFailed int
	BytesFreed   int64

	Concatenated bool
	Compressed   bool
	Frames       int // Frames written to the output.

	DiscoveryFailed bool
	ConcatFailed    bool
	Interrupted     bool
}

// Failed reports whether the run ended in a state the caller should treat
// as an error. Deletion races and unreadable clips are not failures.
func (s *RunStats) Failed() bool {
	return s.DiscoveryFailed || s.ConcatFailed || s.Interrupted
}
