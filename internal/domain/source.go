package domain

// Source identifies which launch feed produced a token candidate.
type Source string

const (
	SourceStream    Source = "STREAM"    // logsSubscribe over WebSocket
	SourcePoll      Source = "POLL"      // getSignaturesForAddress polling
	SourceSimulated Source = "SIMULATED" // seeded dry-run generator
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceStream || s == SourcePoll || s == SourceSimulated
}
