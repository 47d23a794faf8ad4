package pipeline

// Status is the terminal state of a translation run.
type Status string

const (
	StatusSuccess        Status = "Success"
	StatusPartialSuccess Status = "Partial Success"
	StatusFailure        Status = "Failure"
	StatusSkipped        Status = "Skipped"
)

// Result contains the structured outcome of RunTranslation.
type Result struct {
	Status     Status
	RunID      string
	OutputPath string

	TotalUnits    int
	FailedUnits   int
	TotalBatches  int
	FailedBatches int

	// MismatchedUnits counts translated units whose numbers, URLs or
	// bracket pairing drifted from the source. They still ship; the count
	// surfaces in the run report for manual review.
	MismatchedUnits int
}

// statusOf derives the run status from batch failure counts.
func statusOf(failedBatches, totalBatches int) Status {
	switch {
	case totalBatches == 0 || failedBatches == 0:
		return StatusSuccess
	case failedBatches < totalBatches:
		return StatusPartialSuccess
	default:
		return StatusFailure
	}
}
