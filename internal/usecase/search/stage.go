package search

import "fmt"

// Stage is a step of the query pipeline. A query moves strictly forward:
// received, analyzed, candidates_retrieved, scored, ranked, returned.
type Stage string

// Pipeline stages.
const (
	StageReceived            Stage = "received"
	StageAnalyzed            Stage = "analyzed"
	StageCandidatesRetrieved Stage = "candidates_retrieved"
	StageScored              Stage = "scored"
	StageRanked              Stage = "ranked"
	StageReturned            Stage = "returned"
)

// StageError is a failed query. Stage is the step that could not be reached.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("search failed before %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
