package pipeline

// Per-file batch outcomes. Every discovered file ends the run in exactly
// one of these.
const (
	OutcomeMoved            = "moved"
	OutcomeSkippedDuplicate = "skipped_duplicate"
	OutcomeFailedExtraction = "failed_extraction"
	OutcomeFailedCommit     = "failed_commit"
	// the metadata commit succeeded but the source could not be moved
	// out of pending; the document is fully processed and the leftover
	// source is recovered as a duplicate on the next run.
	OutcomeCommittedNotMoved = "committed_not_moved"
)

// FileReport records what happened to one pending file.
type FileReport struct {
	Filename string `json:"filename"`
	Outcome  string `json:"outcome"`
	// Stage names where a failure happened (extract, stage, commit, move).
	Stage string `json:"stage,omitempty"`
	Err   string `json:"error,omitempty"`
}

// Report aggregates one ProcessPending run.
type Report struct {
	Files []FileReport `json:"files"`

	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

func (r *Report) add(fr FileReport) {
	r.Files = append(r.Files, fr)
	switch fr.Outcome {
	case OutcomeMoved, OutcomeCommittedNotMoved:
		r.Processed++
	case OutcomeSkippedDuplicate:
		r.Duplicates++
	default:
		r.Failed++
	}
}
