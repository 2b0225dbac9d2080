package model

import "time"

// RunStatus represents the current state of an application run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSubmitted RunStatus = "submitted"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Finished reports whether the status is terminal.
func (s RunStatus) Finished() bool {
	return s == RunStatusSubmitted || s == RunStatusCompleted || s == RunStatusFailed
}

// Job is one application form to fill.
type Job struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Company      string `json:"company,omitempty"`
	NotionPageID string `json:"notion_page_id,omitempty"`
}

// Run is a persisted application run.
type Run struct {
	ID        string     `json:"id"`
	Job       Job        `json:"job"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Submitted      bool          `json:"submitted"`
	Pages          int           `json:"pages"`
	TotalQuestions int           `json:"total_questions"`
	Applied        int           `json:"applied"`
	Skipped        int           `json:"skipped"`
	Errors         int           `json:"errors"`
	ArtifactURIs   []string      `json:"artifact_uris,omitempty"`
	Timing         TimingSummary `json:"timing"`
}

// NewRunResult summarizes an artifact into a run result.
func NewRunResult(a *RunArtifact, uris []string) *RunResult {
	r := &RunResult{
		Submitted:      a.Submitted,
		Pages:          a.Pages,
		TotalQuestions: a.TotalQuestions,
		ArtifactURIs:   uris,
		Timing:         a.Timing,
	}
	for _, rec := range a.ApplicationData {
		switch rec.Reason {
		case ReasonApplied:
			r.Applied++
		case ReasonError:
			r.Errors++
		default:
			r.Skipped++
		}
	}
	return r
}
