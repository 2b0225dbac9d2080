package model

import "time"

// ArtifactRecord is one answered question in a run artifact.
type ArtifactRecord struct {
	Question      string      `json:"question"`
	Tag           string      `json:"tag"`
	ControlKind   ControlKind `json:"control_kind"`
	Options       []string    `json:"options"`
	ResolvedValue Value       `json:"resolved_value"`
	Applied       bool        `json:"applied"`
	Reason        FillReason  `json:"reason"`
}

// QuestionTiming is the time spent on one processed field.
type QuestionTiming struct {
	Question     string `json:"question"`
	StructuralID string `json:"structural_id"`
	DurationMS   int64  `json:"duration_ms"`
	Response     Value  `json:"response"`
}

// TimingSummary aggregates per-field timings for a session.
type TimingSummary struct {
	TotalQuestions int              `json:"total_questions"`
	TotalTimeMS    int64            `json:"total_time_ms"`
	AverageTimeMS  int64            `json:"average_time_ms"`
	FastestMS      int64            `json:"fastest_ms"`
	SlowestMS      int64            `json:"slowest_ms"`
	PerQuestion    []QuestionTiming `json:"per_question"`
}

// RunArtifact is the persisted audit trail of one session.
type RunArtifact struct {
	RunID           string           `json:"run_id"`
	URL             string           `json:"url"`
	Timestamp       time.Time        `json:"timestamp"`
	Submitted       bool             `json:"submitted"`
	Pages           int              `json:"pages"`
	TotalQuestions  int              `json:"total_questions"`
	ApplicationData []ArtifactRecord `json:"application_data"`
	Timing          TimingSummary    `json:"timing"`
}

// NewTimingSummary computes aggregate timings over the given entries.
func NewTimingSummary(timings []QuestionTiming) TimingSummary {
	s := TimingSummary{
		TotalQuestions: len(timings),
		PerQuestion:    timings,
	}
	if s.PerQuestion == nil {
		s.PerQuestion = []QuestionTiming{}
	}
	for i, t := range timings {
		s.TotalTimeMS += t.DurationMS
		if i == 0 || t.DurationMS < s.FastestMS {
			s.FastestMS = t.DurationMS
		}
		if t.DurationMS > s.SlowestMS {
			s.SlowestMS = t.DurationMS
		}
	}
	if len(timings) > 0 {
		s.AverageTimeMS = s.TotalTimeMS / int64(len(timings))
	}
	return s
}

// NewRunArtifact builds the artifact for a finished session. Outcomes are
// kept in traversal order.
func NewRunArtifact(runID, url string, state *SessionState, at time.Time) *RunArtifact {
	a := &RunArtifact{
		RunID:           runID,
		URL:             url,
		Timestamp:       at.UTC(),
		ApplicationData: []ArtifactRecord{},
	}
	if state == nil {
		a.Timing = NewTimingSummary(nil)
		return a
	}

	a.Submitted = state.Submitted
	a.Pages = state.PageIndex + 1

	var timings []QuestionTiming
	for _, o := range state.Outcomes {
		if !o.Recordable() {
			continue
		}
		tag := o.Descriptor.Tag
		if o.Descriptor.Kind == KindRadioGroup {
			tag = string(KindRadioGroup)
		}
		a.ApplicationData = append(a.ApplicationData, ArtifactRecord{
			Question:      o.Descriptor.Question,
			Tag:           tag,
			ControlKind:   o.Descriptor.Kind,
			Options:       o.Descriptor.Options,
			ResolvedValue: o.RequestedValue,
			Applied:       o.Applied,
			Reason:        o.Reason,
		})
		timings = append(timings, QuestionTiming{
			Question:     o.Descriptor.Question,
			StructuralID: o.Descriptor.StructuralID,
			DurationMS:   o.DurationMS,
			Response:     o.RequestedValue,
		})
	}
	a.TotalQuestions = len(a.ApplicationData)
	a.Timing = NewTimingSummary(timings)
	return a
}
