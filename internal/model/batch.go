package model

// BatchStats holds process-wide counters for one batch invocation.
type BatchStats struct {
	TotalProcessed int `json:"total_processed"`
	Succeeded      int `json:"succeeded"`
	Submitted      int `json:"submitted"`
	Failed         int `json:"failed"`
}

// Observe folds one finished session into the counters.
func (s *BatchStats) Observe(err error, submitted bool) {
	s.TotalProcessed++
	if err != nil {
		s.Failed++
		return
	}
	s.Succeeded++
	if submitted {
		s.Submitted++
	}
}

// CompletedWithoutSubmission is the number of sessions that finished
// without clicking a submit control.
func (s BatchStats) CompletedWithoutSubmission() int {
	return s.Succeeded - s.Submitted
}

// SuccessRate is the percentage of processed sessions that submitted.
func (s BatchStats) SuccessRate() float64 {
	return float64(s.Submitted) / float64(max(1, s.TotalProcessed)) * 100
}
