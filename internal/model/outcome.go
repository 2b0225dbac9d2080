package model

// FillReason explains the result of applying a value to a field.
type FillReason string

const (
	ReasonApplied          FillReason = "applied"
	ReasonSkippedExplicit  FillReason = "skipped_explicit"
	ReasonSkippedUnmatched FillReason = "skipped_unmatched"
	ReasonError            FillReason = "error"
)

// FillOutcome records what happened when a value was written to a field.
type FillOutcome struct {
	Descriptor     FieldDescriptor `json:"descriptor"`
	RequestedValue Value           `json:"requested_value"`
	Applied        bool            `json:"applied"`
	Reason         FillReason      `json:"reason"`
	Note           string          `json:"note,omitempty"`
	Error          string          `json:"error,omitempty"`
	DurationMS     int64           `json:"duration_ms"`
}

// Recordable reports whether the outcome belongs in the run artifact.
func (o FillOutcome) Recordable() bool {
	return o.Reason != ReasonSkippedExplicit
}

// AppliedOutcome builds an applied outcome.
func AppliedOutcome(d FieldDescriptor, v Value, note string) FillOutcome {
	return FillOutcome{Descriptor: d, RequestedValue: v, Applied: true, Reason: ReasonApplied, Note: note}
}

// SkippedOutcome builds a non-applied outcome with the given reason.
func SkippedOutcome(d FieldDescriptor, v Value, reason FillReason, note string) FillOutcome {
	return FillOutcome{Descriptor: d, RequestedValue: v, Reason: reason, Note: note}
}

// ErrorOutcome builds an outcome for a write that failed.
func ErrorOutcome(d FieldDescriptor, v Value, err error) FillOutcome {
	o := FillOutcome{Descriptor: d, RequestedValue: v, Reason: ReasonError}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
