package model

// TraversalState is a state of the page traversal state machine.
type TraversalState string

const (
	StateScanning          TraversalState = "scanning"
	StateProcessingField   TraversalState = "processing_field"
	StateProcessingGroup   TraversalState = "processing_group"
	StateProcessingSection TraversalState = "processing_section"
	StateAdvancingPage     TraversalState = "advancing_page"
	StateTerminal          TraversalState = "terminal"
)

// SessionState is the mutable state of one traversal run. It is owned by a
// single session and never shared.
type SessionState struct {
	State     TraversalState `json:"state"`
	PageIndex int            `json:"page_index"`
	Cursor    int            `json:"cursor"`

	// Previously processed field, for duplicate suppression.
	Prev    FieldDescriptor `json:"-"`
	HasPrev bool            `json:"-"`

	Outcomes  []FillOutcome   `json:"outcomes"`
	Submitted bool            `json:"submitted"`
	Terminal  bool            `json:"terminal"`
	Sections  map[string]bool `json:"-"`
}

// NewSessionState returns a state positioned at the first control of page 0.
func NewSessionState() *SessionState {
	return &SessionState{
		State:    StateScanning,
		Sections: make(map[string]bool),
	}
}

// Record appends outcomes to the session log.
func (s *SessionState) Record(outcomes ...FillOutcome) {
	s.Outcomes = append(s.Outcomes, outcomes...)
}

// Track remembers d as the previously processed field. Unlabeled fields do
// not replace the tracked field.
func (s *SessionState) Track(d FieldDescriptor) {
	if !d.Labeled() {
		return
	}
	s.Prev = d
	s.HasPrev = true
}

// IsDuplicate reports whether d repeats the previously processed field behind
// a button-like opener. Spin fields are never treated as duplicates.
func (s *SessionState) IsDuplicate(d FieldDescriptor) bool {
	if !s.HasPrev || d.Role == "spinbutton" || d.Kind == KindSpinbutton {
		return false
	}
	return s.Prev.ButtonLike() && s.Prev.SameQuestion(d)
}

// NextPage moves to the first control of the following page.
func (s *SessionState) NextPage() {
	s.PageIndex++
	s.Cursor = 0
	s.Prev = FieldDescriptor{}
	s.HasPrev = false
	s.State = StateScanning
}

// Finish marks the session terminal.
func (s *SessionState) Finish(submitted bool) {
	s.Submitted = s.Submitted || submitted
	s.Terminal = true
	s.State = StateTerminal
}
