package oracle

import (
	"fmt"

	"github.com/sells-group/autoapply/internal/model"
)

// RequestKey correlates a descriptor sent to the oracle with the value it
// returns.
type RequestKey string

// KeyOf renders the correlation key of d.
func KeyOf(d model.FieldDescriptor) RequestKey {
	gc := d.GroupContext
	if gc == "" {
		gc = "none"
	}
	return RequestKey(fmt.Sprintf("[%s, %s, %s, %s]", d.Question, d.StructuralID, d.Kind, gc))
}

// Mode selects the instruction given to the oracle.
type Mode string

const (
	// Exhaustive requires an answer for every field.
	Exhaustive Mode = "exhaustive"
	// BestEffort allows SKIP when the profile has nothing relevant.
	BestEffort Mode = "best_effort"
	// PersonalInfo is exhaustive with demographic and compliance defaults.
	PersonalInfo Mode = "personal_info"
)

// AllowsSkip reports whether the oracle may answer SKIP in this mode.
func (m Mode) AllowsSkip() bool {
	return m == BestEffort
}
