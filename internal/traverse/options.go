package traverse

import (
	"time"

	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/profile"
)

// Plan is the resolution mode and profile slice used for one page.
type Plan struct {
	Mode  oracle.Mode
	Slice any
}

// Options parameterize a traversal.
type Options struct {
	// Submit allows clicking the final submit control.
	Submit bool
	// MaxPages bounds the number of pages walked. Zero means 20.
	MaxPages int
	// Settle is the pause after every processed field and page change.
	Settle time.Duration
	// Now supplies the date for date-compound fields.
	Now func() time.Time
	// Plan picks the resolution mode for a page index.
	Plan func(page int) Plan
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = 20
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Plan == nil {
		o.Plan = func(int) Plan { return Plan{Mode: oracle.Exhaustive} }
	}
	return o
}

// ProfilePlan answers the first page from personal information and every
// later page exhaustively from the whole profile.
func ProfilePlan(p *profile.Profile) func(int) Plan {
	return func(page int) Plan {
		if page == 0 {
			return Plan{Mode: oracle.PersonalInfo, Slice: p.PersonalInformation}
		}
		return Plan{Mode: oracle.Exhaustive, Slice: p.All()}
	}
}
