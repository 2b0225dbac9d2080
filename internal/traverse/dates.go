package traverse

import (
	"strings"
	"time"

	"github.com/sells-group/autoapply/internal/model"
)

// Identifiers of the self-identification signature date.
const (
	dateSectionID       = "dateSection"
	disabilitySectionID = "selfIdentifiedDisabilityData-section"
	birthdateFallback   = "01/01/1990"
	dateLayout          = "01/02/2006"
)

// isSignatureDate reports whether a control belongs to the disability
// disclosure date triple.
func isSignatureDate(structuralID, groupContext string) bool {
	return strings.Contains(structuralID, dateSectionID) && groupContext == disabilitySectionID
}

// datePart returns the day, month or year of now matching the control id.
func datePart(structuralID string, now time.Time) (string, bool) {
	id := strings.ToLower(structuralID)
	switch {
	case strings.Contains(id, "month"):
		return now.Format("01"), true
	case strings.Contains(id, "day"):
		return now.Format("02"), true
	case strings.Contains(id, "year"):
		return now.Format("2006"), true
	}
	return "", false
}

// dateFallback supplies a value for date fields the oracle left empty.
func dateFallback(d model.FieldDescriptor, now time.Time) (model.Value, bool) {
	id := strings.ToLower(d.StructuralID)
	switch {
	case strings.Contains(id, "birthdate") || strings.Contains(id, "dateofbirth"):
		return model.Text(birthdateFallback), true
	case strings.Contains(id, "availabilitydate") || strings.Contains(id, "availabledate"):
		return model.Text(now.Format(dateLayout)), true
	}
	return model.Value{}, false
}
