package section

import "strings"

// Route names how a labelled section of the form is handled.
type Route string

const (
	RouteExperience Route = "experience"
	RouteEducation  Route = "education"
	RouteLanguage   Route = "language"
	RouteSkills     Route = "skills"
	RouteResume     Route = "resume"
	RouteSkip       Route = "skip"
	// RouteGeneric sections are walked field by field by the orchestrator.
	RouteGeneric Route = "generic"
)

var routes = []struct {
	keywords []string
	route    Route
}{
	{[]string{"work", "experience", "history"}, RouteExperience},
	{[]string{"education"}, RouteEducation},
	{[]string{"language"}, RouteLanguage},
	{[]string{"skill"}, RouteSkills},
	{[]string{"resume", "document"}, RouteResume},
	{[]string{"website", "portfolio"}, RouteSkip},
}

// RouteOf picks the route for a section from its aria-labelledby reference.
func RouteOf(ref string) Route {
	r := strings.ToLower(ref)
	for _, rt := range routes {
		for _, kw := range rt.keywords {
			if strings.Contains(r, kw) {
				return rt.route
			}
		}
	}
	return RouteGeneric
}

// Repeatable reports whether the route adds one panel per profile item.
func (r Route) Repeatable() bool {
	return r == RouteExperience || r == RouteEducation || r == RouteLanguage
}
