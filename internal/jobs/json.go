package jobs

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/model"
)

// LoadJSON reads a job list of the form [{"url": ...}, ...].
func LoadJSON(path string) ([]model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: read %s", path)
	}
	var list []model.Job
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, eris.Wrapf(err, "jobs: decode %s", path)
	}
	return clean(list), nil
}

// WriteJSON writes jobs in the format LoadJSON reads.
func WriteJSON(path string, list []model.Job) error {
	if list == nil {
		list = []model.Job{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return eris.Wrap(err, "jobs: encode")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "jobs: write %s", path)
}
