package jobs

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/model"
)

// LoadCSV reads jobs from a CSV file whose header names a url column.
func LoadCSV(path string) ([]model.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: read csv %s", path)
	}
	list, err := fromRows(records)
	return list, eris.Wrapf(err, "jobs: parse %s", path)
}
