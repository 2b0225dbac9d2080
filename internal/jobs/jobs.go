// Package jobs loads the list of application forms a batch should fill.
package jobs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/model"
)

// Source yields the jobs of one batch.
type Source interface {
	Jobs(ctx context.Context) ([]model.Job, error)
}

// File reads jobs from a JSON, XLSX or CSV file chosen by extension.
type File struct {
	Path string
}

// Jobs implements Source.
func (f File) Jobs(_ context.Context) ([]model.Job, error) {
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".json":
		return LoadJSON(f.Path)
	case ".xlsx":
		return LoadXLSX(f.Path)
	case ".csv":
		return LoadCSV(f.Path)
	default:
		return nil, eris.Errorf("jobs: unsupported file type %q", f.Path)
	}
}

// Slice applies --start and --limit to jobs. A non-positive limit keeps
// everything after start.
func Slice(jobs []model.Job, start, limit int) []model.Job {
	if start < 0 {
		start = 0
	}
	if start >= len(jobs) {
		return nil
	}
	jobs = jobs[start:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// clean trims urls and drops blank or repeated ones, keeping first-seen order.
func clean(in []model.Job) []model.Job {
	seen := make(map[string]bool, len(in))
	out := make([]model.Job, 0, len(in))
	for _, j := range in {
		j.URL = strings.TrimSpace(j.URL)
		j.Title = strings.TrimSpace(j.Title)
		j.Company = strings.TrimSpace(j.Company)
		if j.URL == "" || seen[j.URL] {
			continue
		}
		seen[j.URL] = true
		out = append(out, j)
	}
	return out
}

// columns locates the url, title and company columns in a header row.
type columns struct {
	url, title, company int
}

func headerColumns(header []string) (columns, error) {
	c := columns{url: -1, title: -1, company: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "url", "link", "apply url":
			if c.url < 0 {
				c.url = i
			}
		case "title", "job title", "position":
			c.title = i
		case "company", "employer":
			c.company = i
		}
	}
	if c.url < 0 {
		return c, eris.New("jobs: no url column in header")
	}
	return c, nil
}

func (c columns) job(row []string) model.Job {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return model.Job{URL: cell(c.url), Title: cell(c.title), Company: cell(c.company)}
}

// fromRows converts a header-led table into jobs.
func fromRows(rows [][]string) ([]model.Job, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols, err := headerColumns(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]model.Job, 0, len(rows)-1)
	for _, r := range rows[1:] {
		out = append(out, cols.job(r))
	}
	return clean(out), nil
}
