package jobs

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/pkg/notion"
)

// Notion reads queued jobs from a Notion database and writes each run's
// final status back to its page.
type Notion struct {
	Client notion.Client
	DB     string
	Now    func() time.Time
}

func (n *Notion) db() notion.JobDB {
	return notion.JobDB{Client: n.Client, ID: n.DB}
}

// Jobs implements Source.
func (n *Notion) Jobs(ctx context.Context) ([]model.Job, error) {
	pages, err := n.db().Queued(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: notion queue")
	}
	out := make([]model.Job, 0, len(pages))
	for _, p := range pages {
		out = append(out, model.Job{URL: p.URL, Title: p.Title, Company: p.Company, NotionPageID: p.PageID})
	}
	return clean(out), nil
}

// Report writes the outcome of one run back to the job's page. Jobs that did
// not come from Notion are ignored.
func (n *Notion) Report(ctx context.Context, job model.Job, run *model.RunResult, runErr error) error {
	if job.NotionPageID == "" {
		return nil
	}
	status, note := notion.StatusCompleted, ""
	switch {
	case runErr != nil:
		status, note = notion.StatusFailed, runErr.Error()
	case run != nil && run.Submitted:
		status = notion.StatusSubmitted
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	if err := n.db().Mark(ctx, job.NotionPageID, status, note, now()); err != nil {
		zap.L().Warn("jobs: notion write-back failed",
			zap.String("url", job.URL),
			zap.String("status", status),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Import creates a queued Notion page for each job and returns the count.
func (n *Notion) Import(ctx context.Context, list []model.Job) (int, error) {
	pages := make([]notion.JobPage, 0, len(list))
	for _, j := range list {
		pages = append(pages, notion.JobPage{URL: j.URL, Title: j.Title, Company: j.Company})
	}
	return n.db().Import(ctx, pages)
}
