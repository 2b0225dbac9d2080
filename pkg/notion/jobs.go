package notion

import (
	"context"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Job database property names.
const (
	PropName      = "Name"
	PropURL       = "URL"
	PropCompany   = "Company"
	PropStatus    = "Status"
	PropNote      = "Note"
	PropAppliedAt = "Applied At"
)

// Job statuses used in the Status property.
const (
	StatusQueued    = "Queued"
	StatusSubmitted = "Submitted"
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
)

// maxNoteLen bounds the note written back on failure.
const maxNoteLen = 200

// JobPage is a queued application read from the job database.
type JobPage struct {
	PageID  string
	URL     string
	Title   string
	Company string
}

// QueryQueuedJobs fetches all pages with Status = "Queued".
func QueryQueuedJobs(ctx context.Context, c Client, dbID string) ([]JobPage, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropStatus,
			Status: &notionapi.StatusFilterCondition{
				Equals: StatusQueued,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query queued jobs")
	}

	jobs := make([]JobPage, 0, len(pages))
	for _, p := range pages {
		j := JobFromPage(p)
		if j.URL == "" {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// JobFromPage reads the job properties of a database page.
func JobFromPage(page notionapi.Page) JobPage {
	j := JobPage{PageID: string(page.ID)}

	if prop, ok := page.Properties[PropName]; ok {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			j.Title = plainText(tp.Title)
		}
	}
	if prop, ok := page.Properties[PropURL]; ok {
		if up, ok := prop.(*notionapi.URLProperty); ok {
			j.URL = strings.TrimSpace(up.URL)
		}
	}
	if prop, ok := page.Properties[PropCompany]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			j.Company = plainText(rtp.RichText)
		}
	}
	return j
}

func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// MarkJobResult writes the final status back to a job page. A non-empty note
// is truncated and stored alongside it.
func MarkJobResult(ctx context.Context, c Client, pageID, status, note string, at time.Time) error {
	now := notionapi.Date(at)
	props := notionapi.Properties{
		PropStatus: notionapi.StatusProperty{
			Status: notionapi.Status{Name: status},
		},
		PropAppliedAt: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &now},
		},
	}
	if note != "" {
		if len(note) > maxNoteLen {
			note = note[:maxNoteLen]
		}
		props[PropNote] = notionapi.RichTextProperty{RichText: richText(note)}
	}

	if _, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		return eris.Wrapf(err, "notion: mark job %s %s", pageID, status)
	}
	return nil
}

// CreateJobPage adds a queued job to the database.
func CreateJobPage(ctx context.Context, c Client, dbID string, j JobPage) (string, error) {
	title := j.Title
	if title == "" {
		title = j.URL
	}
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(title),
		},
		PropURL: notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  j.URL,
		},
		PropStatus: notionapi.StatusProperty{
			Status: notionapi.Status{Name: StatusQueued},
		},
	}
	if j.Company != "" {
		props[PropCompany] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(j.Company),
		}
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: create job page %s", j.URL)
	}
	return string(page.ID), nil
}

// ImportJobs creates a queued page per job, skipping duplicate URLs. It
// returns the number of pages created.
func ImportJobs(ctx context.Context, c Client, dbID string, jobs []JobPage) (int, error) {
	seen := make(map[string]bool, len(jobs))
	created := 0
	for _, j := range jobs {
		if ctx.Err() != nil {
			return created, eris.Wrap(ctx.Err(), "notion: import jobs cancelled")
		}
		u := strings.TrimSpace(j.URL)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		j.URL = u
		if _, err := CreateJobPage(ctx, c, dbID, j); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
