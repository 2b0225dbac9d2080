// Package notion reads and updates the job queue kept in a Notion database.
package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the subset of the Notion API the job queue needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// DefaultRate is the request rate Notion allows per integration.
const DefaultRate = 3

// ClientOption configures NewClient.
type ClientOption func(*api)

// WithRateLimit sets requests per second. Zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(a *api) {
		a.limiter = nil
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type api struct {
	sdk     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient returns a throttled Client for an integration token.
func NewClient(token string, opts ...ClientOption) Client {
	a := &api{
		sdk:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(DefaultRate, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// call waits for a rate slot, then runs fn and tags its error with op.
func call[T any](ctx context.Context, a *api, op string, fn func() (T, error)) (T, error) {
	var zero T
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return zero, eris.Wrapf(err, "notion: %s: rate limit", op)
		}
	}
	v, err := fn()
	if err != nil {
		return zero, eris.Wrapf(err, "notion: %s", op)
	}
	return v, nil
}

func (a *api) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return call(ctx, a, "query database "+dbID, func() (*notionapi.DatabaseQueryResponse, error) {
		return a.sdk.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
}

func (a *api) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return call(ctx, a, "create page", func() (*notionapi.Page, error) {
		return a.sdk.Page.Create(ctx, req)
	})
}

func (a *api) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return call(ctx, a, "update page "+pageID, func() (*notionapi.Page, error) {
		return a.sdk.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
}

// QueryAll runs a database query and follows cursors until the last page.
// Only the filter, sorts and page size of query are used.
func QueryAll(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var (
		all    []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if query != nil {
			req.Filter, req.Sorts, req.PageSize = query.Filter, query.Sorts, query.PageSize
		}
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrapf(err, "notion: query all %s", dbID)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// JobDB is a Client bound to one job queue database.
type JobDB struct {
	Client Client
	ID     string
}

// Queued returns the jobs waiting to be applied to.
func (db JobDB) Queued(ctx context.Context) ([]JobPage, error) {
	return QueryQueuedJobs(ctx, db.Client, db.ID)
}

// Mark records a run's final status on its job page.
func (db JobDB) Mark(ctx context.Context, pageID, status, note string, at time.Time) error {
	return MarkJobResult(ctx, db.Client, pageID, status, note, at)
}

// Import queues jobs in the database and returns how many pages it created.
func (db JobDB) Import(ctx context.Context, jobs []JobPage) (int, error) {
	return ImportJobs(ctx, db.Client, db.ID, jobs)
}
