package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Job:       model.Job{URL: "https://acme.wd1.myworkdayjobs.com/job/1", Title: "Engineer", Company: "Acme"},
			Status:    model.RunStatusSubmitted,
			Result:    &model.RunResult{Submitted: true, Applied: 14, TotalQuestions: 15},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Job:       model.Job{URL: "https://beta.wd5.myworkdayjobs.com/en-US/job/2"},
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "JOB")
	assert.Contains(t, output, "Engineer @ Acme")
	assert.Contains(t, output, "submitted")
	assert.Contains(t, output, "14/15")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "https://beta.wd5.myworkdayjobs.com/en...")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-")
}

func TestFormatRunStats(t *testing.T) {
	s := &store.Stats{
		TotalRuns: 4,
		ByStatus: map[model.RunStatus]int{
			model.RunStatusSubmitted: 2,
			model.RunStatusFailed:    2,
		},
		ByReason: map[model.FillReason]int{
			model.ReasonApplied:          30,
			model.ReasonSkippedUnmatched: 3,
		},
	}

	var buf bytes.Buffer
	formatRunStats(&buf, s)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "submitted:")
	assert.Contains(t, output, "Field outcomes:")
	assert.Contains(t, output, "applied:")
	assert.Contains(t, output, "30")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("applied:")), bytes.Index(buf.Bytes(), []byte("skipped_unmatched:")))
}

func TestFormatRunStats_NoOutcomes(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, &store.Stats{ByStatus: map[model.RunStatus]int{}})
	assert.NotContains(t, buf.String(), "Field outcomes:")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
