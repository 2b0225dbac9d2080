// Package artifact persists run artifacts to local disk and object storage.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/model"
)

// Sink stores an artifact and returns where it was written.
type Sink interface {
	Write(ctx context.Context, a *model.RunArtifact) (string, error)
}

// Name returns the file name used for an artifact.
func Name(a *model.RunArtifact) string {
	return fmt.Sprintf("%s_%s.json", a.Timestamp.UTC().Format("20060102T150405Z"), a.RunID)
}

// Encode renders an artifact as indented JSON.
func Encode(a *model.RunArtifact) ([]byte, error) {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "artifact: encode")
	}
	return b, nil
}

// FileSink writes artifacts into a local directory.
type FileSink struct {
	Dir string
}

// Write implements Sink.
func (s FileSink) Write(_ context.Context, a *model.RunArtifact) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "artifact: create %s", s.Dir)
	}
	data, err := Encode(a)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, Name(a))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "artifact: write %s", path)
	}
	return path, nil
}

// Sinks fans an artifact out to several sinks.
type Sinks []Sink

// Write stores a in every sink. A failing sink is logged and skipped; the
// error is only returned when no sink succeeded.
func (ss Sinks) Write(ctx context.Context, a *model.RunArtifact) ([]string, error) {
	var (
		uris    []string
		lastErr error
	)
	for _, s := range ss {
		uri, err := s.Write(ctx, a)
		if err != nil {
			zap.L().Warn("artifact: sink failed", zap.String("run_id", a.RunID), zap.Error(err))
			lastErr = err
			continue
		}
		uris = append(uris, uri)
	}
	if len(uris) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return uris, nil
}

// FromConfig builds the configured sinks. The S3 sink is added only when a
// bucket is set.
func FromConfig(cfg config.ArtifactConfig) (Sinks, error) {
	sinks := Sinks{FileSink{Dir: cfg.Dir}}
	if cfg.S3Bucket == "" {
		return sinks, nil
	}
	s3s, err := NewS3Sink(cfg)
	if err != nil {
		return nil, err
	}
	return append(sinks, s3s), nil
}
