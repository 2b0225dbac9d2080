package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/model"
)

// S3Sink uploads artifacts to an S3 bucket.
type S3Sink struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Sink creates a sink using the default AWS credential chain.
func NewS3Sink(cfg config.ArtifactConfig) (*S3Sink, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.S3Region)})
	if err != nil {
		return nil, eris.Wrap(err, "artifact: aws session")
	}
	return NewS3SinkWithClient(s3.New(sess), cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewS3SinkWithClient creates a sink over an existing client.
func NewS3SinkWithClient(client s3iface.S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for an artifact.
func (s *S3Sink) Key(a *model.RunArtifact) string {
	return path.Join(s.prefix, a.Timestamp.UTC().Format("2006/01/02"), Name(a))
}

// Write implements Sink.
func (s *S3Sink) Write(ctx context.Context, a *model.RunArtifact) (string, error) {
	data, err := Encode(a)
	if err != nil {
		return "", err
	}
	key := s.Key(a)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", eris.Wrapf(err, "artifact: put s3://%s/%s", s.bucket, key)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
