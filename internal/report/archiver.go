package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/google/uuid"
)

// S3Archiver keeps a copy of every published report fragment in object
// storage for analytics replay, under keys like:
//
//	s3://<bucket>/<prefix>/reports/YYYY/MM/DD/<userID>/<fragmentID>.json
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
	now      func() time.Time
}

func NewS3Archiver(cfg aws.Config, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket required")
	}
	client := s3.NewFromConfig(cfg)
	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
		now:      time.Now,
	}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, userID string, fragment []byte) error {
	ts := a.now().UTC()
	year, month, day := ts.Date()
	key := path.Join(a.prefix, "reports",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		userID,
		fmt.Sprintf("%s.json", uuid.NewString()),
	)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fragment),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return nil
}
