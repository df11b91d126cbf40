// internal/services/storage/s3.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"pdfwatch/internal/config"
	"pdfwatch/internal/domain/events"
)

// S3Service archives printed PDFs in S3
type S3Service struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

// NewS3Service creates a new archive service. Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func NewS3Service(cfg config.S3Config) (*S3Service, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3Service(s3manager.NewUploader(sess), cfg.Bucket, cfg.Prefix), nil
}

func newS3Service(uploader s3manageriface.UploaderAPI, bucket, prefix string) *S3Service {
	return &S3Service{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3Service) Name() string { return "s3" }

func (s *S3Service) JobQueued(context.Context, events.PrintJob) error { return nil }

// JobFinished uploads the file once it has actually been sent to the printer.
func (s *S3Service) JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult) error {
	if result.Status != events.StatusPrinted {
		return nil
	}
	_, err := s.Archive(ctx, job)
	return err
}

// Archive uploads the job's file and returns its key
func (s *S3Service) Archive(ctx context.Context, job events.PrintJob) (string, error) {
	f, err := os.Open(job.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for archiving: %w", job.FilePath, err)
	}
	defer f.Close()

	key := archiveKey(s.prefix, job)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
		Metadata: map[string]*string{
			"job-id":      aws.String(job.ID.String()),
			"source-path": aws.String(job.FilePath),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

func (s *S3Service) Close() error { return nil }

// archiveKey is <prefix>/<yyyymmdd>/<job id>-<file name>
func archiveKey(prefix string, job events.PrintJob) string {
	day := job.QueuedAt.UTC().Format("20060102")
	if job.QueuedAt.IsZero() {
		day = time.Now().UTC().Format("20060102")
	}
	return path.Join(prefix, day, job.ID.String()+"-"+job.FileName)
}
