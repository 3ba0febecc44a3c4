package receipt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds R2 object storage settings
type Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Archiver stores completed-transaction receipts in R2 through the S3 API
type Archiver struct {
	client *s3.Client
	bucket string
}

// NewArchiver creates the R2-backed archiver
func NewArchiver(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("receipt archive is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})

	return &Archiver{client: client, bucket: cfg.Bucket}, nil
}

// ArchiveReceipt uploads the transaction JSON, keyed by month and reference
func (a *Archiver) ArchiveReceipt(ctx context.Context, reference string, payload []byte) error {
	key := fmt.Sprintf("receipts/%s/%s.json", time.Now().UTC().Format("2006/01"), reference)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive receipt: %w", err)
	}
	return nil
}
