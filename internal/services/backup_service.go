package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "workshop-backend/internal/config"
	"workshop-backend/internal/timeutil"
)

// BackupService exports ledger snapshots to S3-compatible object
// storage (R2, MinIO). Optional: when no bucket is configured the
// endpoint reports backups as disabled.
type BackupService struct {
	Store LedgerStore
	cfg   *appconfig.Config
}

func NewBackupService(store LedgerStore, cfg *appconfig.Config) *BackupService {
	return &BackupService{Store: store, cfg: cfg}
}

// Enabled reports whether backup storage is configured.
func (s *BackupService) Enabled() bool {
	return s.cfg.Backup.Bucket != "" && s.cfg.Backup.AccessKey != ""
}

// ExportSnapshot marshals the full ledger and uploads it under a
// timestamped key. Returns the object key.
func (s *BackupService) ExportSnapshot(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "", errors.New("backup storage is not configured")
	}

	vehicles, err := s.Store.ListAll(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(vehicles)
	if err != nil {
		return "", err
	}

	client, err := s.newClient(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("backups/ledger-%s.json", timeutil.Now().Format("20060102-150405"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Backup.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	log.Printf("[Backup] Ledger snapshot uploaded as %s (%d vehicles)", key, len(vehicles))
	return key, nil
}

func (s *BackupService) newClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.Backup.AccessKey,
			s.cfg.Backup.SecretKey,
			"",
		)),
		awsconfig.WithRegion(s.cfg.Backup.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure backup client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Backup.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Backup.Endpoint)
		}
	}), nil
}
