package reliability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// R2Config names the S3-compatible bucket the daily snapshot is uploaded
// to (Cloudflare R2, but anything speaking the S3 API works). Empty
// AccountID/BucketName disables the backup job.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// Enabled reports whether enough R2Config is present to run backups.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

// R2Client wraps an s3.Client pointed at an R2 account's S3-compatible
// endpoint.
type R2Client struct {
	uploader *manager.Uploader
	bucket   string
}

// NewR2Client builds an R2Client from cfg. R2's S3-compatible endpoint is
// account-scoped (https://<account_id>.r2.cloudflarestorage.com), so it's
// supplied via a custom endpoint resolver rather than AWS's region-based
// resolution.
func NewR2Client(ctx context.Context, cfg R2Config) (*R2Client, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("reliability: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Client{uploader: manager.NewUploader(client), bucket: cfg.BucketName}, nil
}

// Upload streams r to key in the configured bucket.
func (c *R2Client) Upload(ctx context.Context, key string, r io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	return err
}

// Snapshotter is the subset of sqlite.Store the backup job needs: a way to
// write a consistent point-in-time copy of the database to a local path.
type Snapshotter interface {
	Snapshot(ctx context.Context, destPath string) error
}

// BackupJob is a scheduler.Job that snapshots the database and uploads it
// to R2 on a daily cadence, covering this module's single-database layout.
type BackupJob struct {
	store   Snapshotter
	r2      *R2Client
	dataDir string
	log     zerolog.Logger
}

func NewBackupJob(store Snapshotter, r2 *R2Client, dataDir string, log zerolog.Logger) *BackupJob {
	return &BackupJob{store: store, r2: r2, dataDir: dataDir, log: log.With().Str("component", "backup").Logger()}
}

func (j *BackupJob) Name() string { return "backup" }

func (j *BackupJob) Run(ctx context.Context) error {
	stagingPath := filepath.Join(j.dataDir, fmt.Sprintf("confluence-snapshot-%s.db", time.Now().UTC().Format("2006-01-02-150405")))
	if err := j.store.Snapshot(ctx, stagingPath); err != nil {
		return fmt.Errorf("backup: snapshot: %w", err)
	}
	defer os.Remove(stagingPath)

	checksum, err := checksumFile(stagingPath)
	if err != nil {
		return fmt.Errorf("backup: checksum: %w", err)
	}

	f, err := os.Open(stagingPath)
	if err != nil {
		return fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer f.Close()

	key := filepath.Base(stagingPath)
	if err := j.r2.Upload(ctx, key, f); err != nil {
		return fmt.Errorf("backup: upload: %w", err)
	}

	j.log.Info().Str("key", key).Str("sha256", checksum).Msg("database snapshot uploaded")
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
