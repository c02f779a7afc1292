package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pageza/recipebox/config"
)

// PresignExpiry is how long the download link printed after an S3 export stays valid.
const PresignExpiry = 24 * time.Hour

// objectAPI is the subset of *s3.Client used here.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps backups in an S3 bucket under a key prefix.
type S3Store struct {
	api     objectAPI
	bucket  string
	prefix  string
	presign func(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// NewS3Store creates an S3Store from the configured client.
func NewS3Store(cfg *config.S3Config) *S3Store {
	return &S3Store{
		api:     cfg.Client,
		bucket:  cfg.BucketName,
		prefix:  cfg.Prefix,
		presign: cfg.GeneratePresignedURL,
	}
}

func (s *S3Store) key(name string) string {
	return path.Join(s.prefix, path.Base(name))
}

// Save uploads data and returns a presigned download URL, or the s3:// URI
// when presigning fails.
func (s *S3Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	key := s.key(name)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	slog.Info("Uploaded backup to S3", "location", uri)

	if s.presign == nil {
		return uri, nil
	}
	link, err := s.presign(ctx, key, PresignExpiry)
	if err != nil {
		slog.Warn("Failed to presign backup URL", "key", key, "error", err)
		return uri, nil
	}
	return link, nil
}

func (s *S3Store) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	return data, nil
}

func (s *S3Store) Latest(ctx context.Context) (string, error) {
	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(path.Join(s.prefix, filePrefix)),
	}
	for {
		out, err := s.api.ListObjectsV2(ctx, input)
		if err != nil {
			return "", fmt.Errorf("failed to list S3 backups: %w", err)
		}
		for _, obj := range out.Contents {
			if name := path.Base(aws.ToString(obj.Key)); isBackupName(name) {
				names = append(names, name)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return latestName(names)
}
