package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dkravets/kitafeed/internal/client/api"
)

// ObjectStore moves bytes to and from the signed destination of a direct
// upload. Put transfers the raw content; Delete is the best-effort cleanup
// used by cancellation.
type ObjectStore interface {
	Put(ctx context.Context, target api.SignedTarget, data []byte, contentType string) error
	Delete(ctx context.Context, target api.SignedTarget) error
}

// Seams for testing the S3 store without a live endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config holds the settings of an S3-compatible direct-upload backend.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Store uploads straight to an S3-compatible object store using the bucket
// and storage path of the signed target.
type S3Store struct {
	client *s3.Client
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{client: client}, nil
}

func (s *S3Store) Put(ctx context.Context, target api.SignedTarget, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(target.StoragePath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *S3Store) Delete(ctx context.Context, target api.SignedTarget) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.StoragePath),
	})
	return err
}

// PresignedStore transfers through the presigned URLs carried by the signed
// target, so the client needs no storage credentials of its own.
type PresignedStore struct {
	http *http.Client
}

func NewPresignedStore() *PresignedStore {
	return &PresignedStore{http: &http.Client{}}
}

func (s *PresignedStore) Put(ctx context.Context, target api.SignedTarget, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.PutURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

func (s *PresignedStore) Delete(ctx context.Context, target api.SignedTarget) error {
	if target.DeleteURL == "" {
		return fmt.Errorf("no delete url for %s", target.StoragePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target.DeleteURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete failed: %s", resp.Status)
	}
	return nil
}
