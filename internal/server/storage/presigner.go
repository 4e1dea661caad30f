// Package storage issues short-lived presigned URLs for direct media
// uploads, so large files bypass the API server on their way to the bucket.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dkravets/kitafeed/internal/server/config"
)

// PresignValidity bounds how long an issued upload URL stays usable.
const PresignValidity = 15 * time.Minute

// SignedTarget is one issued upload destination.
type SignedTarget struct {
	StoragePath string `json:"storagePath"`
	Bucket      string `json:"bucket"`
	PutURL      string `json:"putUrl"`
	DeleteURL   string `json:"deleteUrl"`
}

// Presigner hands out presigned PUT and DELETE URLs for the media bucket.
type Presigner struct {
	config *sc.Config
}

func NewPresigner(config *sc.Config) *Presigner {
	return &Presigner{config: config}
}

// StorageKey derives the object key for one upload: a date-scoped prefix, the
// post id and a random element so that names never collide.
func StorageKey(postID, filename string) string {
	d := time.Now()
	return fmt.Sprintf("feed/%d/%02d/%s/%s-%s", d.Year(), int(d.Month()), postID, uuid.NewString()[:8], sanitize(filename))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

// newS3Client builds an S3 client for the configured bucket endpoint. Used
// by both the presigner and the object client.
func newS3Client(ctx context.Context, config *sc.Config) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.S3RootUser,
			config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (p *Presigner) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	client, err := newS3Client(ctx, p.config)
	if err != nil {
		return nil, err
	}
	return s3.NewPresignClient(client), nil
}

// Sign issues a presigned PUT for the key plus a matching DELETE, so a client
// can clean up a transferred object it decides not to finalize.
func (p *Presigner) Sign(ctx context.Context, key string) (*SignedTarget, error) {
	presignClient, err := p.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := p.config.S3Bucket

	put, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignValidity))
	if err != nil {
		return nil, err
	}

	del, err := presignClient.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignValidity))
	if err != nil {
		return nil, err
	}

	return &SignedTarget{
		StoragePath: key,
		Bucket:      bucket,
		PutURL:      put.URL,
		DeleteURL:   del.URL,
	}, nil
}

// PublicURL maps a storage key to the URL clients render.
func (p *Presigner) PublicURL(key string) string {
	return strings.TrimRight(p.config.MediaBaseURL, "/") + "/" + key
}
