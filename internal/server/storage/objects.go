package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dkravets/kitafeed/internal/server/config"
)

// ObjectClient stores and removes media objects on behalf of proxied
// uploads, where the file travels through the API server.
type ObjectClient struct {
	config *sc.Config
}

func NewObjectClient(config *sc.Config) *ObjectClient {
	return &ObjectClient{config: config}
}

// Put writes one object under key.
func (o *ObjectClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	client, err := newS3Client(ctx, o.config)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(o.config.S3Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err = client.PutObject(ctx, input)
	return err
}

// Delete removes one object. Missing keys are not an error.
func (o *ObjectClient) Delete(ctx context.Context, key string) error {
	client, err := newS3Client(ctx, o.config)
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.config.S3Bucket),
		Key:    aws.String(key),
	})
	return err
}
