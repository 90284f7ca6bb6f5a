// Package archive keeps raw webhook payloads in S3-compatible storage.
// A reference is never persisted on its own row, so outside the provider's
// records these objects are the audit trail for every delivery.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Config struct {
	Bucket string
	Region string
	// Endpoint switches the client to an S3-compatible store (e.g.
	// Cloudflare R2); empty means plain AWS S3.
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Archiver struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

func New(ctx context.Context, cfg Config) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archiver{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// Archive stores one payload under provider/date/, keyed by reference when
// known plus a unique suffix so redeliveries never overwrite each other.
func (a *Archiver) Archive(ctx context.Context, provider, ref string, body []byte) error {
	if ref == "" {
		ref = "unreferenced"
	}
	key := fmt.Sprintf("%s/%s/%s_%d_%s.json",
		provider,
		a.now().UTC().Format("2006-01-02"),
		ref,
		a.now().UnixNano(),
		uuid.New().String()[:8],
	)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("could not archive webhook payload: %v", err)
	}
	return nil
}
