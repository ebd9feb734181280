package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "deripulse/config"
	"deripulse/logger"
	"deripulse/models"
)

// Uploader pushes finished report documents to an S3 bucket so runs from
// ephemeral hosts leave a durable artifact.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Entry
}

// NewUploader configures the AWS SDK from the report config. Static
// credentials win when supplied; otherwise the default provider chain
// applies (env, shared config, instance role).
func NewUploader(ctx context.Context, cfg appconfig.S3Config) (*Uploader, error) {
	log := logger.GetLogger().WithComponent("report_uploader")

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve AWS credentials: %w", err)
	}

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log,
	}, nil
}

// Upload stores the report under prefix/test_type/filename and returns the
// object key.
func (u *Uploader) Upload(ctx context.Context, rep models.Report) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := path.Join(u.prefix, rep.TestType, Filename(rep))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	u.log.WithFields(logger.Fields{
		"bucket": u.bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("report uploaded")
	return key, nil
}
