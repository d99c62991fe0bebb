package output

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/pkg/config"
	"github.com/wonny/goldcurve/pkg/logger"
)

// ObjectName is the key suffix of the published series
const ObjectName = "data.json"

// PutObjectAPI is the subset of the S3 client used by the sink
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the dashboard JSON to s3://<bucket>/<prefix>/data.json
type S3Sink struct {
	api    PutObjectAPI
	bucket string
	key    string
	logger *logger.Logger
}

// NewS3Client builds an S3 client for AWS or an S3-compatible store (MinIO, R2)
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3: region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	// 키가 없으면 기본 credential chain (IAM role 등) 사용
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// NewS3Sink creates the sink on top of an existing client
func NewS3Sink(api PutObjectAPI, bucket, prefix string, log *logger.Logger) *S3Sink {
	return &S3Sink{
		api:    api,
		bucket: bucket,
		key:    ObjectKey(prefix),
		logger: log.WithField("sink", "s3"),
	}
}

// ObjectKey joins the prefix and the object name without a leading slash
func ObjectKey(prefix string) string {
	if strings.Trim(prefix, "/") == "" {
		return ObjectName
	}
	return path.Join(strings.Trim(prefix, "/"), ObjectName)
}

// Name implements contracts.SeriesSink
func (s *S3Sink) Name() string {
	return "s3"
}

// Key returns the object key written by Publish
func (s *S3Sink) Key() string {
	return s.key
}

// Publish uploads the same bytes the JSON file sink writes
func (s *S3Sink) Publish(ctx context.Context, runID string, points []contracts.PremiumPoint) error {
	data, err := Encode(points)
	if err != nil {
		return err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id": runID,
		},
	})
	if err != nil {
		return fmt.Errorf("s3 sink: put s3://%s/%s: %w", s.bucket, s.key, err)
	}

	s.logger.WithRun(runID).WithFields(map[string]interface{}{
		"bucket": s.bucket,
		"key":    s.key,
		"bytes":  len(data),
	}).Info("Series uploaded")
	return nil
}

// normaliseEndpoint adds https:// when the endpoint has no scheme ("minio:9000")
func normaliseEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
