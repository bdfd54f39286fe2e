package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API defines the subset of the S3 client interface used by S3Recorder.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Recorder writes audit artifacts to an S3-compatible object store
// under <prefix><yyyy-mm-dd>/<outcome>/.
type S3Recorder struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Recorder creates an S3Recorder with the given client, bucket, and
// key prefix.
func NewS3Recorder(client s3API, bucket, prefix string) *S3Recorder {
	return &S3Recorder{client: client, bucket: bucket, prefix: prefix}
}

// NewS3RecorderFromConfig creates an S3Recorder from a Config, building a
// real AWS S3 client. Custom endpoints (e.g. MinIO) are supported via
// Config.S3Endpoint.
func NewS3RecorderFromConfig(cfg Config) (*S3Recorder, error) {
	ctx := context.Background()

	optFns := []func(*awsconfig.LoadOptions) error{}

	if cfg.S3Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("audit: load aws config: %w", err)
	}

	s3OptFns := []func(*s3.Options){}

	if cfg.S3Endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = &cfg.S3Endpoint
			o.UsePathStyle = true
		})
	}

	return &S3Recorder{
		client: s3.NewFromConfig(awsCfg, s3OptFns...),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

// Record uploads one entry as <prefix><date>/<outcome>/<request_id>.json.
func (r *S3Recorder) Record(ctx context.Context, e Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	key := fmt.Sprintf("%s%s/%s/%s.json", r.prefix, partition(e.Timestamp), e.Outcome, e.RequestID)
	return r.put(ctx, key, data, "application/json")
}

// RecordDebug uploads the raw message as <prefix><date>/debug/<request_id>.eml.
func (r *S3Recorder) RecordDebug(ctx context.Context, requestID string, ts time.Time, message []byte) error {
	key := fmt.Sprintf("%s%s/%s/%s.eml", r.prefix, partition(ts), OutcomeDebug, requestID)
	return r.put(ctx, key, message, "message/rfc822")
}

func (r *S3Recorder) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("audit: s3 put: %w", err)
	}
	return nil
}
