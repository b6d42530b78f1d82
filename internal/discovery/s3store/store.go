// Package s3store backs discovery probing and copying with the S3 bucket
// that holds per-environment discovery artifacts. Objects live under
// <prefix>/<environment>/<version>.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/ceinfra/cebg/internal/debug"
	"github.com/ceinfra/cebg/internal/env"
)

// Config holds connection settings for the discovery artifact bucket.
type Config struct {
	Bucket          string
	Prefix          string // key prefix, e.g. "dist/discovery"
	Region          string
	Endpoint        string // optional override (LocalStack, MinIO)
	AccessKeyID     string // optional; default credential chain when empty
	SecretAccessKey string
	UsePathStyle    bool
}

// Store probes and copies discovery artifacts in S3.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds a Store from cfg. Credentials fall back to the default AWS
// chain when no static keys are configured.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("discovery bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = &cfg.Endpoint
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		client: client,
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Exists probes for the discovery artifact of (e, version). A missing object
// is false with a nil error; any other failure is an error so callers can
// distinguish "probed and absent" from "probe failed".
func (s *Store) Exists(ctx context.Context, e env.Environment, version string) (bool, error) {
	key := s.artifactKey(e, version)
	debug.Logf("s3store: HEAD s3://%s/%s\n", s.bucket, key)

	var found bool
	op := func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: &s.bucket,
			Key:    &key,
		})
		if err != nil {
			if isNotFound(err) {
				found = false
				return nil
			}
			if isTransient(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		found = true
		return nil
	}

	if err := backoff.Retry(op, newProbeBackoff(ctx)); err != nil {
		return false, fmt.Errorf("head s3://%s/%s: %w", s.bucket, key, err)
	}
	return found, nil
}

// CopyToProd copies the source environment's artifact over the production
// key. Returns false (with no error) when the source object is gone, which
// the recovery flow treats as a plain copy failure.
func (s *Store) CopyToProd(ctx context.Context, source env.Environment, version string) (bool, error) {
	srcKey := s.artifactKey(source, version)
	dstKey := s.artifactKey(env.Prod, version)
	copySource := fmt.Sprintf("%s/%s", s.bucket, srcKey)
	debug.Logf("s3store: COPY s3://%s -> s3://%s/%s\n", copySource, s.bucket, dstKey)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &s.bucket,
		Key:        &dstKey,
		CopySource: &copySource,
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("copy s3://%s to %s: %w", copySource, dstKey, err)
	}
	return true, nil
}

// artifactKey is <prefix>/<environment>/<version>.
func (s *Store) artifactKey(e env.Environment, version string) string {
	if s.prefix == "" {
		return fmt.Sprintf("%s/%s", e, version)
	}
	return fmt.Sprintf("%s/%s/%s", s.prefix, e, version)
}

const probeMaxElapsed = 15 * time.Second

// newProbeBackoff returns a fresh exponential backoff for transient S3
// failures. BackOff implementations are stateful; never share one.
func newProbeBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = probeMaxElapsed
	return backoff.WithContext(bo, ctx)
}

// isNotFound reports whether err means the object does not exist.
// HeadObject surfaces this as types.NotFound; CopyObject as NoSuchKey.
func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

// isTransient reports whether err looks like a connection blip worth
// retrying. API-level errors (access denied, invalid bucket) are not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "RequestTimeout", "SlowDown", "ServiceUnavailable", "InternalError", "Throttling", "ThrottlingException":
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"i/o timeout",
		"tls handshake timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
