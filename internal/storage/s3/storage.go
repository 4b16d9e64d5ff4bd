package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	URLTTL    time.Duration
	PublicURL string
}

// Storage issues time-limited presigned PUT URLs and verifies uploaded
// objects. The server never proxies clip bytes itself.
type Storage struct {
	client    *s3.S3
	bucket    string
	urlTTL    time.Duration
	publicURL string
}

func NewStorage(cfg *Config) (*Storage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &Storage{
		client:    s3.New(sess),
		bucket:    cfg.Bucket,
		urlTTL:    cfg.URLTTL,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s *Storage) IssueUploadURL(_ context.Context, key string) (string, error) {
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign put request: %w", err)
	}

	return url, nil
}

func (s *Storage) HeadExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.RequestFailure); ok && aerr.StatusCode() == 404 {
			return false, nil
		}

		return false, fmt.Errorf("failed to head object: %w", err)
	}

	return true, nil
}

func (s *Storage) ObjectURL(key string) string {
	return s.publicURL + "/" + key
}
