// Package avatars uploads profile pictures to S3-compatible object storage
// through presigned PUT URLs and returns their public URL.
package avatars

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/kumo/internal/netx"
	"github.com/google/uuid"
)

// MaxSize is the largest accepted avatar.
const MaxSize = 5 << 20

// Config locates the bucket.
type Config struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	PresignTTL    time.Duration
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newPresigner = func(c *s3.Client) presigner {
		return s3.NewPresignClient(c)
	}
)

type presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Storage uploads avatars to one bucket.
type Storage struct {
	cfg       Config
	presigner presigner
	http      *http.Client
}

// NewS3Storage builds the S3 client from cfg.
func NewS3Storage(ctx context.Context, cfg Config, hc *http.Client) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("avatar bucket is required")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Storage{cfg: cfg, presigner: newPresigner(client), http: hc}, nil
}

// Upload stores data under avatars/<userID>/ and returns its public URL.
func (s *Storage) Upload(ctx context.Context, userID string, data []byte, contentType string) (string, error) {
	if userID == "" {
		return "", errors.New("avatar owner is required")
	}
	if len(data) == 0 {
		return "", errors.New("avatar is empty")
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("avatar exceeds %d bytes", MaxSize)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("avatar must be an image, got %s", contentType)
	}

	key := ObjectKey(userID, contentType)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign avatar upload: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, s.http, req.URL, data, contentType); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

// PublicURL returns the URL an uploaded key is served from.
func (s *Storage) PublicURL(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
	}
	return strings.TrimRight(base, "/") + "/" + key
}

// ObjectKey returns a fresh key for a user's avatar.
func ObjectKey(userID, contentType string) string {
	ext := ".img"
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
}
