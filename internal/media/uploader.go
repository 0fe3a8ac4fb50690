package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

var ErrNoBucket = errors.New("media bucket is not configured")

// Config describes the S3-compatible bucket images are published to.
type Config struct {
	Bucket    string `envconfig:"BUCKET"`
	Region    string `envconfig:"REGION" default:"us-east-1"`
	Endpoint  string `envconfig:"ENDPOINT"` // set for MinIO and other S3-compatible stores
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
	// PublicBaseURL is prefixed to object keys to build client-facing URLs,
	// e.g. a CDN host. Derived from Endpoint/Bucket when empty.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`
	// UploadDir holds incoming multipart files until they are published.
	UploadDir string `envconfig:"UPLOAD_DIR" default:"./public/temp"`
}

// ConfigFromEnv reads MEDIA_* env vars.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("MEDIA", &cfg); err != nil {
		return Config{}, fmt.Errorf("media config: %w", err)
	}
	return cfg, nil
}

// Asset is a published media object.
type Asset struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Uploader publishes a local file and returns where it can be fetched from.
// An empty path yields (nil, nil).
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader publishes files to an S3-compatible bucket. The local file is
// removed after every attempt, successful or not.
type S3Uploader struct {
	client objectPutter
	cfg    Config
	logger *zap.SugaredLogger
}

func NewS3Uploader(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, cfg, logger), nil
}

func newS3Uploader(client objectPutter, cfg Config, logger *zap.SugaredLogger) *S3Uploader {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &S3Uploader{client: client, cfg: cfg, logger: logger}
}

func (u *S3Uploader) Upload(ctx context.Context, localPath string) (*Asset, error) {
	if localPath == "" {
		return nil, nil
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.logger.Warnw("remove temp upload", "path", localPath, "err", err)
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(localPath))
	key := storageKey(time.Now(), ext)
	in := &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	u.logger.Debugw("media uploaded", "key", key)
	return &Asset{Key: key, URL: u.publicURL(key)}, nil
}

func (u *S3Uploader) publicURL(key string) string {
	switch {
	case u.cfg.PublicBaseURL != "":
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key
	case u.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.cfg.Endpoint, "/"), u.cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
	}
}

func storageKey(t time.Time, ext string) string {
	return fmt.Sprintf("images/%d/%02d/%02d/%s%s", t.Year(), t.Month(), t.Day(), uuid.New(), ext)
}
