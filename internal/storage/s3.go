// Package storage issues presigned uploads for memory photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appconfig "closer-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadTTL is how long a presigned upload URL stays valid
const UploadTTL = 5 * time.Minute

// ErrUnsupportedContentType is returned for content types that are not accepted images
var ErrUnsupportedContentType = errors.New("unsupported content type")

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

// Upload is a presigned PUT the client performs before posting the memory
type Upload struct {
	UploadURL string `json:"uploadUrl"`
	PhotoURL  string `json:"photoUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// PhotoUploader presigns photo uploads into a couple's folder
type PhotoUploader interface {
	PresignUpload(ctx context.Context, coupleID, contentType string) (*Upload, error)
}

// S3Uploader presigns PUT requests against an S3 (or S3-compatible) bucket
type S3Uploader struct {
	presign       *s3.PresignClient
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
	newID         func() string
}

// NewS3Uploader creates an uploader from the aws section of the config.
// Static keys are used when present, otherwise the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg appconfig.AWSConfig) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		presign:       s3.NewPresignClient(client),
		bucket:        cfg.S3Bucket,
		region:        cfg.Region,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		newID:         uuid.NewString,
	}, nil
}

// ExtensionFor returns the file extension stored for an accepted image content type
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// PresignUpload generates a presigned PUT for {coupleID}/{uuid}.{ext}
func (u *S3Uploader) PresignUpload(ctx context.Context, coupleID, contentType string) (*Upload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := ExtensionFor(contentType)
	if !ok {
		return nil, ErrUnsupportedContentType
	}

	key := fmt.Sprintf("%s/%s.%s", coupleID, u.newID(), ext)
	request, err := u.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = UploadTTL
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &Upload{
		UploadURL: request.URL,
		PhotoURL:  u.objectURL(key),
		ExpiresIn: int(UploadTTL.Seconds()),
	}, nil
}

func (u *S3Uploader) objectURL(key string) string {
	switch {
	case u.publicBaseURL != "":
		return u.publicBaseURL + "/" + key
	case u.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	}
}
