package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/config"
)

// UploadPrefix is where every uploaded object lives.
const UploadPrefix = "uploads/"

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// ErrNotConfigured is returned by every operation of a Store without a bucket.
var ErrNotConfigured = errors.New("object storage is not configured")

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner signs upload requests that clients send directly to the bucket.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Object is one stored file.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url,omitempty"`
}

// PresignedUpload is a signed PUT a browser can use without credentials.
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// Store reads and writes uploads in an S3-compatible bucket (Cloudflare R2).
type Store struct {
	client     S3API
	presigner  Presigner
	bucket     string
	publicURL  string
	presignTTL time.Duration
	now        func() time.Time
}

// NewStore creates a Store. If client or bucket is missing, Enabled is false.
func NewStore(client S3API, presigner Presigner, bucket, publicURL string, presignTTL time.Duration) *Store {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &Store{
		client:     client,
		presigner:  presigner,
		bucket:     bucket,
		publicURL:  strings.TrimRight(publicURL, "/"),
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// New builds an R2-backed Store from configuration. It returns a disabled
// Store when R2 is not configured.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	if !cfg.R2Enabled() {
		return NewStore(nil, nil, "", cfg.R2PublicURL, cfg.PresignTTL), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint())
		o.UsePathStyle = true
	})
	return NewStore(client, s3.NewPresignClient(client), cfg.R2BucketName, cfg.R2PublicURL, cfg.PresignTTL), nil
}

// Enabled returns true if a bucket and client are configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// ObjectKey returns the key a file named name gets when stored now.
func (s *Store) ObjectKey(name string) string {
	return fmt.Sprintf("%s%d-%s", UploadPrefix, s.now().UnixMilli(), sanitizeName(name))
}

// PublicURL returns the public address of key, or "" without a public base URL.
func (s *Store) PublicURL(key string) string {
	if s.publicURL == "" {
		return ""
	}
	return s.publicURL + "/" + key
}

// Upload stores body under a fresh key and returns the stored object.
func (s *Store) Upload(ctx context.Context, name, contentType string, body []byte) (*Object, error) {
	if !s.Enabled() {
		return nil, &internal.StorageError{Op: "put", Key: name, Err: ErrNotConfigured}
	}
	if contentType == "" {
		contentType = "text/csv"
	}

	key := s.ObjectKey(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, &internal.StorageError{Op: "put", Key: key, Err: err}
	}

	internal.LogInfo("Uploaded %s (%d bytes)", key, len(body))
	return &Object{
		Key:          key,
		Size:         int64(len(body)),
		LastModified: s.now().UTC(),
		URL:          s.PublicURL(key),
	}, nil
}

// List returns up to limit uploaded objects.
func (s *Store) List(ctx context.Context, limit int) ([]Object, error) {
	if !s.Enabled() {
		return nil, &internal.StorageError{Op: "list", Key: UploadPrefix, Err: ErrNotConfigured}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(UploadPrefix),
		MaxKeys: aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, &internal.StorageError{Op: "list", Key: UploadPrefix, Err: err}
	}

	objects := make([]Object, 0, len(out.Contents))
	for _, item := range out.Contents {
		key := aws.ToString(item.Key)
		objects = append(objects, Object{
			Key:          key,
			Size:         aws.ToInt64(item.Size),
			LastModified: aws.ToTime(item.LastModified),
			URL:          s.PublicURL(key),
		})
	}
	return objects, nil
}

// Delete removes one object.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return &internal.StorageError{Op: "delete", Key: key, Err: ErrNotConfigured}
	}
	if key == "" {
		return &internal.StorageError{Op: "delete", Err: errors.New("key is required")}
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &internal.StorageError{Op: "delete", Key: key, Err: err}
	}
	internal.LogInfo("Deleted %s", key)
	return nil
}

// PresignUpload signs a PUT for a new object named name.
func (s *Store) PresignUpload(ctx context.Context, name string, size int64, contentType string) (*PresignedUpload, error) {
	if !s.Enabled() || s.presigner == nil {
		return nil, &internal.StorageError{Op: "presign", Key: name, Err: ErrNotConfigured}
	}
	if strings.TrimSpace(name) == "" {
		return nil, &internal.StorageError{Op: "presign", Err: errors.New("fileName is required")}
	}
	if contentType == "" {
		contentType = "text/csv"
	}

	now := s.now()
	key := s.ObjectKey(name)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-name":    name,
			"upload-timestamp": fmt.Sprintf("%d", now.UnixMilli()),
			"file-size":        fmt.Sprintf("%d", size),
		},
	}, func(o *s3.PresignOptions) {
		o.Expires = s.presignTTL
	})
	if err != nil {
		return nil, &internal.StorageError{Op: "presign", Key: key, Err: err}
	}

	internal.LogDebug("Presigned upload for %s (%d bytes, expires in %s)", key, size, s.presignTTL)
	return &PresignedUpload{
		UploadURL: req.URL,
		PublicURL: s.PublicURL(key),
		Key:       key,
		ExpiresIn: int(s.presignTTL / time.Second),
	}, nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return &internal.StorageError{Op: "ping", Key: s.bucket, Err: ErrNotConfigured}
	}
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return &internal.StorageError{Op: "ping", Key: s.bucket, Err: err}
	}
	return nil
}

// sanitizeName keeps the base name and drops characters that break keys.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload.csv"
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}
