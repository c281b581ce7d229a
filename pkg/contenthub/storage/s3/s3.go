package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/tendant/content-hub/pkg/contenthub"
)

const backendName = "s3"

var _ contenthub.FileStore = (*Backend)(nil)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	Prefix          string // Key prefix for this content type, e.g. "pdfs/"
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Backend is an S3-compatible implementation of the contenthub.FileStore interface.
// Only content bytes live in the bucket; the index stays on local disk.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	config Config
}

// New creates a new S3-compatible storage backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		// Use default credential chain
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	backend := &Backend{
		client: s3.NewFromConfig(awsCfg, s3Options...),
		bucket: config.Bucket,
		prefix: NormalizePrefix(config.Prefix),
		config: config,
	}
	return backend, nil
}

// NormalizePrefix trims leading slashes and guarantees a trailing one for non-empty prefixes.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func (b *Backend) key(filename string) string {
	return b.prefix + filename
}

// EnsureRoot creates the bucket when configured to; otherwise it does nothing.
func (b *Backend) EnsureRoot(ctx context.Context) error {
	if !b.config.CreateBucketIfNotExist {
		return nil
	}

	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return &contenthub.StorageError{Backend: backendName, Key: b.bucket, Op: "head_bucket", Err: err}
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	}
	// Add location constraint for regions other than us-east-1
	if b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	if _, err := b.client.CreateBucket(ctx, createInput); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.ErrorCode() == "BucketAlreadyExists" || apiErr.ErrorCode() == "BucketAlreadyOwnedByYou") {
			return nil
		}
		return &contenthub.StorageError{Backend: backendName, Key: b.bucket, Op: "create_bucket", Err: err}
	}
	return nil
}

// Save uploads content under a generated key, refusing to replace an existing object.
func (b *Backend) Save(ctx context.Context, reader io.Reader, ext string) (string, error) {
	name := uuid.NewString() + ext
	key := b.key(name)

	uploader := manager.NewUploader(b.client)
	if _, err := uploader.Upload(ctx, b.putInput(key, reader, ext)); err != nil {
		if isPreconditionFailed(err) {
			return "", &contenthub.StorageError{Backend: backendName, Key: key, Op: "save", Err: contenthub.ErrStorageConflict}
		}
		return "", &contenthub.StorageError{Backend: backendName, Key: key, Op: "upload", Err: err}
	}
	return name, nil
}

// putInput builds a conditional put: the bucket rejects it if key already exists.
func (b *Backend) putInput(key string, reader io.Reader, ext string) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        reader,
		IfNoneMatch: aws.String("*"),
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	return input
}

// Open downloads content directly from S3
func (b *Backend) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(filename)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", contenthub.ErrNotFound, filename)
		}
		return nil, &contenthub.StorageError{Backend: backendName, Key: b.key(filename), Op: "download", Err: err}
	}
	return result.Body, nil
}

// Delete deletes content from S3. Deleting a missing key succeeds.
func (b *Backend) Delete(ctx context.Context, filename string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(filename)),
	})
	if err != nil && !isNotFound(err) {
		return &contenthub.StorageError{Backend: backendName, Key: b.key(filename), Op: "delete", Err: err}
	}
	return nil
}

// Exists reports whether an object exists for filename
func (b *Backend) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(filename)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, &contenthub.StorageError{Backend: backendName, Key: b.key(filename), Op: "head", Err: err}
}

// List returns the names of the objects directly under the prefix
func (b *Backend) List(ctx context.Context) ([]string, error) {
	names := []string{}
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &contenthub.StorageError{Backend: backendName, Key: b.prefix, Op: "list", Err: err}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// isPreconditionFailed reports whether a conditional write lost against an existing object.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
