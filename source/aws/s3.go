package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yacchi/assigner/source"
)

// S3API is the subset of *s3.Client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Source loads and saves the configuration document as a single S3 object.
//
// Saves are optimistic: the ETag seen by Load is compared with the object's
// current ETag, and the write itself is conditional (If-Match, or
// If-None-Match for a new object), so a concurrent writer yields
// source.ErrSourceModified rather than a lost update.
type S3Source struct {
	bucket string
	key    string
	cfg    clientConfig
	client S3API

	clientInit    sync.Once
	clientInitErr error

	mu       sync.Mutex
	etag     *string
	loaded   bool
	notFound bool
}

var _ source.Source = (*S3Source)(nil)

// S3Option configures an S3Source.
type S3Option func(*S3Source)

func (S3Option) awsSourceOption() {}

// WithS3Client sets a custom S3 client.
// This overrides WithAWSConfig for the S3 client.
func WithS3Client(client S3API) S3Option {
	return func(s *S3Source) {
		s.client = client
	}
}

// NewS3Source creates an S3 source for the given bucket and key.
//
//	src := aws.NewS3Source("course-bucket", "cs1001/_config.yml")
//	src := aws.NewS3Source("course-bucket", "cs1001/_config.yml", aws.WithRegion("eu-west-1"))
func NewS3Source(bucket, key string, opts ...Option) *S3Source {
	s := &S3Source{
		bucket: bucket,
		key:    key,
	}

	for _, opt := range opts {
		switch o := opt.(type) {
		case ClientOption:
			o(&s.cfg)
		case S3Option:
			o(s)
		}
	}

	return s
}

// IsS3URL reports whether location uses the s3:// scheme.
func IsS3URL(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3URL splits "s3://bucket/key" into its bucket and key.
func ParseS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL %q must name a bucket and a key", location)
	}
	return bucket, key, nil
}

// FromURL creates an S3Source from an s3://bucket/key URL.
func FromURL(location string, opts ...Option) (*S3Source, error) {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}
	return NewS3Source(bucket, key, opts...), nil
}

// Bucket returns the S3 bucket name.
func (s *S3Source) Bucket() string {
	return s.bucket
}

// Key returns the S3 object key.
func (s *S3Source) Key() string {
	return s.key
}

// Location returns the s3:// URL of the object.
func (s *S3Source) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// CanSave returns true.
func (s *S3Source) CanSave() bool {
	return true
}

// ensureClient creates a default S3 client if one was not provided.
func (s *S3Source) ensureClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	s.clientInit.Do(func() {
		cfg, err := loadAWSConfig(ctx, &s.cfg)
		if err != nil {
			s.clientInitErr = err
			return
		}
		s.client = s3.NewFromConfig(cfg)
	})
	return s.clientInitErr
}

// Load fetches the object and remembers its ETag for the next Save.
func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, etag, err := s.fetchObject(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.loaded, s.notFound, s.etag = true, false, etag
	case errors.Is(err, source.ErrNotExist):
		s.loaded, s.notFound, s.etag = true, true, nil
	}
	return data, err
}

func (s *S3Source) fetchObject(ctx context.Context) ([]byte, *string, error) {
	if err := s.ensureClient(ctx); err != nil {
		return nil, nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil, &source.NotExistError{Location: s.Location(), Err: err}
		}
		return nil, nil, fmt.Errorf("failed to get object %s: %w", s.Location(), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return data, result.ETag, nil
}

// Save writes the bytes returned by updateFunc as the new object body.
func (s *S3Source) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	current, etag, err := s.fetchObject(ctx)
	exists := true
	if errors.Is(err, source.ErrNotExist) {
		exists, err = false, nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	loaded, notFound, loadedETag := s.loaded, s.notFound, s.etag
	s.mu.Unlock()

	if loaded {
		if notFound && exists {
			return fmt.Errorf("%s was created since load: %w", s.Location(), source.ErrSourceModified)
		}
		if !notFound && (!exists || aws.ToString(loadedETag) != aws.ToString(etag)) {
			return fmt.Errorf("%s changed since load: %w", s.Location(), source.ErrSourceModified)
		}
	}

	newData, err := updateFunc(current)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(newData),
	}
	if exists {
		input.IfMatch = etag
	} else {
		input.IfNoneMatch = aws.String("*")
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if statusCode(err) == http.StatusPreconditionFailed {
			return fmt.Errorf("%s changed during save: %w", s.Location(), source.ErrSourceModified)
		}
		return fmt.Errorf("failed to put object %s: %w", s.Location(), err)
	}

	s.mu.Lock()
	s.loaded, s.notFound, s.etag = true, false, out.ETag
	s.mu.Unlock()
	return nil
}

func statusCode(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
