package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "media_gateway/object"

// Info is the store-native view of one object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Observer receives the outcome of every store call.
type Observer interface {
	ObserveStoreOp(op string, started time.Time, err error)
}

type Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
}

func NewClient(endpoint, accessKey, secretKey, region string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
}

func EnsureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err == nil {
		return nil
	}
	// Another replica may have won the race.
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists") {
		return nil
	}
	return err
}

// MinIOStore is a bucket-scoped S3 store. Access URLs are signed by a
// separate client when a public endpoint is configured, since the signature
// covers the host.
type MinIOStore struct {
	client   *minio.Client
	signer   *minio.Client
	bucket   string
	observer Observer
	tracer   trace.Tracer
}

func NewMinIOStore(cfg Config, observer Observer) (*MinIOStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("object: bucket is required")
	}
	client, err := NewClient(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Region, cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("initialize minio client: %w", err)
	}
	signer := client
	if public := strings.TrimSpace(cfg.PublicEndpoint); public != "" && public != cfg.Endpoint {
		host, secure, err := splitEndpoint(public, cfg.UseSSL)
		if err != nil {
			return nil, err
		}
		signer, err = NewClient(host, cfg.AccessKey, cfg.SecretKey, cfg.Region, secure)
		if err != nil {
			return nil, fmt.Errorf("initialize minio signing client: %w", err)
		}
	}
	return &MinIOStore{
		client:   client,
		signer:   signer,
		bucket:   cfg.Bucket,
		observer: observer,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// splitEndpoint accepts either host:port or a full URL.
func splitEndpoint(endpoint string, defaultSecure bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, defaultSecure, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse public endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("parse public endpoint: missing host in %q", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

func (s *MinIOStore) Bucket() string {
	return s.bucket
}

func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	ctx, done := s.begin(ctx, "ensure_bucket", "")
	err := EnsureBucket(ctx, s.client, s.bucket)
	done(err)
	return err
}

func (s *MinIOStore) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Info, error) {
	ctx, done := s.begin(ctx, "put", key)
	up, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	done(err)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Key:          up.Key,
		Size:         up.Size,
		ContentType:  contentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
	}, nil
}

// ListObjects walks every object under prefix. minio-go follows continuation
// tokens internally; stopping the iteration cancels the walk.
func (s *MinIOStore) ListObjects(ctx context.Context, prefix string) iter.Seq2[Info, error] {
	return func(yield func(Info, error) bool) {
		ctx, done := s.begin(ctx, "list", prefix)
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var listErr error
		defer func() { done(listErr) }()

		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr = obj.Err
				yield(Info{}, obj.Err)
				return
			}
			if !yield(infoFromMinIO(obj), nil) {
				return
			}
		}
	}
}

func (s *MinIOStore) StatObject(ctx context.Context, key string) (Info, error) {
	ctx, done := s.begin(ctx, "stat", key)
	obj, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	done(err)
	if err != nil {
		return Info{}, err
	}
	return infoFromMinIO(obj), nil
}

func (s *MinIOStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, done := s.begin(ctx, "get", key)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	done(err)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *MinIOStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, done := s.begin(ctx, "presign", key)
	u, err := s.signer.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	done(err)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// RemoveObject deletes key. S3 reports success for a key that does not exist.
func (s *MinIOStore) RemoveObject(ctx context.Context, key string) error {
	ctx, done := s.begin(ctx, "remove", key)
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	done(err)
	return err
}

func (s *MinIOStore) begin(ctx context.Context, op, key string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "object."+op, trace.WithAttributes(
		attribute.String("object.bucket", s.bucket),
		attribute.String("object.key", key),
	))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.observer != nil {
			s.observer.ObserveStoreOp(op, started, err)
		}
	}
}

func infoFromMinIO(obj minio.ObjectInfo) Info {
	return Info{
		Key:          obj.Key,
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		ETag:         strings.Trim(obj.ETag, `"`),
		LastModified: obj.LastModified,
	}
}
