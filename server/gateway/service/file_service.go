package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"media_gateway/server/common/infra/object"
	commonlog "media_gateway/server/common/log"
	"media_gateway/server/gateway/domain"
)

// AccessURLTTL is the validity of every minted access URL.
const AccessURLTTL = 3600 * time.Second

const uploadedEventKey = "file.uploaded"

type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (object.Info, error)
	ListObjects(ctx context.Context, prefix string) iter.Seq2[object.Info, error]
	StatObject(ctx context.Context, key string) (object.Info, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	RemoveObject(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, folder, key string, payload any) error
}

type Options struct {
	// Publisher is optional; nil disables upload events.
	Publisher  EventPublisher
	Thumbnails bool
}

// FileService scopes every store call under a tenant namespace and shapes
// store objects into listing entries. It holds no per-request state.
type FileService struct {
	store      ObjectStore
	publisher  EventPublisher
	thumbnails bool
	now        func() time.Time
}

func NewFileService(store ObjectStore, opts Options) *FileService {
	return &FileService{
		store:      store,
		publisher:  opts.Publisher,
		thumbnails: opts.Thumbnails,
		now:        time.Now,
	}
}

// PutObject stores r at "<namespace>/<filename>", replacing any object
// already there.
func (s *FileService) PutObject(ctx context.Context, ns domain.TenantNamespace, filename string, r io.Reader, size int64, contentType string) (domain.UploadResult, error) {
	const op = "put object"
	if filename == "" {
		return domain.UploadResult{}, domain.InputFault(op, "filename is required")
	}
	if r == nil {
		return domain.UploadResult{}, domain.InputFault(op, "file content is required")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = domain.DefaultContentType
	}
	if size < 0 {
		size = -1
	}

	key := ns.ObjectKey(filename)
	info, err := s.store.PutObject(ctx, key, r, size, contentType)
	if err != nil {
		return domain.UploadResult{}, domain.StoreFault(op, err)
	}
	url, err := s.store.PresignGet(ctx, key, AccessURLTTL)
	if err != nil {
		return domain.UploadResult{}, domain.StoreFault(op, err)
	}

	result := domain.UploadResult{
		Filename: filename,
		URL:      url,
		Type:     contentType,
		Folder:   ns.String(),
	}
	if s.thumbnails {
		if isImage(contentType) {
			thumbURL, err := s.makeThumbnail(ctx, ns, filename)
			if err != nil {
				commonlog.Warnf("thumbnail for %s skipped: %v", key, err)
			} else {
				result.Thumbnail = thumbURL
			}
		}
		if result.Thumbnail == "" {
			s.dropThumbnail(ctx, ns, filename)
		}
	}
	s.publishUploaded(ctx, ns, key, filename, contentType, info)
	return result, nil
}

// ListObjects returns one entry per object under the namespace, in the
// order the store enumerates them. Any store failure discards the entries
// gathered so far.
func (s *FileService) ListObjects(ctx context.Context, ns domain.TenantNamespace) ([]domain.FileListingEntry, error) {
	const op = "list objects"
	entries := make([]domain.FileListingEntry, 0)
	for listed, err := range s.store.ListObjects(ctx, ns.KeyPrefix()) {
		if err != nil {
			return nil, domain.StoreFault(op, err)
		}
		stat, err := s.store.StatObject(ctx, listed.Key)
		if err != nil {
			return nil, domain.StoreFault(op, fmt.Errorf("stat %s: %w", listed.Key, err))
		}
		url, err := s.store.PresignGet(ctx, listed.Key, AccessURLTTL)
		if err != nil {
			return nil, domain.StoreFault(op, fmt.Errorf("presign %s: %w", listed.Key, err))
		}
		entries = append(entries, projectEntry(storedObject(listed, stat.ContentType), url))
	}
	return entries, nil
}

func storedObject(listed object.Info, contentType string) domain.StoredObject {
	if contentType == "" {
		contentType = domain.DefaultContentType
	}
	return domain.StoredObject{
		Key:          listed.Key,
		Name:         displayName(listed.Key),
		Size:         listed.Size,
		ContentType:  contentType,
		ETag:         strings.Trim(listed.ETag, `"`),
		LastModified: listed.LastModified,
	}
}

func projectEntry(obj domain.StoredObject, url string) domain.FileListingEntry {
	entry := domain.FileListingEntry{
		ID:         obj.ETag,
		Name:       obj.Name,
		Size:       obj.Size,
		Type:       obj.ContentType,
		URL:        url,
		UploadedAt: obj.LastModified.UTC().Format(time.RFC3339Nano),
	}
	if isImage(obj.ContentType) {
		preview := url
		entry.Preview = &preview
	}
	return entry
}

// displayName drops everything up to and including the last "/".
func displayName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func (s *FileService) publishUploaded(ctx context.Context, ns domain.TenantNamespace, key, filename, contentType string, info object.Info) {
	if s.publisher == nil {
		return
	}
	uploadedAt := info.LastModified
	if uploadedAt.IsZero() {
		uploadedAt = s.now()
	}
	event := domain.UploadedEvent{
		Folder:     ns.String(),
		Key:        key,
		Filename:   filename,
		Type:       contentType,
		Size:       info.Size,
		UploadedAt: uploadedAt.UTC(),
	}
	if err := s.publisher.Publish(ctx, ns.String(), uploadedEventKey, event); err != nil && !errors.Is(err, context.Canceled) {
		commonlog.Warnf("publish %s for %s: %v", uploadedEventKey, key, err)
	}
}
