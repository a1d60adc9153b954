package object

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
}

// MemoryStore keeps objects in process memory. Listings come back in key
// order, as S3 returns them.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
	now     func() time.Time
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: map[string]memObject{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Bucket() string {
	return m.bucket
}

func (m *MemoryStore) EnsureBucket(context.Context) error {
	return nil
}

func (m *MemoryStore) PutObject(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("read object body: %w", err)
	}
	sum := md5.Sum(data)
	obj := memObject{
		data:        data,
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		modified:    m.now(),
	}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()
	return obj.info(key), nil
}

func (m *MemoryStore) ListObjects(ctx context.Context, prefix string) iter.Seq2[Info, error] {
	return func(yield func(Info, error) bool) {
		m.mu.RLock()
		keys := make([]string, 0, len(m.objects))
		for k := range m.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		snapshot := make(map[string]memObject, len(keys))
		for _, k := range keys {
			snapshot[k] = m.objects[k]
		}
		m.mu.RUnlock()

		slices.Sort(keys)
		for _, k := range keys {
			if err := ctx.Err(); err != nil {
				yield(Info{}, err)
				return
			}
			info := snapshot[k].info(k)
			// Listings do not carry content type.
			info.ContentType = ""
			if !yield(info, nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) StatObject(ctx context.Context, key string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("stat %s: %w", key, os.ErrNotExist)
	}
	return obj.info(key), nil
}

func (m *MemoryStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "memory",
		Host:   m.bucket,
		Path:   "/" + key,
	}
	q := url.Values{}
	q.Set("expires", m.now().Add(ttl).Format(time.RFC3339))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *MemoryStore) RemoveObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (o memObject) info(key string) Info {
	return Info{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		ETag:         o.etag,
		LastModified: o.modified,
	}
}
