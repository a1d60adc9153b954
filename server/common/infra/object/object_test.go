package object

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveStoreOp(op string, _ time.Time, err error) {
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("media-storage")

	info, err := store.PutObject(ctx, "team/b.txt", strings.NewReader("hello"), -1, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", info.ETag)

	_, err = store.PutObject(ctx, "team/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "other/c.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)

	var keys []string
	for obj, err := range store.ListObjects(ctx, "team/") {
		require.NoError(t, err)
		assert.Empty(t, obj.ContentType)
		keys = append(keys, obj.Key)
	}
	assert.Equal(t, []string{"team/a.png", "team/b.txt"}, keys)

	stat, err := store.StatObject(ctx, "team/a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", stat.ContentType)

	rc, err := store.GetObject(ctx, "team/b.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = store.StatObject(ctx, "team/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryStoreListStopsEarly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("b")
	for _, k := range []string{"p/1", "p/2", "p/3"} {
		_, err := store.PutObject(ctx, k, strings.NewReader(k), -1, "")
		require.NoError(t, err)
	}
	seen := 0
	for range store.ListObjects(ctx, "p/") {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestMemoryStoreHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore("b").PutObject(ctx, "k", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStorePresign(t *testing.T) {
	store := NewMemoryStore("media-storage")
	raw, err := store.PresignGet(context.Background(), "team/a b.png", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "memory", u.Scheme)
	assert.Equal(t, "/team/a b.png", u.Path)
	assert.NotEmpty(t, u.Query().Get("expires"))
}

func TestSplitEndpoint(t *testing.T) {
	host, secure, err := splitEndpoint("files.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "files.example.com", host)
	assert.True(t, secure)

	host, secure, err = splitEndpoint("http://100.79.21.59:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "100.79.21.59:9000", host)
	assert.False(t, secure)

	_, _, err = splitEndpoint("https://", false)
	assert.Error(t, err)
}

func TestMinIOStorePresignUsesPublicEndpoint(t *testing.T) {
	obs := &recordingObserver{}
	store, err := NewMinIOStore(Config{
		Endpoint:       "minio:9000",
		PublicEndpoint: "https://files.example.com",
		AccessKey:      "admin",
		SecretKey:      "admin123",
		Bucket:         "media-storage",
		Region:         "us-east-1",
	}, obs)
	require.NoError(t, err)

	raw, err := store.PresignGet(context.Background(), "team/a.png", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "files.example.com", u.Host)
	assert.Equal(t, "/media-storage/team/a.png", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, []string{"presign"}, obs.ops)
	assert.NoError(t, obs.errs[0])
}

func TestNewMinIOStoreRequiresBucket(t *testing.T) {
	_, err := NewMinIOStore(Config{Endpoint: "minio:9000"}, nil)
	assert.Error(t, err)
}

func TestMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("b")
	_, err := store.PutObject(ctx, "team/a.txt", strings.NewReader("a"), 1, "text/plain")
	require.NoError(t, err)

	require.NoError(t, store.RemoveObject(ctx, "team/a.txt"))
	_, err = store.StatObject(ctx, "team/a.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, store.RemoveObject(ctx, "team/a.txt"))
}

const listPageXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
<Name>media-storage</Name><Prefix>team/</Prefix><KeyCount>1</KeyCount><MaxKeys>1000</MaxKeys>
<IsTruncated>%t</IsTruncated><NextContinuationToken>%s</NextContinuationToken>
<Contents><Key>%s</Key><LastModified>2026-01-02T03:04:05.000Z</LastModified><ETag>&quot;%s&quot;</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>
</ListBucketResult>`

const accessDeniedXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied.</Message><Resource>/media-storage</Resource><RequestId>1</RequestId></Error>`

// newListServer answers ListObjectsV2 for bucket media-storage in two pages
// linked by a continuation token. With failSecondPage the second page is
// refused.
func newListServer(t *testing.T, failSecondPage bool) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		tokens []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.TrimSuffix(r.URL.Path, "/") != "/media-storage" || r.URL.Query().Get("list-type") != "2" {
			http.NotFound(w, r)
			return
		}
		token := r.URL.Query().Get("continuation-token")
		mu.Lock()
		tokens = append(tokens, token)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/xml")
		switch token {
		case "":
			fmt.Fprintf(w, listPageXML, true, "page-2", "team/a.png", "aaa", 3)
		case "page-2":
			if failSecondPage {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, accessDeniedXML)
				return
			}
			fmt.Fprintf(w, listPageXML, false, "", "team/b.txt", "bbb", 5)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(tokens)
	}
}

func newStubMinIOStore(t *testing.T, srv *httptest.Server, obs Observer) *MinIOStore {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	store, err := NewMinIOStore(Config{
		Endpoint:  u.Host,
		AccessKey: "admin",
		SecretKey: "admin123",
		Bucket:    "media-storage",
		Region:    "us-east-1",
	}, obs)
	require.NoError(t, err)
	return store
}

func TestMinIOStoreListFollowsContinuationToken(t *testing.T) {
	srv, tokens := newListServer(t, false)
	obs := &recordingObserver{}
	store := newStubMinIOStore(t, srv, obs)

	var got []Info
	for obj, err := range store.ListObjects(context.Background(), "team/") {
		require.NoError(t, err)
		got = append(got, obj)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "team/a.png", got[0].Key)
	assert.Equal(t, "aaa", got[0].ETag)
	assert.Equal(t, int64(3), got[0].Size)
	assert.Equal(t, "team/b.txt", got[1].Key)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got[1].LastModified.UTC())
	assert.Equal(t, []string{"", "page-2"}, tokens())
	assert.Equal(t, []string{"list"}, obs.ops)
	assert.NoError(t, obs.errs[0])
}

func TestMinIOStoreListStopsEarly(t *testing.T) {
	srv, _ := newListServer(t, false)
	store := newStubMinIOStore(t, srv, nil)

	seen := 0
	for _, err := range store.ListObjects(context.Background(), "team/") {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestMinIOStoreListSurfacesPageError(t *testing.T) {
	srv, _ := newListServer(t, true)
	obs := &recordingObserver{}
	store := newStubMinIOStore(t, srv, obs)

	var keys []string
	var errs []error
	for obj, err := range store.ListObjects(context.Background(), "team/") {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keys = append(keys, obj.Key)
	}
	assert.Equal(t, []string{"team/a.png"}, keys)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Access Denied")
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0])
}
