package file_store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/Luismorlan/storagepath/utils/dotenv"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ CollectedFileStore = &GcsFileStore{}
	_ CollectedFileStore = &S3FileStore{}
	_ CollectedFileStore = &FakeFileStore{}
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

// in memory gcs bucket

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

type memGcs struct {
	mu        sync.Mutex
	objects   map[string]map[string]*memObject
	deleteErr error
	closed    bool
}

func newMemGcs() *memGcs {
	return &memGcs{objects: map[string]map[string]*memObject{}}
}

func (c *memGcs) Bucket(name string) gcsBucketHandle {
	return memBucket{c: c, name: name}
}

func (c *memGcs) Close() error {
	c.closed = true
	return nil
}

func (c *memGcs) get(bucket, key string) (*memObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.objects[bucket][key]
	return o, ok
}

type memBucket struct {
	c    *memGcs
	name string
}

func (b memBucket) Object(name string) gcsObjectHandle {
	return memObjectHandle{c: b.c, bucket: b.name, key: name}
}

type memObjectHandle struct {
	c      *memGcs
	bucket string
	key    string
}

func (o memObjectHandle) Attrs(ctx context.Context) (*storage.ObjectAttrs, error) {
	obj, ok := o.c.get(o.bucket, o.key)
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return &storage.ObjectAttrs{Bucket: o.bucket, Name: o.key, ContentType: obj.contentType, Metadata: obj.metadata}, nil
}

func (o memObjectHandle) NewWriter(ctx context.Context, contentType string, metadata map[string]string) io.WriteCloser {
	return &memWriter{o: o, contentType: contentType, metadata: metadata}
}

func (o memObjectHandle) Delete(ctx context.Context) error {
	if o.c.deleteErr != nil {
		return o.c.deleteErr
	}
	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	if _, ok := o.c.objects[o.bucket][o.key]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(o.c.objects[o.bucket], o.key)
	return nil
}

type memWriter struct {
	bytes.Buffer
	o           memObjectHandle
	contentType string
	metadata    map[string]string
}

func (w *memWriter) Close() error {
	w.o.c.mu.Lock()
	defer w.o.c.mu.Unlock()
	if w.o.c.objects[w.o.bucket] == nil {
		w.o.c.objects[w.o.bucket] = map[string]*memObject{}
	}
	w.o.c.objects[w.o.bucket][w.o.key] = &memObject{data: w.Bytes(), contentType: w.contentType, metadata: w.metadata}
	return nil
}

func newImageServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png:" + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestGenerateKeyFromUrl(t *testing.T) {
	h := defaultHooks()

	key, err := h.GenerateKeyFromUrl("https://a.com/b/c.png?x=1", "")
	require.Nil(t, err)
	assert.Len(t, key, 36)
	assert.Equal(t, ".png", key[32:])

	key, err = h.GenerateKeyFromUrl("https://a.com/b/c", "avatar.jpg")
	require.Nil(t, err)
	assert.Equal(t, ".jpg", key[32:])

	h.SetCustomizeFileNameFunc(func(url, fileName string) string { return "images/" + fileName })
	h.SetCustomizeFileExtFunc(func(url, fileName string) string { return ".webp" })
	key, err = h.GenerateKeyFromUrl("https://a.com/b/c.png", "avatar")
	require.Nil(t, err)
	assert.Equal(t, "images/avatar.webp", key)

	h.SetCustomizeFileNameFunc(func(url, fileName string) string { return "" })
	_, err = h.GenerateKeyFromUrl("https://a.com/b/c.png", "avatar")
	assert.Equal(t, ErrEmptyKey, err)
}

func TestGcsFileStoreFetchAndStore(t *testing.T) {
	server, hits := newImageServer(t)
	client := newMemGcs()
	s := newGcsFileStoreWithClient("my-bucket", client)
	s.SetCustomizeFileNameFunc(func(url, fileName string) string { return "images/avatar" })

	key, err := s.FetchAndStore(server.URL+"/avatar.png", "")
	require.Nil(t, err)
	assert.Equal(t, "images/avatar.png", key)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	obj, ok := client.get("my-bucket", key)
	require.True(t, ok)
	assert.Equal(t, "png:/avatar.png", string(obj.data))
	assert.Equal(t, "image/png", obj.contentType)
	token := obj.metadata[DownloadTokenMetadataKey]
	assert.NotEmpty(t, token)

	u := s.GetUrlFromKey(key)
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/my-bucket/o/images%2Favatar.png?alt=media&token="+token, u)

	gotKey, ok := s.GetKeyFromUrl(u)
	require.True(t, ok)
	assert.Equal(t, key, gotKey)

	// existing key is not fetched again
	key2, err := s.FetchAndStore(server.URL+"/avatar.png", "")
	require.Nil(t, err)
	assert.Equal(t, key, key2)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestGcsFileStoreFetchFailure(t *testing.T) {
	server, _ := newImageServer(t)
	client := newMemGcs()
	s := newGcsFileStoreWithClient("my-bucket", client)

	_, err := s.FetchAndStore(server.URL+"/missing.png", "")
	require.NotNil(t, err)
	assert.Empty(t, client.objects["my-bucket"])
}

func TestGcsFileStoreExistingObjectKeepsToken(t *testing.T) {
	server, hits := newImageServer(t)
	client := newMemGcs()
	w := client.Bucket("my-bucket").Object("images/avatar.png").NewWriter(context.Background(), "image/png", map[string]string{
		DownloadTokenMetadataKey: "existing-token,older-token",
	})
	w.Write([]byte("data"))
	require.Nil(t, w.Close())

	// a fresh store knows nothing about tokens of objects already in the bucket
	s := newGcsFileStoreWithClient("my-bucket", client)
	s.SetCustomizeFileNameFunc(func(url, fileName string) string { return "images/avatar" })

	key, err := s.FetchAndStore(server.URL+"/avatar.png", "")
	require.Nil(t, err)
	assert.Equal(t, "images/avatar.png", key)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/my-bucket/o/images%2Favatar.png?alt=media&token=existing-token", s.GetUrlFromKey(key))
}

func TestDownloadToken(t *testing.T) {
	assert.Equal(t, "a", downloadToken(&storage.ObjectAttrs{Metadata: map[string]string{DownloadTokenMetadataKey: "a, b"}}))
	assert.Equal(t, "", downloadToken(&storage.ObjectAttrs{}))
}

func TestGcsFileStoreGetKeyFromUrl(t *testing.T) {
	s := newGcsFileStoreWithClient("my-bucket", newMemGcs())

	key, ok := s.GetKeyFromUrl("https://firebasestorage.googleapis.com/v0/b/my-bucket/o/images%2Favatar.png?alt=media&token=abc")
	require.True(t, ok)
	assert.Equal(t, "images/avatar.png", key)

	// custom domain without bucket segment
	key, ok = s.GetKeyFromUrl("https://cdn.example.com/o/a%2Fb.png")
	require.True(t, ok)
	assert.Equal(t, "a/b.png", key)

	_, ok = s.GetKeyFromUrl("https://firebasestorage.googleapis.com/v0/b/other-bucket/o/images%2Favatar.png")
	assert.False(t, ok)
	_, ok = s.GetKeyFromUrl("not a url")
	assert.False(t, ok)
	_, ok = s.GetKeyFromUrl("")
	assert.False(t, ok)
}

func TestGcsFileStoreCustomHost(t *testing.T) {
	s := newGcsFileStoreWithClient("my-bucket", newMemGcs())
	s.SetHost("cdn.example.com")
	assert.Equal(t, "https://cdn.example.com/v0/b/my-bucket/o/a%2Fb.png?alt=media", s.GetUrlFromKey("a/b.png"))

	s.SetCustomizeUploadedUrlFunc(func(key string) string { return "https://img.example.com/" + key })
	assert.Equal(t, "https://img.example.com/a/b.png", s.GetUrlFromKey("a/b.png"))
}

func TestGcsFileStoreDeleteByUrl(t *testing.T) {
	client := newMemGcs()
	s := newGcsFileStoreWithClient("my-bucket", client)
	w := client.Bucket("my-bucket").Object("images/avatar.png").NewWriter(context.Background(), "image/png", nil)
	w.Write([]byte("data"))
	require.Nil(t, w.Close())

	u := "https://firebasestorage.googleapis.com/v0/b/my-bucket/o/images%2Favatar.png?alt=media"
	require.Nil(t, s.DeleteByUrl(context.Background(), u))
	_, ok := client.get("my-bucket", "images/avatar.png")
	assert.False(t, ok)

	// deleting twice is fine
	assert.Nil(t, s.DeleteByUrl(context.Background(), u))

	assert.Equal(t, ErrKeyNotExtractable, s.DeleteByUrl(context.Background(), "https://example.com/v0/b/my-bucket/nope/x"))

	client.deleteErr = errors.New("permission denied")
	err := s.DeleteByUrl(context.Background(), u)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestGcsFileStoreCleanUp(t *testing.T) {
	client := newMemGcs()
	s := newGcsFileStoreWithClient("my-bucket", client)
	s.CleanUp()
	assert.True(t, client.closed)
	assert.Equal(t, "my-bucket", s.Bucket())
}

// s3

type mockS3 struct {
	s3iface.S3API
	existing  map[string]bool
	deleted   []string
	deleteErr error
}

func (m *mockS3) HeadObject(input *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	if m.existing[*input.Key] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, awserr.New("NotFound", "not found", nil)
}

func (m *mockS3) DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	m.deleted = append(m.deleted, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3FileStoreUrlAndKey(t *testing.T) {
	s := newS3FileStoreWithClient("bucket", "https://cdn.example.com", &mockS3{})

	u := s.GetUrlFromKey("a b.png")
	assert.Equal(t, "https://cdn.example.com/a%20b.png", u)

	key, ok := s.GetKeyFromUrl(u + "?v=1")
	require.True(t, ok)
	assert.Equal(t, "a b.png", key)

	_, ok = s.GetKeyFromUrl("https://other.example.com/a.png")
	assert.False(t, ok)
	_, ok = s.GetKeyFromUrl("https://cdn.example.com/")
	assert.False(t, ok)
	_, ok = s.GetKeyFromUrl("https://cdn.example.com/%zz")
	assert.False(t, ok)
}

func TestS3FileStoreFetchAndStoreExistingKey(t *testing.T) {
	server, hits := newImageServer(t)
	m := &mockS3{existing: map[string]bool{"cached.png": true}}
	s := newS3FileStoreWithClient("bucket", "https://cdn.example.com/", m)
	s.SetCustomizeFileNameFunc(func(url, fileName string) string { return "cached" })

	key, err := s.FetchAndStore(server.URL+"/cached.png", "")
	require.Nil(t, err)
	assert.Equal(t, "cached.png", key)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestS3FileStoreDeleteByUrl(t *testing.T) {
	m := &mockS3{}
	s := newS3FileStoreWithClient("bucket", "https://cdn.example.com/", m)

	require.Nil(t, s.DeleteByUrl(context.Background(), "https://cdn.example.com/a.png"))
	assert.True(t, cmp.Equal([]string{"a.png"}, m.deleted))

	assert.Equal(t, ErrKeyNotExtractable, s.DeleteByUrl(context.Background(), "https://firebasestorage.googleapis.com/v0/b/b/o/a.png"))

	m.deleteErr = awserr.New(s3.ErrCodeNoSuchKey, "gone", nil)
	assert.Nil(t, s.DeleteByUrl(context.Background(), "https://cdn.example.com/a.png"))

	m.deleteErr = awserr.New("AccessDenied", "denied", nil)
	assert.NotNil(t, s.DeleteByUrl(context.Background(), "https://cdn.example.com/a.png"))
}

// fake

func TestFakeFileStore(t *testing.T) {
	s := NewFakeFileStore()
	s.SetCustomizeFileNameFunc(func(url, fileName string) string { return "images/" + fileName })

	key, err := s.FetchAndStore("https://origin.example.com/a.png", "avatar.png")
	require.Nil(t, err)
	assert.Equal(t, "images/avatar.png.png", key)

	data, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "https://origin.example.com/a.png", string(data))

	u := s.GetUrlFromKey(key)
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/fake-bucket/o/images%2Favatar.png.png?alt=media", u)

	gotKey, ok := s.GetKeyFromUrl(u)
	require.True(t, ok)
	assert.Equal(t, key, gotKey)

	s.Put("b.png", []byte("b"))
	assert.True(t, cmp.Equal([]string{"b.png", key}, s.Keys()))

	require.Nil(t, s.DeleteByUrl(context.Background(), u))
	assert.True(t, cmp.Equal([]string{"b.png"}, s.Keys()))
	assert.Equal(t, ErrKeyNotExtractable, s.DeleteByUrl(context.Background(), "not a url"))

	// another bucket's url never touches the fake bucket
	otherBucketUrl := "https://firebasestorage.googleapis.com/v0/b/other-bucket/o/b.png?alt=media"
	_, ok = s.GetKeyFromUrl(otherBucketUrl)
	assert.False(t, ok)
	assert.Equal(t, ErrKeyNotExtractable, s.DeleteByUrl(context.Background(), otherBucketUrl))
	assert.True(t, cmp.Equal([]string{"b.png"}, s.Keys()))

	s.CleanUp()
	assert.Empty(t, s.Keys())
}
