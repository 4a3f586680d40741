package file_store

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Luismorlan/storagepath/storage_path"
	Logger "github.com/Luismorlan/storagepath/utils/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	// firebase console only serves tokenized download urls for objects with
	// this metadata entry
	DownloadTokenMetadataKey = "firebaseStorageDownloadTokens"
	defaultGcsTimeout        = 30 * time.Second
)

// the interfaces below wrap cloud.google.com/go/storage for dependency
// injection in tests

type gcsClient interface {
	Bucket(name string) gcsBucketHandle
	Close() error
}

type gcsBucketHandle interface {
	Object(name string) gcsObjectHandle
}

type gcsObjectHandle interface {
	Attrs(ctx context.Context) (*storage.ObjectAttrs, error)
	NewWriter(ctx context.Context, contentType string, metadata map[string]string) io.WriteCloser
	Delete(ctx context.Context) error
}

type gcsClientAdapter struct{ client *storage.Client }

func (a gcsClientAdapter) Bucket(name string) gcsBucketHandle {
	return gcsBucketAdapter{a.client.Bucket(name)}
}

func (a gcsClientAdapter) Close() error {
	return a.client.Close()
}

type gcsBucketAdapter struct{ bucket *storage.BucketHandle }

func (a gcsBucketAdapter) Object(name string) gcsObjectHandle {
	return gcsObjectAdapter{a.bucket.Object(name)}
}

type gcsObjectAdapter struct{ object *storage.ObjectHandle }

func (a gcsObjectAdapter) Attrs(ctx context.Context) (*storage.ObjectAttrs, error) {
	return a.object.Attrs(ctx)
}

func (a gcsObjectAdapter) NewWriter(ctx context.Context, contentType string, metadata map[string]string) io.WriteCloser {
	w := a.object.NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	return w
}

func (a gcsObjectAdapter) Delete(ctx context.Context) error {
	return a.object.Delete(ctx)
}

// GcsFileStore stores files in a firebase / google cloud storage bucket and
// hands out firebase style download urls.
type GcsFileStore struct {
	storeHooks
	bucket     string
	host       string
	client     gcsClient
	httpClient *retryablehttp.Client
	timeout    time.Duration
	// key -> download token of objects uploaded by this store
	tokens sync.Map
}

func NewGcsFileStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GcsFileStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "fail to create gcs client")
	}
	return newGcsFileStoreWithClient(bucket, gcsClientAdapter{client}), nil
}

func newGcsFileStoreWithClient(bucket string, client gcsClient) *GcsFileStore {
	return &GcsFileStore{
		storeHooks: defaultHooks(),
		bucket:     bucket,
		host:       storage_path.DefaultStorageHost,
		client:     client,
		httpClient: newFetchClient(),
		timeout:    defaultGcsTimeout,
	}
}

// SetHost changes the host of generated download urls, e.g. a custom domain
func (s *GcsFileStore) SetHost(host string) {
	s.host = host
}

func (s *GcsFileStore) Bucket() string {
	return s.bucket
}

// If key existed, just return the existing key without update file
func (s *GcsFileStore) FetchAndStore(url, fileName string) (key string, err error) {
	eventualUrl := s.processUrlBeforeFetchFunc(url)
	key, err = s.GenerateKeyFromUrl(url, fileName)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	attrs, err := s.existingAttrs(ctx, key)
	if err != nil {
		return "", err
	}
	if attrs != nil {
		// objects uploaded before a restart or by another process
		if token := downloadToken(attrs); token != "" {
			s.tokens.Store(key, token)
		}
		return key, nil
	}

	body, contentType, err := fetch(s.httpClient, eventualUrl)
	if err != nil {
		Logger.Log.Warn("Fail to download file from url:", eventualUrl, "err:", err)
		return "", err
	}
	defer body.Close()

	token := uuid.New().String()
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx, contentType, map[string]string{
		DownloadTokenMetadataKey: token,
	})
	if _, err = io.Copy(w, body); err != nil {
		w.Close()
		return "", errors.Wrapf(err, "fail to upload %s to bucket %s", key, s.bucket)
	}
	if err = w.Close(); err != nil {
		return "", errors.Wrapf(err, "fail to upload %s to bucket %s", key, s.bucket)
	}

	s.tokens.Store(key, token)
	return key, nil
}

func (s *GcsFileStore) IsKeyExisted(ctx context.Context, key string) (bool, error) {
	attrs, err := s.existingAttrs(ctx, key)
	return attrs != nil, err
}

// existingAttrs returns nil attrs when key doesn't exist
func (s *GcsFileStore) existingAttrs(ctx context.Context, key string) (*storage.ObjectAttrs, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read attrs of %s", key)
	}
	return attrs, nil
}

// downloadToken returns the first of the comma separated tokens firebase keeps
// in the object metadata
func downloadToken(attrs *storage.ObjectAttrs) string {
	tokens := attrs.Metadata[DownloadTokenMetadataKey]
	return strings.TrimSpace(strings.Split(tokens, ",")[0])
}

func (s *GcsFileStore) GetUrlFromKey(key string) string {
	if s.customizeUploadedUrlFunc != nil {
		return s.customizeUploadedUrlFunc(key)
	}
	token := ""
	if t, ok := s.tokens.Load(key); ok {
		token = t.(string)
	}
	return storage_path.BuildDownloadUrl(s.host, s.bucket, key, token)
}

// GetKeyFromUrl rejects download urls of other buckets. Urls without a bucket
// segment (custom domains) are accepted.
func (s *GcsFileStore) GetKeyFromUrl(url string) (string, bool) {
	key, ok := storage_path.ExtractStoragePath(url)
	if !ok {
		return "", false
	}
	if bucket, found := storage_path.ExtractBucket(url); found && bucket != s.bucket {
		return "", false
	}
	return key, true
}

// DeleteByUrl deletes the object a download url points at. Deleting an object
// that doesn't exist is not an error.
func (s *GcsFileStore) DeleteByUrl(ctx context.Context, url string) error {
	key, ok := s.GetKeyFromUrl(url)
	if !ok {
		return ErrKeyNotExtractable
	}

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		Logger.Log.WithFields(logrus.Fields{"bucket": s.bucket, "key": key}).Info("object already deleted")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "fail to delete %s from bucket %s", key, s.bucket)
	}

	s.tokens.Delete(key)
	return nil
}

func (s *GcsFileStore) CleanUp() {
	if err := s.client.Close(); err != nil {
		Logger.Log.Warn("fail to close gcs client: ", err)
	}
}
