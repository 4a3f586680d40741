package file_store

import (
	"context"
	"sort"
	"sync"

	"github.com/Luismorlan/storagepath/storage_path"
)

const (
	FakeBucket = "fake-bucket"
)

// FakeFileStore keeps objects in memory and never touches the network. It
// serves firebase style download urls, so tests can run against it without
// any storage credentials.
type FakeFileStore struct {
	storeHooks
	mu      sync.Mutex
	objects map[string][]byte
}

func NewFakeFileStore() *FakeFileStore {
	return &FakeFileStore{
		storeHooks: defaultHooks(),
		objects:    map[string][]byte{},
	}
}

// FetchAndStore records the source url as the object content
func (s *FakeFileStore) FetchAndStore(url string, fileName string) (key string, err error) {
	key, err = s.GenerateKeyFromUrl(url, fileName)
	if err != nil {
		return "", err
	}
	s.Put(key, []byte(s.processUrlBeforeFetchFunc(url)))
	return key, nil
}

func (s *FakeFileStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

func (s *FakeFileStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Keys returns all stored keys in order
func (s *FakeFileStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *FakeFileStore) GetUrlFromKey(key string) string {
	if s.customizeUploadedUrlFunc != nil {
		return s.customizeUploadedUrlFunc(key)
	}
	return storage_path.BuildDownloadUrl(storage_path.DefaultStorageHost, FakeBucket, key, "")
}

// GetKeyFromUrl rejects urls of other buckets, same as GcsFileStore
func (s *FakeFileStore) GetKeyFromUrl(url string) (string, bool) {
	key, ok := storage_path.ExtractStoragePath(url)
	if !ok {
		return "", false
	}
	if bucket, found := storage_path.ExtractBucket(url); found && bucket != FakeBucket {
		return "", false
	}
	return key, true
}

func (s *FakeFileStore) DeleteByUrl(ctx context.Context, url string) error {
	key, ok := s.GetKeyFromUrl(url)
	if !ok {
		return ErrKeyNotExtractable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *FakeFileStore) CleanUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = map[string][]byte{}
}
