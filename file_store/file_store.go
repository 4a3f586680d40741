package file_store

import (
	"context"

	"github.com/Luismorlan/storagepath/utils"
	"github.com/pkg/errors"
)

// Shared Func type for file stores
type ProcessUrlBeforeFetchFuncType func(string) string
type CustomizeFileNameFuncType func(string, string) string
type CustomizeFileExtFuncType func(string, string) string
type CustomizeUploadedUrlType func(string) string

var (
	// ErrKeyNotExtractable is returned when a url doesn't point at an object of
	// the store
	ErrKeyNotExtractable = errors.New("object key is not extractable from url")
	ErrEmptyKey          = errors.New("generate empty key, invalid")
)

type CollectedFileStore interface {
	FetchAndStore(url string, fileName string) (key string, err error)
	GetUrlFromKey(key string) string
	// GetKeyFromUrl is the inverse of GetUrlFromKey
	GetKeyFromUrl(url string) (key string, ok bool)
	DeleteByUrl(ctx context.Context, url string) error
	CleanUp()
}

// storeHooks holds the customization points shared by all stores
type storeHooks struct {
	processUrlBeforeFetchFunc ProcessUrlBeforeFetchFuncType
	customizeFileNameFunc     CustomizeFileNameFuncType
	customizeFileExtFunc      CustomizeFileExtFuncType
	customizeUploadedUrlFunc  CustomizeUploadedUrlType
}

func defaultHooks() storeHooks {
	return storeHooks{
		processUrlBeforeFetchFunc: func(s string) string { return s },
	}
}

func (h *storeHooks) SetProcessUrlBeforeFetchFunc(f ProcessUrlBeforeFetchFuncType) {
	h.processUrlBeforeFetchFunc = f
}

func (h *storeHooks) SetCustomizeFileNameFunc(f CustomizeFileNameFuncType) {
	h.customizeFileNameFunc = f
}

func (h *storeHooks) SetCustomizeFileExtFunc(f CustomizeFileExtFuncType) {
	h.customizeFileExtFunc = f
}

func (h *storeHooks) SetCustomizeUploadedUrlFunc(f CustomizeUploadedUrlType) {
	h.customizeUploadedUrlFunc = f
}

// GenerateKeyFromUrl derives the object key, md5 of url plus the extension of
// fileName (or url) unless customized
func (h *storeHooks) GenerateKeyFromUrl(url, fileName string) (key string, err error) {
	if h.customizeFileNameFunc != nil {
		key = h.customizeFileNameFunc(url, fileName)
	} else {
		key, err = utils.TextToMd5Hash(url)
		if err != nil {
			return "", err
		}
	}

	if len(key) == 0 {
		return "", ErrEmptyKey
	}

	if h.customizeFileExtFunc != nil {
		key = key + h.customizeFileExtFunc(url, fileName)
	} else if fileName != "" {
		key = key + utils.GetUrlExtNameWithDot(fileName)
	} else {
		key = key + utils.GetUrlExtNameWithDot(url)
	}

	return key, nil
}
