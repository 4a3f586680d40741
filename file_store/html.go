package file_store

import (
	"context"
	"strings"

	"github.com/Luismorlan/storagepath/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// OffloadImageSourceFromHtml copies every <img> of sourceHtml into store and
// points src at the stored copy. Images that fail to copy keep their src.
func OffloadImageSourceFromHtml(sourceHtml string, store CollectedFileStore) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sourceHtml))
	if err != nil {
		return "", utils.ImmediatePrintError(err)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		originUrl, exists := s.Attr("src")
		if !exists {
			return
		}
		key, err := store.FetchAndStore(originUrl, "")
		if err != nil {
			return
		}
		s.SetAttr("src", store.GetUrlFromKey(key))
	})

	return doc.Html()
}

// StoredImageKeysFromHtml returns the keys of all <img> in html that are
// served by store, in document order
func StoredImageKeysFromHtml(html string, store CollectedFileStore) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, utils.ImmediatePrintError(err)
	}

	keys := []string{}
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists {
			return
		}
		if key, ok := store.GetKeyFromUrl(src); ok {
			keys = append(keys, key)
		}
	})
	return keys, nil
}

// DeleteImagesInHtml deletes every stored image referenced by html, keeps
// going on failure and reports how many deletions failed
func DeleteImagesInHtml(ctx context.Context, html string, store CollectedFileStore) (deleted int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, utils.ImmediatePrintError(err)
	}

	var lastErr error
	failedCnt := 0
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists {
			return
		}
		if _, ok := store.GetKeyFromUrl(src); !ok {
			return
		}
		if e := store.DeleteByUrl(ctx, src); e != nil {
			lastErr = e
			failedCnt++
			return
		}
		deleted++
	})

	if failedCnt > 0 {
		return deleted, errors.Wrapf(lastErr, "%d image(s) failed to delete", failedCnt)
	}
	return deleted, nil
}

func UploadImageToStore(store CollectedFileStore, imageUrl string, fileName string) (string, error) {
	if len(imageUrl) == 0 {
		return "", errors.New("empty image url")
	}
	key, err := store.FetchAndStore(imageUrl, fileName)
	if err != nil {
		return imageUrl, err
	}
	return store.GetUrlFromKey(key), nil
}

// limitation: cannot specify filename
func UploadImagesToStore(store CollectedFileStore, imageUrls []string) ([]string, error) {
	if len(imageUrls) == 0 {
		return []string{}, errors.New("empty image url")
	}

	failedCnt := 0
	res := []string{}

	for _, imageUrl := range imageUrls {
		storedUrl, err := UploadImageToStore(store, imageUrl, "")
		if err != nil {
			res = append(res, imageUrl)
			failedCnt++
		} else {
			res = append(res, storedUrl)
		}
	}
	if failedCnt == len(imageUrls) {
		return res, errors.New("all images failed to upload")
	}

	if failedCnt > 0 {
		return res, errors.New("some image(s) failed to upload")
	}
	return res, nil
}
