package file_store

import (
	"io"
	"net/http"

	Logger "github.com/Luismorlan/storagepath/utils/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	fetchRetryMax = 3
)

func newFetchClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = fetchRetryMax
	client.Logger = Logger.Log
	return client
}

// fetch downloads url, caller must close the returned body
func fetch(client *retryablehttp.Client, url string) (body io.ReadCloser, contentType string, err error) {
	response, err := client.Get(url)
	if err != nil {
		return nil, "", errors.Wrapf(err, "fail to download file from url: %s", url)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		response.Body.Close()
		return nil, "", errors.Errorf("fail to download file from url: %s, status: %d", url, response.StatusCode)
	}
	return response.Body, response.Header.Get("Content-Type"), nil
}
