package server

import (
	"net/http"

	"github.com/Luismorlan/storagepath/file_store"
	"github.com/Luismorlan/storagepath/storage_path"
	"github.com/Luismorlan/storagepath/utils"
	Logger "github.com/Luismorlan/storagepath/utils/log"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	maxBatchSize = 1000
)

type BatchStoragePathRequest struct {
	Urls []string `json:"urls" binding:"required"`
}

// Paths holds nil for urls without a storage path
type BatchStoragePathResponse struct {
	Paths []*string `json:"paths"`
}

// StoragePathHandler answers GET /storage_path?url=<download url>
func StoragePathHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawUrl, exists := c.GetQuery("url")
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": utils.ErrorBadRequest,
				"msg":  "missing url query parameter",
			})
			return
		}

		path, ok := storage_path.ExtractStoragePath(rawUrl)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"code": utils.ErrorPathNotExtractable,
				"msg":  "no storage path in url",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"path": path})
	}
}

// BatchStoragePathHandler answers POST /storage_path/batch, one entry per url
// in request order
func BatchStoragePathHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchStoragePathRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": utils.ErrorBadRequest,
				"msg":  err.Error(),
			})
			return
		}
		if len(req.Urls) > maxBatchSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": utils.ErrorBadRequest,
				"msg":  "too many urls in one batch",
			})
			return
		}

		res := BatchStoragePathResponse{Paths: make([]*string, 0, len(req.Urls))}
		for i := range req.Urls {
			res.Paths = append(res.Paths, storage_path.ExtractStoragePathPtr(&req.Urls[i]))
		}
		c.JSON(http.StatusOK, res)
	}
}

// DeleteObjectHandler answers DELETE /object?url=<download url> by deleting
// the object from store
func DeleteObjectHandler(store file_store.CollectedFileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawUrl, exists := c.GetQuery("url")
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": utils.ErrorBadRequest,
				"msg":  "missing url query parameter",
			})
			return
		}

		err := store.DeleteByUrl(c.Request.Context(), rawUrl)
		if err == file_store.ErrKeyNotExtractable {
			c.JSON(http.StatusNotFound, gin.H{
				"code": utils.ErrorPathNotExtractable,
				"msg":  err.Error(),
			})
			return
		}
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"url": rawUrl}).Error("fail to delete object: ", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code": utils.ErrorStoreFailure,
				"msg":  err.Error(),
			})
			return
		}

		key, _ := store.GetKeyFromUrl(rawUrl)
		Logger.Log.WithFields(logrus.Fields{"key": key}).Info("object deleted")
		c.JSON(http.StatusOK, gin.H{"path": key})
	}
}
