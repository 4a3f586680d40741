package server

import (
	"net/http"

	"github.com/Luismorlan/storagepath/file_store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

type RouterOptions struct {
	// TraceServiceName tags traces, tracing middleware is only installed when set
	// to a non empty value
	TraceServiceName string
}

// NewRouter wires all routes, with the Logger and Recovery middleware already
// attached
func NewRouter(store file_store.CollectedFileStore, opts RouterOptions) *gin.Engine {
	router := gin.Default()

	router.Use(cors.Default())
	if opts.TraceServiceName != "" {
		router.Use(gintrace.Middleware(opts.TraceServiceName))
	}

	router.GET("/storage_path", StoragePathHandler())
	router.POST("/storage_path/batch", BatchStoragePathHandler())
	router.DELETE("/object", DeleteObjectHandler(store))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	return router
}
