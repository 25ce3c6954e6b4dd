package server

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-fishspots/assets"
)

// SetupAssets serves the map page at / and its scripts under /assets.
func SetupAssets(r *gin.Engine) error {
	staticFiles, err := fs.Sub(assets.Assets, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/assets", http.FS(staticFiles))
	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(staticFiles))
	})
	return nil
}
