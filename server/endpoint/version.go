package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/portalgpt/version"
)

// Version serves the build info, resolved once when the route is built.
func Version() gin.HandlerFunc {
	info := version.Get()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
