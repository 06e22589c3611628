package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONSuccess writes {"status":"success","data":{"data":...}}.
func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"status": "success", "data": gin.H{"data": data}})
}

// JSONList is JSONSuccess with a results count.
func JSONList(c *gin.Context, data interface{}, results int) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": results, "data": gin.H{"data": data}})
}

// JSONError writes {"status":...,"message":...}.
func JSONError(c *gin.Context, code int, status, message string) {
	c.JSON(code, gin.H{"status": status, "message": message})
}

// NoContent answers 204 with an empty body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// BaseURL is scheme://host of the current request, honoring proxy headers.
func BaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
