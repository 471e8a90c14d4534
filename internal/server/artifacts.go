package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetArtifact streams one artifact, or lists the shop's artifacts when
// no key is given. Keys outside the shop's namespace come back from
// the gateway as not found.
func (s *Server) GetArtifact(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		artifacts, err := s.storage.List(c.Request.Context(), shopFrom(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"artifacts": artifacts})
		return
	}

	data, err := s.storage.Get(c.Request.Context(), shopFrom(c), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filenameFromKey(key)+`"`)
	c.Data(http.StatusOK, contentTypeForKey(key), data)
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(key, ".zip"):
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

func filenameFromKey(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
