package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"staytrack/internal/blob"
	"staytrack/internal/core"
	"staytrack/pkg/domain"
)

const entityFile domain.EntityType = "file"

// fileVisible reports whether sess may read the blob at key. Owners see
// everything under their prefix; students only their own documents.
func fileVisible(sess domain.Session, key string) bool {
	prefix := "owners/" + sess.OwnerID + "/"
	if sess.Role == domain.RoleStudent {
		prefix += "students/" + sess.StudentID + "/"
	}
	return sess.OwnerID != "" && strings.HasPrefix(key, prefix)
}

// serveFile streams a stored blob for stores whose URLs point back at the API.
func (s *Server) serveFile(c *gin.Context) {
	if s.blobs == nil {
		writeError(c, core.ErrBlobStoreDisabled)
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !fileVisible(session(c), key) {
		writeError(c, domain.ErrNotFound{Entity: entityFile, ID: key})
		return
	}
	info, body, err := s.blobs.Get(c.Request.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(c, domain.ErrNotFound{Entity: entityFile, ID: key})
		return
	}
	if err != nil {
		writeError(c, &domain.StorageError{Op: "get", Entity: entityFile, Err: err})
		return
	}
	defer body.Close()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}
