package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/backup"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/service"
)

// maxImportSize bounds an uploaded export file.
const maxImportSize = 32 << 20

type BackupHandler struct {
	collection *service.Collection
	target     backup.Target
}

// NewBackupHandler creates the export/import handler. target may be nil when
// no remote backup location is configured.
func NewBackupHandler(collection *service.Collection, target backup.Target) *BackupHandler {
	return &BackupHandler{collection: collection, target: target}
}

func (h *BackupHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/export", h.Export)
	router.POST("/export/remote", h.ExportRemote)
	router.POST("/import", h.Import)
}

// Export downloads the collection as a JSON attachment.
func (h *BackupHandler) Export(c *gin.Context) {
	data, err := h.collection.Export(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+service.ExportFileName(time.Now())+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// ExportRemote writes the export to the configured backup target.
func (h *BackupHandler) ExportRemote(c *gin.Context) {
	if h.target == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no backup location is configured"})
		return
	}
	data, err := h.collection.Export(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	location, err := h.target.Save(c.Request.Context(), service.ExportFileName(time.Now()), data)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"location": location})
}

// Import accepts an export file as a multipart "file" field or as the raw
// request body. ?mode=merge|replace (default merge).
func (h *BackupHandler) Import(c *gin.Context) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		defer f.Close()
		body = io.LimitReader(f, maxImportSize)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		middleware.AbortWithError(c, apperr.Wrap(apperr.InvalidImportFile, err))
		return
	}

	res, err := h.collection.Import(c.Request.Context(), data, c.DefaultQuery("mode", service.ImportMerge))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
