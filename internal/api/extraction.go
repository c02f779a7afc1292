package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/fetch"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/photo"
	"github.com/pageza/recipebox/internal/service"
)

// FallbackAvailableHeader marks a photo failure that offline recognition could still handle.
const FallbackAvailableHeader = "X-Fallback-Available"

// ClientClassHeader lets a client state its class instead of relying on User-Agent sniffing.
const ClientClassHeader = "X-Client-Class"

type ExtractionHandler struct {
	extractor *service.Extractor
}

func NewExtractionHandler(extractor *service.Extractor) *ExtractionHandler {
	return &ExtractionHandler{extractor: extractor}
}

// RegisterRoutes mounts the extraction endpoints behind any extra middleware,
// such as a rate limiter.
func (h *ExtractionHandler) RegisterRoutes(router *gin.RouterGroup, mw ...gin.HandlerFunc) {
	extract := router.Group("/extract", mw...)
	{
		extract.POST("/url", h.ExtractURL)
		extract.POST("/photo", h.ExtractPhoto)
	}
}

// ExtractionResponse is returned for a successful extraction.
type ExtractionResponse struct {
	Recipe       model.Recipe    `json:"recipe"`
	UsedFallback bool            `json:"usedFallback"`
	Trace        []service.State `json:"trace"`
}

type extractURLRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *ExtractionHandler) ExtractURL(c *gin.Context) {
	var req extractURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	class := fetch.ClassifyUserAgent(c.Request.UserAgent())
	if v := c.GetHeader(ClientClassHeader); v != "" {
		parsed, err := fetch.ParseClientClass(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		class = parsed
	}

	out, err := h.extractor.ExtractFromURL(c.Request.Context(), req.URL, class)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ExtractionResponse{Recipe: out.Recipe, UsedFallback: out.UsedFallback, Trace: out.Trace})
}

// ExtractPhoto accepts a multipart "photo" file. The offline fallback only
// runs after a model failure when the form field "fallback" is true, which the
// client sets once the user has agreed to it.
func (h *ExtractionHandler) ExtractPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	defer f.Close()

	img, err := photo.FromReader(f)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	decider := service.DeclineFallback
	fallback, _ := strconv.ParseBool(c.PostForm("fallback"))
	if fallback {
		decider = service.DeciderFunc(func(context.Context, string) bool { return true })
	}

	out, err := h.extractor.ExtractFromPhoto(c.Request.Context(), img, decider)
	if err != nil {
		// The client may retry with fallback=true after asking the user.
		if !fallback && isModelFailure(apperr.KindOf(err)) {
			c.Header(FallbackAvailableHeader, "true")
		}
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ExtractionResponse{Recipe: out.Recipe, UsedFallback: out.UsedFallback, Trace: out.Trace})
}

func isModelFailure(kind apperr.Kind) bool {
	switch kind {
	case apperr.UnsupportedFileType, apperr.Invalid, apperr.NotFound:
		return false
	}
	return true
}
