package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// responseRecorder is a custom ResponseWriter to capture status and body
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       string
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.statusCode >= 400 {
		r.body = strings.TrimSpace(string(b))
		// Do not write the original error body to the response
		return len(b), nil
	}
	return r.ResponseWriter.Write(b)
}

// ErrorHandler wraps a plain net/http handler so that panics and error
// statuses come back as a JSON ErrorResponse.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic in handler", "path", r.URL.Path, "panic", err)
				rec.Header().Set("Content-Type", "application/json")
				rec.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal Server Error"})
			} else if rec.statusCode >= 400 {
				slog.Warn("Handler returned error", "path", r.URL.Path, "status", rec.statusCode, "error", rec.body)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: rec.body})
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// StatusFor maps an error kind to the HTTP status the API responds with.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.CredentialMissing:
		return http.StatusPreconditionRequired
	case apperr.CredentialInvalid:
		return http.StatusUnauthorized
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.ContentSafetyRejected, apperr.InvalidImportFile, apperr.Invalid:
		return http.StatusUnprocessableEntity
	case apperr.UnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case apperr.NetworkUnavailable, apperr.MalformedModelResponse:
		return http.StatusBadGateway
	case apperr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as a JSON ErrorResponse with a status derived from its kind.
func AbortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "kind", kind, "error", err)
	} else {
		log.Warn("Request rejected", "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: apperr.UserMessage(err), Kind: string(kind)})
}
