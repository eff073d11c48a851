package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/internal/importer"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// badRequest marks a request that failed binding or validation.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func invalid(msg string) error { return &badRequest{msg: msg} }

// statusTable maps sentinel errors to HTTP status codes. The first match
// wins.
var statusTable = []struct {
	err    error
	status int
}{
	{types.ErrNotFound, http.StatusNotFound},
	{errRouteNotFound, http.StatusNotFound},
	{errMissingToken, http.StatusUnauthorized},
	{types.ErrInvalidCredentials, http.StatusUnauthorized},
	{types.ErrInvalidToken, http.StatusForbidden},
	{errAdminRequired, http.StatusForbidden},
	{types.ErrEmailTaken, http.StatusConflict},
	{types.ErrDuplicateEvent, http.StatusConflict},
	{types.ErrDuplicateTag, http.StatusConflict},
	{types.ErrDuplicateEventType, http.StatusConflict},
	{photos.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{photos.ErrUnsupportedType, http.StatusUnsupportedMediaType},
	{errThrottled, http.StatusTooManyRequests},
	{types.ErrInvalidID, http.StatusBadRequest},
	{types.ErrInvalidData, http.StatusBadRequest},
	{types.ErrInvalidName, http.StatusBadRequest},
	{types.ErrInvalidStatus, http.StatusBadRequest},
	{types.ErrInvalidDate, http.StatusBadRequest},
	{types.ErrInvalidTimestamp, http.StatusBadRequest},
	{types.ErrNegativeAmount, http.StatusBadRequest},
	{types.ErrInvalidTagType, http.StatusBadRequest},
	{types.ErrInvalidEmoji, http.StatusBadRequest},
	{types.ErrInvalidPath, http.StatusBadRequest},
	{types.ErrUnknownEventType, http.StatusBadRequest},
	{types.ErrInvalidEmail, http.StatusBadRequest},
	{types.ErrWeakPassword, http.StatusBadRequest},
	{photos.ErrTooManyFiles, http.StatusBadRequest},
	{importer.ErrNoHeader, http.StatusBadRequest},
}

// statusOf returns the HTTP status for err, 500 when nothing matches.
func statusOf(err error) int {
	var br *badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError responds with {"error": message}. Internal errors are logged
// and their text withheld.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// abortError is writeError for middleware, which never sees internal
// errors.
func abortError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

// fail is the handlers' shorthand for writeError.
func (s *Server) fail(c *gin.Context, err error) {
	writeError(c, s.logger, err)
}
