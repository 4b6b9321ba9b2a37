// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the mapping from service errors to status codes, and the
// pagination and conditional-GET helpers shared by list endpoints.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error formatting and logs 5xx with request context.
//   - `failErr()` is the single place where service errors become HTTP
//     results; store failures surface as a generic 500 with no detail.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/http/middleware"
	"github.com/tbourn/helloforever-backend/internal/services"
	"github.com/tbourn/helloforever-backend/internal/storage"
	"github.com/tbourn/helloforever-backend/internal/utils"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"message not found"`
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error onto the error taxonomy.
func failErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeValidation, ve.Error())
	case errors.Is(err, storage.ErrInvalidMedia):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRecipientNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrTrusteeNotFound),
		errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, baseMessage(err))

	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrDuplicateRecipient),
		errors.Is(err, services.ErrAlreadyDelivered):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, services.ErrQuotaExceeded):
		fail(c, http.StatusPaymentRequired, ErrCodeQuotaExceeded, err.Error())
	case errors.Is(err, services.ErrPlanRequired):
		fail(c, http.StatusForbidden, ErrCodePlanRequired, err.Error())

	case errors.Is(err, services.ErrNotConfigured), errors.Is(err, storage.ErrNotConfigured):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("dependency not configured")
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "this feature is not available right now")
	case errors.Is(err, services.ErrNoResponse), errors.Is(err, services.ErrGeneration):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("generation failed")
		fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, "could not generate a reply, please try again")

	case errors.Is(err, services.ErrSweepInProgress):
		fail(c, http.StatusConflict, ErrCodeSweepInProgress, err.Error())

	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// baseMessage keeps not-found messages to the sentinel text so wrapped
// context never reaches the client.
func baseMessage(err error) string {
	for _, s := range []error{
		services.ErrUserNotFound, services.ErrRecipientNotFound, services.ErrMessageNotFound,
		services.ErrTrusteeNotFound, services.ErrConversationNotFound,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "not found"
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page and page_size; page_size is bounded to [1, 100].
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.PageParams(c.Query("page"), c.Query("page_size"), 20, 100)
}

// notModified sets a weak ETag derived from the collection's size and last
// change plus the requested window, and answers 304 when the client already
// holds it.
func notModified(c *gin.Context, kind, userID string, page, pageSize int, count int64, maxTS *time.Time) bool {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d:%d:%d"`, kind, userID, count, ts, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
