package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/healx/internal/auth"
	"github.com/smallbiznis/healx/internal/authorization"
	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	journaldomain "github.com/smallbiznis/healx/internal/journal/domain"
	mediadomain "github.com/smallbiznis/healx/internal/media/domain"
	observationdomain "github.com/smallbiznis/healx/internal/observation/domain"
	sourcedomain "github.com/smallbiznis/healx/internal/source/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusConflict && c.Writer.Header().Get("Retry-After") == "" {
			c.Header("Retry-After", "1")
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		field := validationErrorField(code)
		var recErr *observationdomain.RecordError
		if errors.As(err, &recErr) {
			field = recordField(recErr.Index, field)
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, sourcedomain.ErrSourceConflict),
		errors.Is(err, observationdomain.ErrIdempotencyConflict),
		errors.Is(err, observationdomain.ErrBatchConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict, retry the request",
		}
	case errors.Is(err, observationdomain.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "idempotency_key_reused",
			Message: "idempotency key was already used with a different request",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, auth.ErrAuthNotConfigured),
		errors.Is(err, catalogdomain.ErrCatalogUnavailable),
		errors.Is(err, mediadomain.ErrUploadURLFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, observationdomain.ErrBatchInsertFailed):
		return http.StatusInternalServerError, errorPayload{
			Type:    "batch_insert_failed",
			Message: "batch could not be stored",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds error_type and error_code of the request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server", code
	default:
		return "client", code
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isObservationValidationError(err),
		isJournalValidationError(err),
		isMediaValidationError(err):
		return true
	default:
		return false
	}
}

func isObservationValidationError(err error) bool {
	switch {
	case errors.Is(err, observationdomain.ErrInvalidUser),
		errors.Is(err, observationdomain.ErrInvalidObservationValue),
		errors.Is(err, observationdomain.ErrInvalidRecordedAt),
		errors.Is(err, observationdomain.ErrInvalidRawMetadata),
		errors.Is(err, observationdomain.ErrInvalidIdempotencyKey),
		errors.Is(err, observationdomain.ErrBatchTooLarge),
		errors.Is(err, sourcedomain.ErrInvalidSourceName):
		return true
	default:
		return false
	}
}

func isJournalValidationError(err error) bool {
	switch {
	case errors.Is(err, journaldomain.ErrInvalidUser),
		errors.Is(err, journaldomain.ErrInvalidEntryDate),
		errors.Is(err, journaldomain.ErrInvalidMoodScore),
		errors.Is(err, journaldomain.ErrInvalidTags):
		return true
	default:
		return false
	}
}

func isMediaValidationError(err error) bool {
	switch {
	case errors.Is(err, mediadomain.ErrInvalidUser),
		errors.Is(err, mediadomain.ErrInvalidFilename),
		errors.Is(err, mediadomain.ErrInvalidFileType),
		errors.Is(err, mediadomain.ErrInvalidContentType):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	}
	var recErr *observationdomain.RecordError
	if errors.As(err, &recErr) && recErr.Err != nil {
		return recErr.Err.Error()
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if code == "batch_too_large" {
		return "data"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func recordField(index int, field string) string {
	prefix := "data[" + strconv.Itoa(index) + "]"
	if field == "" {
		return prefix
	}
	return prefix + "." + field
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_observation_value":
		return "exactly one finite value_numeric or value_text is required"
	case "invalid_recorded_at":
		return "recorded_at is required"
	case "invalid_raw_metadata":
		return "raw_metadata must be a JSON object"
	case "invalid_source_name":
		return "source_name is required"
	case "batch_too_large":
		return "too many records in one batch"
	default:
		return "invalid value"
	}
}
