package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"houseprice/pkg/data"
	"houseprice/pkg/dataprep"
	"houseprice/pkg/schema"
	"houseprice/pkg/train"
)

// Error codes
const (
	ErrInternalCode         = "INTERNAL_ERROR"
	ErrBadRequestCode       = "BAD_REQUEST"
	ErrValidationCode       = "VALIDATION_FAILED"
	ErrMissingColumnCode    = "MISSING_COLUMN"
	ErrInsufficientDataCode = "INSUFFICIENT_DATA"
	ErrPayloadTooLargeCode  = "PAYLOAD_TOO_LARGE"
)

// Error is the body of every failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RespondWithError aborts c with a {"error": {...}} body.
func RespondWithError(c *gin.Context, status int, code, message string, err error) {
	body := Error{Code: code, Message: message}
	if err != nil {
		body.Details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// respondWithDomainError maps core errors onto HTTP statuses.
func respondWithDomainError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	var missing *dataprep.MissingColumnError
	switch {
	case errors.As(err, &maxBytes):
		RespondWithError(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLargeCode, "request body too large", err)
	case errors.Is(err, schema.ErrSchemaViolation):
		RespondWithError(c, http.StatusUnprocessableEntity, ErrValidationCode, "invalid prediction request", err)
	case errors.As(err, &missing):
		RespondWithError(c, http.StatusUnprocessableEntity, ErrMissingColumnCode, "training data is missing a required column", err)
	case errors.Is(err, train.ErrInsufficientData):
		RespondWithError(c, http.StatusUnprocessableEntity, ErrInsufficientDataCode, "not enough usable rows to train", err)
	case errors.Is(err, data.ErrEmptyTable):
		RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, "uploaded file is empty", err)
	case errors.Is(err, data.ErrMalformed):
		RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, "uploaded file is not valid CSV", err)
	default:
		RespondWithError(c, http.StatusInternalServerError, ErrInternalCode, "internal server error", err)
	}
}
