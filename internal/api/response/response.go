package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	resp := SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	resp := ErrorResponse{Error: detail}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Fail writes an error response with the status matching the error code.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

var statusByCode = map[string]int{
	core.ErrInvalidRequest.Code:   http.StatusBadRequest,
	core.ErrInvalidProfile.Code:   http.StatusBadRequest,
	core.ErrInvalidHolding.Code:   http.StatusBadRequest,
	core.ErrInvalidRate.Code:      http.StatusBadRequest,
	core.ErrInvalidCurrency.Code:  http.StatusBadRequest,
	core.ErrUnauthorized.Code:     http.StatusUnauthorized,
	core.ErrProfileNotFound.Code:  http.StatusNotFound,
	core.ErrHoldingNotFound.Code:  http.StatusNotFound,
	core.ErrNotFound.Code:         http.StatusNotFound,
	core.ErrLastProfile.Code:      http.StatusConflict,
	core.ErrNoPrices.Code:         http.StatusUnprocessableEntity,
	core.ErrLLMContentFilter.Code: http.StatusUnprocessableEntity,
	core.ErrQuoteFailed.Code:      http.StatusBadGateway,
	core.ErrFXFailed.Code:         http.StatusBadGateway,
	core.ErrLLMFailed.Code:        http.StatusBadGateway,
	core.ErrLLMTimeout.Code:       http.StatusGatewayTimeout,
	core.ErrConfigMissing.Code:    http.StatusServiceUnavailable,
}

// StatusFor maps an error to its HTTP status. Errors without a known code
// are internal errors.
func StatusFor(err error) int {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if status, ok := statusByCode[coreErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}
