package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}
	write(w, statusCode, response)
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Message sends a successful response that carries only a message
func Message(w http.ResponseWriter, message string) {
	write(w, http.StatusOK, Response{Success: true, Message: message, Timestamp: time.Now()})
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	response := ErrorResponse{
		Success:   false,
		Message:   message,
		Timestamp: time.Now(),
	}

	if err != nil {
		response.Error = err.Error()
		response.Code = customError.CodeOf(err)
	}
	write(w, statusCode, response)
}

// FromError sends err with the HTTP status its business code maps to.
// Errors without a code are reported as 500 without their details.
func FromError(w http.ResponseWriter, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		zap.L().Error("unhandled error", zap.Error(err))
		Error(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	status := StatusOf(be.Code)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("code", be.Code), zap.Error(err))
		write(w, status, ErrorResponse{
			Success:   false,
			Code:      be.Code,
			Error:     be.Message,
			Message:   be.Message,
			Timestamp: time.Now(),
		})
		return
	}
	Error(w, status, be.Message, be)
}

// StatusOf maps a business error code to an HTTP status.
func StatusOf(code string) int {
	switch code {
	case customError.ErrCodeLoanNotFound, customError.ErrCodePeriodNotFound:
		return http.StatusNotFound
	case customError.ErrCodeInvalidParameters, customError.ErrCodeInvalidAmount,
		customError.ErrCodeValidation, customError.ErrCodeConsistencyViolation:
		return http.StatusBadRequest
	case customError.ErrCodeAlreadySettled, customError.ErrCodeScheduleExistsWithPayments,
		customError.ErrCodeConcurrentModification, customError.ErrCodeLoanHasPayments:
		return http.StatusConflict
	case customError.ErrCodeLockNotAcquired:
		return http.StatusLocked
	case customError.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message, nil)
}

func write(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}
