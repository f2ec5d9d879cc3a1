package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/service"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	_ = WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WriteOK writes a 200 OK response with the given data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteAccepted writes a 202 Accepted response with the given data
func WriteAccepted(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusAccepted, data)
}

// WriteValidationError writes a 400 Bad Request response with VALIDATION_ERROR code
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, string(service.KindValidation), message)
}

// WriteInternalError writes a 500 without exposing internal details
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, string(service.KindInternal), "An internal error occurred")
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindAlreadySent, service.KindDispatchInProgress:
		return http.StatusConflict
	case service.KindNoRecipients, service.KindInvalidSegment:
		return http.StatusUnprocessableEntity
	case service.KindTransportNotConfigured:
		return http.StatusServiceUnavailable
	case service.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps service layer errors to appropriate HTTP responses
func HandleServiceError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	if errors.Is(err, service.ErrQueueUnavailable) {
		WriteError(w, http.StatusServiceUnavailable, "QueueUnavailable", "dispatch queue is not available")
		return
	}

	kind := service.ErrorKind(err)
	if kind == service.KindInternal {
		logger.WithError(err).Error("unhandled service error")
		WriteInternalError(w)
		return
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		WriteValidationError(w, validation.Message)
		return
	}

	WriteError(w, StatusFor(kind), string(kind), err.Error())
}

// WriteDispatchFailure writes the {success:false, error} dispatch result
func WriteDispatchFailure(w http.ResponseWriter, logger logrus.FieldLogger, campaignID string, err error) {
	result := service.FailureResult(campaignID, err)
	if result.Error == string(service.KindInternal) {
		logger.WithError(err).WithField("campaign_id", campaignID).Error("dispatch failed")
	}
	_ = WriteJSON(w, StatusFor(service.Kind(result.Error)), result)
}
