package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"taskmaster/backend/logging"
	"taskmaster/backend/services"
)

type errorResponse struct {
	Message string                `json:"message"`
	Errors  []services.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeServiceError maps service errors to the response envelope. Unexpected
// errors become opaque 500s unless the app runs in development mode.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: verr.Error(), Errors: verr.Fields})
		return
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrDescriptionTooLong),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrStatusRequired),
		errors.Is(err, services.ErrNegativeEstimate),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrResetTokenInvalid):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		logging.Logger.Errorf("Event ID: UNEXPECTED_ERROR, Description: %v", err)
		message := "Internal server error"
		if os.Getenv("APP_ENV") == "development" {
			message = err.Error()
		}
		writeMessage(w, http.StatusInternalServerError, message)
	}
}
