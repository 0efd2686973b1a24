package common

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithAppError maps err to its HTTP status. Messages of 5xx errors are
// logged and replaced so that internal details never leave the server.
func RespondWithAppError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	message := err.Error()
	switch code {
	case http.StatusInternalServerError:
		log.WithError(err).Error("request failed")
		message = ErrInternalServer.Error()
	case http.StatusServiceUnavailable:
		log.WithError(err).Warn("dependency unavailable")
		message = "judge service unavailable, please retry"
	}
	RespondWithError(w, code, message)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// DecodeJSON reads the request body into dst and validates its struct tags.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return Errorf("%w: invalid request payload: %v", ErrBadRequest, err)
	}
	return ValidateInput(dst)
}
