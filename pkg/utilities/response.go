package utilities

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/pkg/apierr"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func NewAPIResponse(status int, data any, message string) APIResponse {
	return APIResponse{StatusCode: status, Data: data, Message: message, Success: status < 400}
}

// WriteJSON writes an APIResponse with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewAPIResponse(status, data, message))
}

// WriteError converts err into an APIResponse. Causes of 5xx errors are logged
// and never sent to the client.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	e := apierr.From(err)
	if logger != nil {
		if e.Status >= http.StatusInternalServerError {
			logger.Errorw("request failed", "status", e.Status, "kind", e.Kind, "err", err)
		} else {
			logger.Debugw("request rejected", "status", e.Status, "kind", e.Kind, "err", err)
		}
	}
	WriteJSON(w, e.Status, nil, e.Message)
}
