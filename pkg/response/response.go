package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"roulette-bot/pkg/apierror"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta describes a bounded listing.
type Meta struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{Success: true, Data: data})
}

// JSONWithMeta sends a JSON response with listing metadata.
func JSONWithMeta(w http.ResponseWriter, statusCode int, data interface{}, limit, count int) {
	write(w, statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Limit: limit, Count: count},
	})
}

func write(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// Error sends an error response. Anything that is not an *apierror.Error
// becomes a 500.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}
	apierror.InternalError("an unexpected error occurred").Write(w)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
