package health

import (
	"encoding/json"
	"net/http"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Handler reports liveness together with the running build version.
func Handler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{Status: "healthy", Version: version})
	}
}
