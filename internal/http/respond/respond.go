package respond

import (
	"log"
	"net/http"

	"github.com/goccy/go-json"
)

// JSON writes payload as the raw response body. List and single-record
// routes reply with the entity itself, not an envelope.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("respond: encode payload failed: %v", err)
	}
}

// Message writes the `{"message": ...}` body used by confirmation and error
// responses.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}
