package health

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Handle reports liveness for deployment platforms.
func Handle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"status":    "ok",
			"service":   "portfolio-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
