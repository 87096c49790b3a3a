package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the listed origins ("*" for any) to call the API from a
// browser.
func CORS(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:         600,
	})
	return c.Handler
}
