package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows any origin to read the index page. Only safe methods are
// advertised since nothing in the API accepts a request body.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"X-Request-ID",
			"traceparent",
		},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}
