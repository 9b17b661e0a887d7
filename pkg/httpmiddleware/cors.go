package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSConfig configures the CORS middleware behaviour.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to make cross-origin requests. An
	// empty list means all origins.
	AllowOrigins []string
	// AllowMethods defaults to the methods the rewards API serves.
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials with a wildcard origin echoes the request origin.
	AllowCredentials bool
	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Preflight requests are answered with 204.
func CORS(cfg CORSConfig) Middleware {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   methods,
		AllowedHeaders:   cfg.AllowHeaders,
		ExposedHeaders:   cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
