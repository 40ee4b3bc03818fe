//go:build swagger

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// swaggerBuilt reports whether /docs is served.
const swaggerBuilt = true

// MountSwagger serves the Swagger UI under /docs, documenting version.
func MountSwagger(r chi.Router, version string) {
	if version != "" {
		SwaggerInfo.Version = version
	}
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}
