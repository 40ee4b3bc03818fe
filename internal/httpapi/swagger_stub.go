//go:build !swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// swaggerBuilt reports whether /docs is served.
const swaggerBuilt = false

// MountSwagger is a no-op by default. Build with -tags=swagger to enable.
func MountSwagger(r chi.Router, version string) {}
