package httpkit

import (
	"net/http"

	"tubelytics/internal/platform/net/middleware"
)

// CommonStack is the per scope stack for JSON APIs. Never mount it on a
// websocket route: compression and timeouts break the upgrade
func CommonStack() []func(http.Handler) http.Handler {
	return middleware.APIDefaults()
}
