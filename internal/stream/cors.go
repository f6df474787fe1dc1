package stream

import "net/http"

const (
	allowMethods  = "GET, HEAD, OPTIONS"
	allowHeaders  = "Range, Content-Type, Authorization"
	exposeHeaders = "Content-Range, Content-Length, Accept-Ranges"
)

// SetCORS writes the cross-origin headers every streaming response carries.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Expose-Headers", exposeHeaders)
}

// Preflight answers an OPTIONS request for a streaming route.
func Preflight(w http.ResponseWriter) {
	SetCORS(w.Header())
	w.Header().Set("Access-Control-Max-Age", "3600")
	w.WriteHeader(http.StatusOK)
}
