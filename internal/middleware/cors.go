package middleware

import (
	"net/http"
)

// CORS header values. The method and header sets are fixed; the origin is
// echoed back, never a wildcard.
const (
	corsAllowMethods = "GET, OPTIONS, PUT, POST"
	corsAllowHeaders = "origin, authorization, accept, content-type"
)

// CORS implements a same-origin-by-default, allow-list cross-origin policy.
//
// If the request's Origin header exactly matches an entry in allowedOrigins
// (case-sensitive), the CORS headers are set on the response. Otherwise the
// response is unchanged. The headers are set before dispatch, so they apply
// uniformly to success and error responses. The allow-list is snapshotted at
// construction; an empty list means no request ever receives CORS headers.
func CORS(allowedOrigins []string) func(next http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := origins[origin]; ok && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			}
			next.ServeHTTP(w, r)
		})
	}
}
