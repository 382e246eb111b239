package middleware

import (
	"net/http"
	"strconv"
)

// MaxBodyMiddleware enforces a maximum request body size, read from env var
// MAX_BODY_BYTES. Default is 1 MiB, plenty for the tiny JSON bodies here.
func MaxBodyMiddleware(next http.Handler) http.Handler {
	max := int64(1 << 20)
	if s := getenv("MAX_BODY_BYTES", ""); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			max = v
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}
