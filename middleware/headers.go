package middleware

import "net/http"

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

const hstsValue = "max-age=31536000; includeSubDomains"

// SecurityHeaders returns the headers attached to every response.
// Strict-Transport-Security is only sent in production.
func SecurityHeaders(production bool) http.Header {
	h := make(http.Header, len(securityHeaders)+1)
	for _, kv := range securityHeaders {
		h.Set(kv[0], kv[1])
	}
	if production {
		h.Set("Strict-Transport-Security", hstsValue)
	}
	return h
}

func applyHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst.Del(k)
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
