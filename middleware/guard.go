package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	farmAuth "github.com/MrEthical07/farmAuth"
)

type identityContextKey struct{}

// IdentityFromContext returns the session claims Guard attached to the request.
func IdentityFromContext(ctx context.Context) (farmAuth.SessionClaims, bool) {
	claims, ok := ctx.Value(identityContextKey{}).(farmAuth.SessionClaims)
	return claims, ok
}

// WithIdentity attaches claims to ctx the way Guard does. Handlers under test
// use it to simulate an authenticated request.
func WithIdentity(ctx context.Context, claims farmAuth.SessionClaims) context.Context {
	return context.WithValue(ctx, identityContextKey{}, claims)
}

// Guard runs the controller for every request and applies its decision:
// redirects use 307, rejections answer a small JSON body and allowed requests
// reach next with the identity and client IP on the context.
func Guard(c *Controller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := Request{Path: r.URL.Path}
			if cookie, err := r.Cookie(c.CookieName()); err == nil {
				req.HasSession = true
				req.SessionToken = cookie.Value
			}

			d := c.Decide(r.Context(), req)

			applyHeaders(w.Header(), d.Headers)
			for _, cookie := range d.Cookies {
				http.SetCookie(w, cookie)
			}

			switch d.Action {
			case ActionRedirect:
				http.Redirect(w, r, d.Location, d.Status)
			case ActionReject:
				writeReject(w, d.Status)
			default:
				ctx := farmAuth.WithClientIP(r.Context(), ClientIP(r, c.opts.TrustForwardedFor))
				if d.Identity != nil {
					ctx = WithIdentity(ctx, *d.Identity)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func writeReject(w http.ResponseWriter, status int) {
	msg := "unauthorized"
	if status == http.StatusForbidden {
		msg = "forbidden"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ClientIP returns the caller's address. With trustForwarded the first
// X-Forwarded-For entry wins; otherwise the host part of RemoteAddr is used.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
