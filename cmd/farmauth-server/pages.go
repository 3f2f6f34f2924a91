package main

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	farmAuth "github.com/MrEthical07/farmAuth"
	"github.com/MrEthical07/farmAuth/handlers"
	"github.com/MrEthical07/farmAuth/middleware"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Identity}}<p>Signed in as {{.Identity.Email}} ({{.Identity.Role}})</p>
<form method="post" action="/auth/logout"><button>Sign out</button></form>
{{else}}<p><a href="/auth/login">Sign in</a> or <a href="/auth/register">create an account</a></p>{{end}}
</body></html>
`))

var loginTemplate = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/auth/login">
<input type="hidden" name="from" value="{{.From}}">
<label>Email <input type="email" name="email" required></label>
<label>Password <input type="password" name="password" required></label>
<button>Sign in</button>
</form>
</body></html>
`))

var registerTemplate = template.Must(template.New("register").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Create account</title></head>
<body>
<h1>Create account</h1>
<form method="post" action="/auth/register">
<label>Name <input name="name" required></label>
<label>Email <input type="email" name="email" required></label>
<label>Password <input type="password" name="password" required></label>
<label>Role <select name="role"><option value="farmer">Farmer</option><option value="expert">Expert</option></select></label>
<label>Phone <input name="phone"></label>
<label>Location <input name="location"></label>
<button>Create account</button>
</form>
</body></html>
`))

type pageData struct {
	Title    string
	Identity *farmAuth.SessionClaims
}

func newMux(auth *handlers.Handlers, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST /auth/login", auth.Login())
	mux.Handle("POST /auth/register", auth.Register())
	mux.Handle("POST /auth/logout", auth.Logout())
	mux.HandleFunc("GET /auth/login", func(w http.ResponseWriter, r *http.Request) {
		render(w, loginTemplate, struct{ From string }{From: r.URL.Query().Get("from")})
	})
	mux.HandleFunc("GET /auth/register", func(w http.ResponseWriter, r *http.Request) {
		render(w, registerTemplate, nil)
	})

	mux.HandleFunc("GET /{$}", page("Farm advisory"))
	for _, p := range []struct{ pattern, title string }{
		{"GET /about", "About"},
		{"GET /features", "Features"},
		{"GET /contact", "Contact"},
		{"GET /dashboard", "Dashboard"},
		{"GET /profile", "Profile"},
		{"GET /chat/", "Advisory chat"},
		{"GET /sensors/", "Sensors"},
		{"GET /analytics/", "Analytics"},
		{"GET /farms/", "Farms"},
		{"GET /admin/", "Administration"},
	} {
		mux.HandleFunc(p.pattern, page(p.title))
	}

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"subject_id": id.SubjectID,
			"email":      id.Email,
			"role":       id.Role,
			"expires_at": id.ExpiresAt.UTC(),
		})
	})
	mux.Handle("GET /metrics", metrics)

	return mux
}

func page(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{Title: title}
		if id, ok := middleware.IdentityFromContext(r.Context()); ok {
			data.Identity = &id
		}
		render(w, pageTemplate, data)
	}
}

func render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
