package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	farmAuth "github.com/MrEthical07/farmAuth"
	"github.com/MrEthical07/farmAuth/middleware"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Authenticator is the part of *farmAuth.Engine the handlers call.
type Authenticator interface {
	Login(ctx context.Context, email, pass string) (*farmAuth.SessionResult, error)
	Register(ctx context.Context, req farmAuth.RegisterRequest) (*farmAuth.RegisterResult, error)
	Logout(ctx context.Context) *http.Cookie
}

// Options configures the handlers. Zero values take the defaults noted below.
type Options struct {
	// LandingPath receives successful form submissions. Default "/dashboard".
	LandingPath string
	// HomePath receives form sign-outs. Default "/".
	HomePath          string
	TrustForwardedFor bool
	Logger            logrus.FieldLogger
}

// Handlers groups the auth endpoints.
type Handlers struct {
	auth   Authenticator
	opts   Options
	logger logrus.FieldLogger
}

// New returns handlers bound to auth.
func New(auth Authenticator, opts Options) (*Handlers, error) {
	if auth == nil {
		return nil, errors.New("handlers: authenticator is required")
	}
	if opts.LandingPath == "" {
		opts.LandingPath = "/dashboard"
	}
	if opts.HomePath == "" {
		opts.HomePath = "/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handlers{auth: auth, opts: opts, logger: logger}, nil
}

// FromEngine builds handlers using the engine's configured landing path and
// logger.
func FromEngine(engine *farmAuth.Engine) (*Handlers, error) {
	if engine == nil {
		return nil, farmAuth.ErrEngineNotReady
	}
	cfg := engine.Config()
	return New(engine, Options{
		LandingPath:       cfg.Routes.LandingPath,
		TrustForwardedFor: cfg.Security.TrustForwardedFor,
		Logger:            engine.Logger(),
	})
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type sessionView struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Role     string `json:"role"`
}

/*
====================================
ENDPOINTS
====================================
*/

// Login handles POST /auth/login.
func (h *Handlers) Login() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		asJSON := isJSON(r)
		var body loginBody
		if err := decodeBody(w, r, asJSON, &body, func(get func(string) string) {
			body.Email = get("email")
			body.Password = get("password")
			body.From = get("from")
		}); err != nil {
			writeJSONOrText(w, asJSON, http.StatusBadRequest, map[string]any{"error": "malformed request body"})
			return
		}

		res, err := h.auth.Login(h.requestContext(r), body.Email, body.Password)
		if err != nil {
			h.writeError(w, asJSON, err)
			return
		}

		http.SetCookie(w, res.Cookie)
		if !asJSON {
			target := h.opts.LandingPath
			if isSafeRedirect(body.From) {
				target = body.From
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": viewSession(res.Claims)})
	})
}

// Register handles POST /auth/register.
func (h *Handlers) Register() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		asJSON := isJSON(r)
		var body registerBody
		if err := decodeBody(w, r, asJSON, &body, func(get func(string) string) {
			body.Email = get("email")
			body.Password = get("password")
			body.Name = get("name")
			body.Role = get("role")
			body.Phone = get("phone")
			body.Location = get("location")
		}); err != nil {
			writeJSONOrText(w, asJSON, http.StatusBadRequest, map[string]any{"error": "malformed request body"})
			return
		}

		res, err := h.auth.Register(h.requestContext(r), farmAuth.RegisterRequest{
			Email:    body.Email,
			Password: body.Password,
			Name:     body.Name,
			Role:     body.Role,
			Phone:    body.Phone,
			Location: body.Location,
		})
		if err != nil {
			h.writeError(w, asJSON, err)
			return
		}

		if res.Session != nil {
			http.SetCookie(w, res.Session.Cookie)
		}
		if !asJSON {
			http.Redirect(w, r, h.opts.LandingPath, http.StatusSeeOther)
			return
		}

		payload := map[string]any{"user": viewUser(res.User)}
		if res.Session != nil {
			payload["session"] = viewSession(res.Session.Claims)
		}
		writeJSON(w, http.StatusOK, payload)
	})
}

// Logout handles POST /auth/logout. It always succeeds.
func (h *Handlers) Logout() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		if c := h.auth.Logout(h.requestContext(r)); c != nil {
			http.SetCookie(w, c)
		}
		if !isJSON(r) {
			http.Redirect(w, r, h.opts.HomePath, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
}

/*
====================================
ERRORS
====================================
*/

func (h *Handlers) writeError(w http.ResponseWriter, asJSON bool, err error) {
	status, payload := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("status", status).Error("auth request failed")
	}
	writeJSONOrText(w, asJSON, status, payload)
}

func errorResponse(err error) (int, map[string]any) {
	var verr *farmAuth.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr.Fields}
	case errors.Is(err, farmAuth.ErrInvalidCredentials):
		return http.StatusUnauthorized, map[string]any{"error": "invalid credentials"}
	case errors.Is(err, farmAuth.ErrRateLimited):
		return http.StatusTooManyRequests, map[string]any{"error": "too many attempts, please try again later"}
	case errors.Is(err, farmAuth.ErrForbidden):
		return http.StatusForbidden, map[string]any{"error": "registration is not available"}
	case errors.Is(err, farmAuth.ErrConflict):
		return http.StatusConflict, map[string]any{"error": "an account with this email already exists"}
	case errors.Is(err, farmAuth.ErrAuthUnavailable):
		return http.StatusServiceUnavailable, map[string]any{"error": "authentication is temporarily unavailable"}
	default:
		return http.StatusInternalServerError, map[string]any{"error": "internal error"}
	}
}

/*
====================================
HELPERS
====================================
*/

func (h *Handlers) requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if farmAuth.ClientIPFromContext(ctx) != "" {
		return ctx
	}
	return farmAuth.WithClientIP(ctx, middleware.ClientIP(r, h.opts.TrustForwardedFor))
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return strings.Contains(r.Header.Get("Accept"), "application/json")
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}

func decodeBody(w http.ResponseWriter, r *http.Request, asJSON bool, dst any, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if asJSON && r.Header.Get("Content-Type") != "" {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.PostFormValue)
	return nil
}

// isSafeRedirect accepts only same-origin absolute paths. Control bytes are
// refused because browsers strip them before resolving the URL.
func isSafeRedirect(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < 0x20 || p[i] == 0x7f || p[i] == '\\' {
			return false
		}
	}
	if strings.HasPrefix(p, "//") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(u.Path, "//") {
		return false
	}
	return !strings.HasPrefix(p, "/auth/")
}

func viewSession(c farmAuth.SessionClaims) sessionView {
	return sessionView{
		SubjectID: c.SubjectID,
		Email:     c.Email,
		Role:      string(c.Role),
		ExpiresAt: c.ExpiresAt.Unix(),
	}
}

func viewUser(u farmAuth.UserRecord) userView {
	return userView{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		Location: u.Location,
		Role:     string(u.Role),
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodPost)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONOrText(w http.ResponseWriter, asJSON bool, status int, payload map[string]any) {
	if asJSON {
		writeJSON(w, status, payload)
		return
	}
	msg, _ := payload["error"].(string)
	http.Error(w, msg, status)
}
