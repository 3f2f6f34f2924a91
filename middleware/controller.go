package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	farmAuth "github.com/MrEthical07/farmAuth"
	"github.com/MrEthical07/farmAuth/jwt"
	"github.com/sirupsen/logrus"
)

// SessionService is the part of *farmAuth.Engine the controller needs.
type SessionService interface {
	DecodeSession(token string) (farmAuth.SessionClaims, error)
	RefreshSession(claims farmAuth.SessionClaims) (*farmAuth.SessionResult, error)
	ClearSessionCookie() *http.Cookie
	CookieName() string
}

// Options configures a Controller.
type Options struct {
	// Routes defaults to DefaultRoutes.
	Routes      *RouteTable
	LoginPath   string
	LandingPath string
	// RejectPrefix marks protected paths answered with 401/403 instead of a
	// redirect. Empty disables it.
	RejectPrefix      string
	SlidingExpiration bool
	Production        bool
	// TrustForwardedFor makes Guard take the client IP from X-Forwarded-For.
	TrustForwardedFor bool
	Logger            logrus.FieldLogger
	Metrics           *farmAuth.Metrics
}

// Action is the outcome of a decision.
type Action int

const (
	ActionAllow Action = iota
	ActionRedirect
	ActionReject
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionRedirect:
		return "redirect"
	case ActionReject:
		return "reject"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Request is the controller's view of an incoming request.
type Request struct {
	Path         string
	SessionToken string
	// HasSession reports whether the session cookie was present at all, even
	// if empty.
	HasSession bool
}

// Decision is what the controller wants done with a request. Headers and
// Cookies are set on the response whatever the Action.
type Decision struct {
	Action Action
	// Status is 307 for redirects and 401 or 403 for rejections.
	Status   int
	Location string
	Class    RouteClass
	// Identity is set when the request carried a valid session. After a
	// sliding refresh it holds the refreshed claims.
	Identity *farmAuth.SessionClaims
	Headers  http.Header
	Cookies  []*http.Cookie
}

// Controller evaluates the access rules for one request at a time. It holds no
// mutable state and is safe for concurrent use.
type Controller struct {
	sessions   SessionService
	opts       Options
	logger     logrus.FieldLogger
	cookieName string
}

// NewController returns a Controller using sessions to decode cookies.
func NewController(sessions SessionService, opts Options) (*Controller, error) {
	if sessions == nil {
		return nil, errors.New("middleware: session service is required")
	}
	if opts.Routes == nil {
		opts.Routes = DefaultRoutes()
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/auth/login"
	}
	if opts.LandingPath == "" {
		opts.LandingPath = "/dashboard"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cookieName := sessions.CookieName()
	if cookieName == "" {
		cookieName = "session"
	}
	return &Controller{sessions: sessions, opts: opts, logger: logger, cookieName: cookieName}, nil
}

// ControllerFromEngine builds a Controller from the engine's configuration. The
// route table comes from Routes.File when set.
func ControllerFromEngine(engine *farmAuth.Engine) (*Controller, error) {
	if engine == nil {
		return nil, farmAuth.ErrEngineNotReady
	}
	cfg := engine.Config()

	routes := DefaultRoutes()
	if cfg.Routes.File != "" {
		loaded, err := LoadRouteTable(cfg.Routes.File)
		if err != nil {
			return nil, err
		}
		routes = loaded
	}

	return NewController(engine, Options{
		Routes:            routes,
		LoginPath:         cfg.Routes.LoginPath,
		LandingPath:       cfg.Routes.LandingPath,
		RejectPrefix:      cfg.Routes.RejectPrefix,
		SlidingExpiration: cfg.Session.SlidingExpiration,
		Production:        cfg.Security.ProductionMode,
		TrustForwardedFor: cfg.Security.TrustForwardedFor,
		Logger:            engine.Logger(),
		Metrics:           engine.Metrics(),
	})
}

// Decide classifies req.Path, decodes the session and applies the access rules.
// It never panics; an internal failure is logged and the request is treated as
// unauthenticated.
func (c *Controller) Decide(ctx context.Context, req Request) (d Decision) {
	if c.opts.Metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.opts.Metrics.Observe(farmAuth.MetricDecideLatency, time.Since(start)) }()
	}

	class := RouteClass("")
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logrus.Fields{
				"path":  req.Path,
				"class": string(class),
				"panic": fmt.Sprint(r),
			}).Error("access controller recovered from panic")
			c.opts.Metrics.Inc(farmAuth.MetricAccessRecovered)
			d = c.recovered(req, class)
			c.count(d)
		}
	}()

	class = c.opts.Routes.Classify(req.Path)

	var identity *farmAuth.SessionClaims
	clearCookie := false
	if req.HasSession {
		claims, err := c.sessions.DecodeSession(req.SessionToken)
		if err != nil {
			c.logDecodeFailure(req.Path, err)
			clearCookie = true
		} else {
			identity = &claims
		}
	}

	d = c.decide(req.Path, class, identity)
	d.Headers = SecurityHeaders(c.opts.Production)
	if clearCookie {
		d.Cookies = append(d.Cookies, c.sessions.ClearSessionCookie())
	}

	if d.Action == ActionAllow && identity != nil && c.opts.SlidingExpiration {
		refreshed, err := c.sessions.RefreshSession(*identity)
		if err != nil {
			c.logger.WithError(err).WithField("path", req.Path).Warn("session refresh failed")
		} else {
			d.Identity = &refreshed.Claims
			d.Cookies = append(d.Cookies, refreshed.Cookie)
		}
	}

	c.count(d)
	return d
}

func (c *Controller) decide(path string, class RouteClass, identity *farmAuth.SessionClaims) Decision {
	authenticated := identity != nil
	d := Decision{Action: ActionAllow, Class: class, Identity: identity}

	switch class {
	case ClassAuthOnly:
		if authenticated {
			return c.redirect(d, c.opts.LandingPath)
		}
		return d
	case ClassProtected, ClassAdminOnly:
		if !authenticated {
			if c.rejects(path) {
				return reject(d, http.StatusUnauthorized)
			}
			return c.redirect(d, c.loginURL(path))
		}
		if class == ClassAdminOnly && identity.Role != farmAuth.RoleAdmin {
			if c.rejects(path) {
				return reject(d, http.StatusForbidden)
			}
			return c.redirect(d, c.opts.LandingPath)
		}
		return d
	default:
		return d
	}
}

// recovered is the decision after a panic. The request is unauthenticated and
// any session cookie is cleared. A failed classification falls back to the
// built-in table so public and auth-only pages still load. If that fails too
// only the login page is let through, so a broken request never loops on its
// own redirect.
func (c *Controller) recovered(req Request, class RouteClass) Decision {
	var d Decision
	if class == "" {
		class = fallbackClass(req.Path)
	}
	if class != "" {
		d = c.decideSafely(req.Path, class)
	} else {
		d = Decision{Action: ActionAllow}
		switch {
		case req.Path == c.opts.LoginPath:
		case c.rejects(req.Path):
			d = reject(d, http.StatusUnauthorized)
		default:
			d = c.redirect(d, c.loginURL(req.Path))
		}
	}
	d.Headers = SecurityHeaders(c.opts.Production)
	if req.HasSession {
		d.Cookies = []*http.Cookie{clearCookie(c.cookieName, c.opts.Production)}
	}
	return d
}

func fallbackClass(path string) (class RouteClass) {
	defer func() {
		if recover() != nil {
			class = ""
		}
	}()
	return DefaultRoutes().Classify(path)
}

// decideSafely applies the unauthenticated rules without touching the session
// service.
func (c *Controller) decideSafely(path string, class RouteClass) (d Decision) {
	defer func() {
		if recover() != nil {
			d = Decision{Action: ActionAllow}
			if path != c.opts.LoginPath {
				d = c.redirect(d, c.opts.LoginPath)
			}
		}
	}()
	return c.decide(path, class, nil)
}

func (c *Controller) rejects(path string) bool {
	return c.opts.RejectPrefix != "" && strings.HasPrefix(path, c.opts.RejectPrefix)
}

func (c *Controller) redirect(d Decision, location string) Decision {
	d.Action = ActionRedirect
	d.Status = http.StatusTemporaryRedirect
	d.Location = location
	return d
}

func reject(d Decision, status int) Decision {
	d.Action = ActionReject
	d.Status = status
	return d
}

// loginURL is the login path with the original destination in "from". Slashes
// stay literal.
func (c *Controller) loginURL(path string) string {
	from := strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
	return c.opts.LoginPath + "?from=" + from
}

func (c *Controller) logDecodeFailure(path string, err error) {
	entry := c.logger.WithField("path", path)
	switch {
	case errors.Is(err, farmAuth.ErrNoSession):
		entry.Debug("empty session cookie")
	case errors.Is(err, farmAuth.ErrInvalidSession):
		entry.WithField("reason", string(jwt.ReasonOf(err))).Info("invalid session")
	default:
		entry.WithError(err).Warn("unexpected session decode error")
	}
}

func (c *Controller) count(d Decision) {
	m := c.opts.Metrics
	switch d.Action {
	case ActionAllow:
		m.Inc(farmAuth.MetricAccessAllowed)
	case ActionReject:
		m.Inc(farmAuth.MetricAccessRejected)
	case ActionRedirect:
		if d.Location == c.opts.LandingPath {
			m.Inc(farmAuth.MetricAccessRedirectLanding)
		} else {
			m.Inc(farmAuth.MetricAccessRedirectLogin)
		}
	}
}

func clearCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName is the name of the session cookie the controller reads.
func (c *Controller) CookieName() string {
	return c.cookieName
}
