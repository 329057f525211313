package session

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard is the go-router glue around Guard: it evaluates the
// predicates before a navigation commits and keeps the side effects, the
// actual redirects, at the router boundary.
type RouteGuard struct {
	guard        *Guard
	cfg          GuardConfig
	chrome       *ChromeResolver
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteGuard wires a Guard into go-router middleware.
func NewRouteGuard(guard *Guard, cfg GuardConfig, opts ...RouteGuardOption) *RouteGuard {
	if cfg == nil {
		cfg = SimpleGuardConfig{}
	}

	g := &RouteGuard{
		guard:  guard,
		cfg:    cfg,
		chrome: NewChromeResolver(),
		Logger: defLogger{},
	}
	g.ErrorHandler = g.defaultErrHandler

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// RouteGuardOption customizes RouteGuard construction.
type RouteGuardOption func(*RouteGuard)

// WithRouteGuardChrome overrides the chrome resolver used per request.
func WithRouteGuardChrome(chrome *ChromeResolver) RouteGuardOption {
	return func(g *RouteGuard) {
		if chrome != nil {
			g.chrome = chrome
		}
	}
}

// WithRouteGuardLogger overrides the logger
func WithRouteGuardLogger(logger Logger) RouteGuardOption {
	return func(g *RouteGuard) {
		if logger != nil {
			g.Logger = logger
		}
	}
}

// Protected returns middleware that evaluates the guard for the given
// route metadata. On allow the session lands in Locals under the
// configured context key; on deny the user is redirected and the
// originally requested path is remembered in a short-lived cookie.
// Errors from the downstream handler are routed through ErrorHandler.
func (g *RouteGuard) Protected(meta RouteMeta) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			decision := g.guard.Evaluate(c.Context(), meta, c.Path())

			if !decision.Allowed {
				g.Logger.Info(
					"navigation denied reason=%s path=%s redirect=%s",
					decision.Reason,
					c.OriginalURL(),
					decision.RedirectTo,
				)
				g.SetReturnTo(c)
				return c.Redirect(decision.RedirectTo, redirectStatus(c))
			}

			if sess, err := g.guard.store.Current(c.Context()); err == nil && sess != nil {
				c.Locals(g.cfg.GetContextKey(), sess)
				c.SetContext(WithContext(c.Context(), sess))
			}

			if err := hf(c); err != nil {
				return g.ErrorHandler(c, err)
			}
			return nil
		}
	}
}

// Chrome returns middleware that stores the chrome visibility flag for
// the current path in Locals, so templates can decide whether the
// authenticated nav and sidebar render.
func (g *RouteGuard) Chrome() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Locals("show_chrome", g.chrome.Show(c.Path()))
			return hf(c)
		}
	}
}

// SetReturnTo remembers the rejected path so sign in can send the user
// back after authentication.
func (g *RouteGuard) SetReturnTo(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     g.cfg.GetReturnToParam(),
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetReturnTo reads and clears the remembered path, falling back to the
// default authenticated landing page.
func (g *RouteGuard) GetReturnTo(c router.Context) string {
	key := g.cfg.GetReturnToParam()
	r := c.Cookies(key)
	if r == "" {
		return g.cfg.GetDefaultLandingPath()
	}

	c.Cookie(&router.Cookie{
		Name:     key,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
	return r
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred")
	}

	g.Logger.Info(
		"guard error handler error=%s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		g.SetReturnTo(c)
		return c.Redirect(g.cfg.GetSignInPath(), redirectStatus(c))
	default:
		code := richErr.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return c.JSON(code, map[string]any{"error": richErr.Message})
	}
}

func redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
