package session

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// FiberGuard adapts Guard for apps mounted directly on fiber v2 instead
// of go-router.
type FiberGuard struct {
	guard        *Guard
	cfg          GuardConfig
	chrome       *ChromeResolver
	Logger       Logger
	ErrorHandler func(c *fiber.Ctx, err error) error
}

// NewFiberGuard wires a Guard into fiber middleware.
func NewFiberGuard(guard *Guard, cfg GuardConfig) *FiberGuard {
	if cfg == nil {
		cfg = SimpleGuardConfig{}
	}

	g := &FiberGuard{
		guard:  guard,
		cfg:    cfg,
		chrome: NewChromeResolver(),
		Logger: defLogger{},
	}
	g.ErrorHandler = g.defaultErrHandler

	return g
}

// WithChrome overrides the chrome resolver.
func (g *FiberGuard) WithChrome(chrome *ChromeResolver) *FiberGuard {
	if chrome != nil {
		g.chrome = chrome
	}
	return g
}

// Protected returns a handler that evaluates the guard for the given
// route metadata before the request proceeds.
func (g *FiberGuard) Protected(meta RouteMeta) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := g.guard.Evaluate(c.UserContext(), meta, c.Path())

		if !decision.Allowed {
			g.Logger.Info(
				"navigation denied reason=%s path=%s redirect=%s",
				decision.Reason,
				c.OriginalURL(),
				decision.RedirectTo,
			)
			g.setReturnTo(c)
			return c.Redirect(decision.RedirectTo, fiberRedirectStatus(c))
		}

		if sess, err := g.guard.store.Current(c.UserContext()); err == nil && sess != nil {
			c.Locals(g.cfg.GetContextKey(), sess)
			c.SetUserContext(WithContext(c.UserContext(), sess))
		}

		if err := c.Next(); err != nil {
			return g.ErrorHandler(c, err)
		}
		return nil
	}
}

// Chrome returns a handler that stores the chrome visibility flag for
// the current path in Locals.
func (g *FiberGuard) Chrome() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("show_chrome", g.chrome.Show(c.Path()))
		return c.Next()
	}
}

// SessionFromLocals reads the session a Protected handler stored for the
// request, if any.
func SessionFromLocals(c *fiber.Ctx, key string) (*Session, bool) {
	if key == "" {
		key = "session"
	}
	sess, ok := c.Locals(key).(*Session)
	return sess, ok && sess != nil
}

func (g *FiberGuard) setReturnTo(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     g.cfg.GetReturnToParam(),
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *FiberGuard) defaultErrHandler(c *fiber.Ctx, err error) error {
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
		g.setReturnTo(c)
		return c.Redirect(g.cfg.GetSignInPath(), fiberRedirectStatus(c))
	default:
		code := richErr.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return c.Status(code).JSON(fiber.Map{"error": richErr.Message})
	}
}

func fiberRedirectStatus(c *fiber.Ctx) int {
	if c.Method() == fiber.MethodGet {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
