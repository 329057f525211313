package session

import (
	"context"
	"net/url"
	"strings"
)

// Reason codes attached to guard decisions.
const (
	ReasonAllowed         = "ALLOWED"
	ReasonUnauthenticated = "UNAUTHENTICATED"
	ReasonUnverified      = "EMAIL_UNVERIFIED"
	ReasonRoleForbidden   = "ROLE_FORBIDDEN"
)

// RouteMeta is the authorization metadata a route declares.
type RouteMeta struct {
	RequiresAuth bool
	AllowedRoles []string
}

// Decision is the outcome of a guard evaluation. When Allowed is false,
// RedirectTo always names where the router should send the user instead:
// a denial is never a blank screen.
type Decision struct {
	Allowed    bool
	RedirectTo string
	Reason     string
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func deny(redirectTo, reason string) Decision {
	return Decision{RedirectTo: redirectTo, Reason: reason}
}

// Guard evaluates navigation attempts against the Session Store. Both
// checks are pure functions of store state plus route metadata; the only
// side effect they may trigger is the Store's lazy fetch. Redirects are
// executed at the router boundary, never in here.
type Guard struct {
	store  *Store
	cfg    GuardConfig
	logger Logger
}

// GuardOption customizes Guard construction.
type GuardOption func(*Guard)

// WithGuardLogger overrides the logger
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard returns a Guard reading from the given store.
func NewGuard(store *Store, cfg GuardConfig, opts ...GuardOption) *Guard {
	if cfg == nil {
		cfg = SimpleGuardConfig{}
	}

	g := &Guard{
		store:  store,
		cfg:    cfg,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Authenticated gatekeeps routes that require a signed-in, verified user:
//
//  1. no current session: deny, redirect to sign in with the requested
//     path carried in the return-to parameter
//  2. session present but unverified: deny, redirect to the
//     verification-pending view
//  3. otherwise allow
//
// A provider failure during the lazy fetch counts as "no session".
func (g *Guard) Authenticated(ctx context.Context, requestedPath string) Decision {
	sess := g.currentOrNil(ctx)

	if sess == nil {
		return deny(g.signInRedirect(requestedPath), ReasonUnauthenticated)
	}

	if !sess.Verified() {
		// the verification view itself stays reachable, otherwise the
		// redirect would loop
		if normalizePath(requestedPath) == normalizePath(g.cfg.GetVerificationPath()) {
			return allow()
		}
		return deny(g.cfg.GetVerificationPath(), ReasonUnverified)
	}

	return allow()
}

// Authorized gatekeeps routes that declare a role restriction:
//
//  1. no current session: deny, redirect to sign in
//  2. no restriction declared: allow
//  3. role claim intersects the declared set (case-insensitive): allow
//  4. otherwise deny, redirect to the default authenticated landing page
func (g *Guard) Authorized(ctx context.Context, meta RouteMeta) Decision {
	sess := g.currentOrNil(ctx)

	if sess == nil {
		return deny(g.cfg.GetSignInPath(), ReasonUnauthenticated)
	}

	if len(meta.AllowedRoles) == 0 {
		return allow()
	}

	if RoleAllowed(sess.Role, meta.AllowedRoles) {
		return allow()
	}

	return deny(g.cfg.GetDefaultLandingPath(), ReasonRoleForbidden)
}

// Evaluate runs the authentication check (when the route requires it) and
// then the role check, returning the first denial.
func (g *Guard) Evaluate(ctx context.Context, meta RouteMeta, requestedPath string) Decision {
	if meta.RequiresAuth {
		if decision := g.Authenticated(ctx, requestedPath); !decision.Allowed {
			return decision
		}
	}

	if len(meta.AllowedRoles) > 0 {
		return g.Authorized(ctx, meta)
	}

	return allow()
}

// currentOrNil folds provider errors into an absent session: guards fail
// closed and never propagate an error into the router.
func (g *Guard) currentOrNil(ctx context.Context) *Session {
	sess, err := g.store.Current(ctx)
	if err != nil {
		g.logger.Warn("guard session lookup failed, treating as signed out: %v", err)
		return nil
	}
	return sess
}

func (g *Guard) signInRedirect(requestedPath string) string {
	signIn := g.cfg.GetSignInPath()
	requestedPath = strings.TrimSpace(requestedPath)
	if requestedPath == "" || requestedPath == signIn {
		return signIn
	}
	return signIn + "?" + g.cfg.GetReturnToParam() + "=" + url.QueryEscape(requestedPath)
}
