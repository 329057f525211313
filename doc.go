// Package session provides the client-facing session, authorization and
// ephemeral-notification layer for the EventEase application family.
//
// Session lifecycle:
//   - Store is the single source of truth for the current identity. It
//     caches the last known Session, coalesces concurrent provider round
//     trips into one, and fans out replacements to subscribers in
//     registration order. Providers own token persistence; the Store only
//     keeps an in-memory projection for the lifetime of the process.
//
// Route guards:
//   - Guard evaluates authentication and role checks as pure predicates
//     over Store state plus route metadata. Denials always carry a
//     redirect target; the redirect itself happens at the router boundary
//     (RouteGuard for go-router apps, FiberGuard for fiber apps).
//
// Verification polling:
//   - VerificationPoller substitutes polling for the push channel the
//     identity provider does not offer: it re-queries on a fixed interval
//     until a pending signup reaches verified, then fires a redirect
//     callback after a short success delay. Teardown cancels the interval
//     deterministically and late provider responses are discarded.
//
// Notifications:
//   - Bus queues transient toasts from uncoordinated callers into one
//     ordered, auto-expiring queue and delivers full snapshots to
//     subscribers on every mutation.
package session
