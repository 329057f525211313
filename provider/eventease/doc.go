// Package eventease implements session.IdentityProvider against the
// EventEase backend API. The backend owns token issuance and server-side
// validation; this adapter holds the bearer token, projects its claims
// locally, and maps the auth endpoints onto the provider contract.
package eventease
