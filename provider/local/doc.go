// Package local implements session.IdentityProvider on top of a Bun
// users table. It exists for server-rendered and development deployments
// where the application itself owns the identity records instead of a
// remote auth service.
package local
