package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeProviderUnavailable = "IDENTITY_PROVIDER_UNAVAILABLE"
	TextCodeNotSignedIn         = "NOT_SIGNED_IN"
	TextCodeAccountDisabled     = "ACCOUNT_DISABLED"
	TextCodeResendFailed        = "VERIFICATION_RESEND_FAILED"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
)

// ErrProviderUnavailable wraps network or provider failures during a
// session round trip. Guards treat it as "no session" (fail closed).
var ErrProviderUnavailable = goerrors.New("identity provider unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeProviderUnavailable).
	WithCode(goerrors.CodeInternal)

// ErrNotSignedIn is returned by operations that need a current session
var ErrNotSignedIn = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotSignedIn).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountDisabled signals the provider rejected a deactivated account
var ErrAccountDisabled = goerrors.New("account is deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is returned on a failed sign in attempt
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrResendFailed wraps failures of the resend-verification action
var ErrResendFailed = goerrors.New("could not resend verification email", goerrors.CategoryOperation).
	WithTextCode(TextCodeResendFailed).
	WithCode(goerrors.CodeInternal)

// WrapProviderError folds any provider failure into ErrProviderUnavailable
// while keeping the original error and a human-readable message around.
func WrapProviderError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(TextCodeProviderUnavailable).
		WithCode(goerrors.CodeInternal)
}
