// Package auth provides account authentication for confstore.
//
// # Tokens
//
// Access tokens are HS256 signed JWTs carrying:
//
//   - sub: user uuid
//   - email: account email
//   - roles: role names at login time
//   - type: "access" or "refresh"
//
// Refresh tokens carry only the subject and live seven times as long as
// access tokens.
//
// # Passwords
//
// Passwords are hashed with bcrypt. Login compares against a fixed dummy
// hash when the email is unknown so that the unknown-email and
// wrong-password paths take comparable time.
//
// # Errors
//
//   - ErrInvalidCredentials: unknown email or wrong password
//   - ErrInactiveUser: correct credentials for a deactivated account
//   - ErrInvalidToken, ErrExpiredToken, ErrMissingClaim: verification failures
package auth
