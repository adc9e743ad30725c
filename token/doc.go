// Package token issues and parses the signed session tokens that
// authenticate requests to the two-factor management endpoints.
//
// Tokens are HS256 JWTs carrying the identity ID as subject plus a random
// jti, issuer, iat, and exp. Parsing enforces algorithm, issuer, and
// expiry; everything else about the session lives server-side.
//
// # What this package must NOT do
//
//   - Decide authorization; it only proves who the caller is.
//   - Import go2fa or any sibling package.
package token
