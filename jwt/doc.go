// Package jwt is the session codec: it mints, verifies and refreshes the compact
// HS256-signed tokens stored in the session cookie.
//
// Tokens are stateless. A token is valid only when its signature verifies against
// the configured secret, its algorithm is HS256 and its exp claim is strictly in
// the future. Every expected failure is reported as a [*DecodeError] wrapping
// [ErrInvalidSession]; decoding never panics on hostile input.
package jwt
