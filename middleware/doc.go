// Package middleware is the access controller. It classifies each request path,
// decodes the session cookie through the Engine and decides whether to allow,
// redirect or reject the request.
//
// # Decision rules
//
// Public paths are always allowed. Auth-only paths (login, register) redirect
// signed-in users to the landing page. Protected and admin-only paths redirect
// anonymous users to the login page with the original path in "from"; paths
// under the reject prefix get 401 instead. A non-admin on an admin-only path is
// sent to the landing page (403 under the reject prefix).
//
// Security headers are set on every response. Allowed requests with a valid
// session get a refreshed cookie when sliding expiration is on, and the claims
// are available through [IdentityFromContext].
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly (the Engine does).
//   - Answer an authentication fault with a 500 or leak a panic to the client.
//   - Keep per-request state outside the request context.
package middleware
