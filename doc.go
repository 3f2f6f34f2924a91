// Package farmAuth is the authentication and session-protection core of the farm
// advisory application. It signs users in with email and password, registers
// accounts, and issues stateless HS256 session tokens carried in the "session"
// cookie.
//
// An [Engine] is assembled by [Builder.Build] and is safe for concurrent use.
// Route-level access control lives in the middleware sub-package and the HTTP
// form/JSON endpoints in handlers; both consume the Engine.
//
// # Architecture boundaries
//
// farmAuth is the public surface. It exposes [Engine], [Builder], [Config], the
// [CredentialVerifier] and [UserStore] collaborators and value types such as
// [SessionClaims]. Rate-limit counters, audit dispatch and metric storage live
// under internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Persist user records. The [UserStore] collaborator owns them.
//   - Keep server-side session state. Logout only clears the cookie.
//   - Import the middleware or handlers sub-packages (no import cycles).
//   - Put passwords or tokens into logs or audit events.
package farmAuth
