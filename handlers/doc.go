// Package handlers exposes the sign-in, registration and sign-out endpoints as
// plain net/http handlers over a [farmAuth.Engine].
//
// Each handler accepts either an HTML form or a JSON body. Form submissions
// that succeed are answered with 303 See Other to the landing route (or to a
// safe local "from" path for sign-in); JSON submissions receive 200 with a
// small JSON document. Failures map onto fixed status codes:
//
//	400  validation failure, with a per-field message map
//	401  invalid credentials (never says which part was wrong)
//	403  registration disabled
//	409  email already registered
//	429  too many attempts (no cooldown is disclosed)
//	503  credential check unavailable
//	500  persistence or unexpected failure
//
// # Architecture boundaries
//
// Handlers do not classify routes or decode session cookies; that is the job
// of middleware.Guard, which is expected to wrap them.
package handlers
